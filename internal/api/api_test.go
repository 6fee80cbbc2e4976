package api

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository/sqlite"
	"alcyxob/coach-scheduler/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "api-test-secret"

var testNow = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

type testServer struct {
	router  *gin.Engine
	clients *sqlite.ClientStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	coaches := sqlite.NewCoachStore(db)
	clients := sqlite.NewClientStore(db)
	sessions := sqlite.NewSessionStore(db)
	progress := sqlite.NewProgressStore(db)
	clock := func() time.Time { return testNow }

	authService := service.NewAuthService(coaches, testSecret, time.Hour)
	availabilityService := service.NewAvailabilityService(sqlite.NewAvailabilityStore(db), sqlite.NewHolidayStore(db), clock)
	scheduleService := service.NewScheduleService(sessions, clients, availabilityService, service.ScheduleOptions{})
	router := gin.New()
	SetupRoutes(router, testSecret,
		service.NewScopeResolver(coaches),
		authService,
		scheduleService,
		service.NewLifecycleService(sessions, sqlite.NewWorkoutStore(db), clock),
		availabilityService,
		service.NewClientService(clients, progress, nil, clock),
		service.NewAnalyticsService(clients, sessions, progress, 30, clock),
		service.NewSlotService(sqlite.NewTimeSlotStore(db), scheduleService, clock),
		service.NewGradingService(sqlite.NewGradeStore(db), sessions, clients),
	)
	return &testServer{router: router, clients: clients}
}

// register creates a coach through the API and returns its id and token.
func (s *testServer) register(t *testing.T, email string) (string, string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", nil, gin.H{"name": "Coach", "email": email, "password": "password123"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body)
	}
	var coach CoachResponse
	decode(t, w, &coach)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, gin.H{"email": email, "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body)
	}
	var login LoginResponse
	decode(t, w, &login)
	return coach.ID, login.Token
}

func (s *testServer) do(t *testing.T, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
}

func TestScopeMiddleware(t *testing.T) {
	s := newTestServer(t)
	coachID, token := s.register(t, "ana@example.com")

	expired := jwtFor(t, coachID, domain.RoleCoach, -time.Minute)
	clientRole := jwtFor(t, coachID, domain.RoleClient, time.Hour)

	tests := []struct {
		name      string
		headers   map[string]string
		wantCode  int
		wantScope string
	}{
		{"no credentials", nil, http.StatusOK, "unscoped"},
		{"bearer token", bearer(token), http.StatusOK, "coach:" + coachID},
		{"legacy header", map[string]string{LegacyCoachHeader: coachID}, http.StatusOK, "coach:" + coachID},
		{"unknown legacy id", map[string]string{LegacyCoachHeader: primitive.NewObjectID().Hex()}, http.StatusOK, "unscoped"},
		{"malformed legacy id", map[string]string{LegacyCoachHeader: "nope"}, http.StatusOK, "unscoped"},
		{"garbage token", bearer("not.a.token"), http.StatusUnauthorized, ""},
		{"wrong scheme", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, ""},
		{"expired token", bearer(expired), http.StatusUnauthorized, ""},
		{"non-coach token", bearer(clientRole), http.StatusForbidden, ""},
		{"token for unknown coach", bearer(jwtFor(t, primitive.NewObjectID().Hex(), domain.RoleCoach, time.Hour)), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/v1/me", tt.headers, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body)
			}
			if tt.wantScope == "" {
				return
			}
			var body map[string]string
			decode(t, w, &body)
			if body["scope"] != tt.wantScope {
				t.Errorf("scope = %q, want %q", body["scope"], tt.wantScope)
			}
		})
	}
}

func jwtFor(t *testing.T, uid string, role domain.Role, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwtClaims{
		UserID: uid,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ana@example.com")

	tests := []struct {
		name     string
		path     string
		body     gin.H
		wantCode int
	}{
		{"duplicate email", "/api/v1/auth/register", gin.H{"name": "A", "email": "ana@example.com", "password": "password123"}, http.StatusConflict},
		{"short password", "/api/v1/auth/register", gin.H{"name": "A", "email": "b@example.com", "password": "short"}, http.StatusBadRequest},
		{"wrong password", "/api/v1/auth/login", gin.H{"email": "ana@example.com", "password": "wrongpass"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do(t, http.MethodPost, tt.path, nil, tt.body); w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body)
			}
		})
	}
}

func TestDeactivate(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "ana@example.com")

	if w := s.do(t, http.MethodPost, "/api/v1/auth/deactivate", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("unscoped deactivate status = %d, want 400", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/auth/deactivate", bearer(token), nil); w.Code != http.StatusNoContent {
		t.Fatalf("deactivate status = %d, body %s", w.Code, w.Body)
	}
	// The token is still signed, but no longer names an active coach.
	for _, path := range []string{"/api/v1/me", "/api/v1/clients", "/api/v1/sessions"} {
		if w := s.do(t, http.MethodGet, path, bearer(token), nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s after deactivation status = %d, want 401 (body %s)", path, w.Code, w.Body)
		}
	}
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "ana@example.com")
	auth := bearer(token)

	w := s.do(t, http.MethodPost, "/api/v1/clients", auth, gin.H{"name": "Jo", "profile": gin.H{"progressCheckFrequency": "weekly"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create client status = %d, body %s", w.Code, w.Body)
	}
	var client domain.Client
	decode(t, w, &client)

	// Recurring creation, then a replay with the same key.
	recurring := gin.H{"clientId": client.ID.Hex(), "startDate": "2026-03-02", "time": "09:00", "recurrence": "weekly", "count": 3}
	keyed := map[string]string{"Authorization": auth["Authorization"], IdempotencyKeyHeader: "batch-1"}
	w = s.do(t, http.MethodPost, "/api/v1/sessions/recurring", keyed, recurring)
	if w.Code != http.StatusCreated {
		t.Fatalf("recurring status = %d, body %s", w.Code, w.Body)
	}
	var batch service.RecurringSessionsResult
	decode(t, w, &batch)
	if len(batch.Sessions) != 3 || !batch.Sessions[2].ScheduledAt.Equal(time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("batch = %+v", batch)
	}
	w = s.do(t, http.MethodPost, "/api/v1/sessions/recurring", keyed, recurring)
	if w.Code != http.StatusOK {
		t.Errorf("replay status = %d, want 200", w.Code)
	}
	reused := gin.H{"clientId": client.ID.Hex(), "startDate": "2026-03-02", "time": "09:00", "recurrence": "daily", "count": 5}
	if w := s.do(t, http.MethodPost, "/api/v1/sessions/recurring", keyed, reused); w.Code != http.StatusConflict {
		t.Errorf("key reused for another request: status = %d, want 409 (body %s)", w.Code, w.Body)
	}

	id := batch.Sessions[0].ID.Hex()
	steps := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
	}{
		{"complete before start", http.MethodPost, "/api/v1/sessions/" + id + "/complete", nil, http.StatusBadRequest},
		{"start", http.MethodPost, "/api/v1/sessions/" + id + "/start", nil, http.StatusOK},
		{"reschedule started", http.MethodPut, "/api/v1/sessions/" + id + "/reschedule", gin.H{"scheduledAt": "2026-04-01T10:00:00Z"}, http.StatusBadRequest},
		{"attendance late", http.MethodPost, "/api/v1/sessions/" + id + "/attendance", gin.H{"status": "late", "lateMinutes": 5}, http.StatusOK},
		{"cancel completed", http.MethodPost, "/api/v1/sessions/" + id + "/cancel", nil, http.StatusBadRequest},
		{"generic transition no-op", http.MethodPost, "/api/v1/sessions/" + id + "/status", gin.H{"status": "completed"}, http.StatusOK},
		{"bad id", http.MethodGet, "/api/v1/sessions/xyz", nil, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/v1/sessions/" + primitive.NewObjectID().Hex(), nil, http.StatusNotFound},
	}
	for _, st := range steps {
		if w := s.do(t, st.method, st.path, auth, st.body); w.Code != st.wantCode {
			t.Errorf("%s: status = %d, want %d (body %s)", st.name, w.Code, st.wantCode, w.Body)
		}
	}

	bulk := gin.H{"sessionIds": []string{batch.Sessions[1].ID.Hex(), id}, "reason": "travel"}
	w = s.do(t, http.MethodPost, "/api/v1/sessions/bulk-cancel", auth, bulk)
	var results []service.BulkCancelResult
	decode(t, w, &results)
	if len(results) != 2 || !results[0].Success || results[1].Success {
		t.Errorf("bulk cancel = %+v", results)
	}

	w = s.do(t, http.MethodGet, "/api/v1/sessions?includeCancelled=true&clientId="+client.ID.Hex(), auth, nil)
	var sessions []domain.Session
	decode(t, w, &sessions)
	if len(sessions) != 3 {
		t.Errorf("listed %d sessions, want 3", len(sessions))
	}

	w = s.do(t, http.MethodGet, "/api/v1/progress/consistency/"+client.ID.Hex()+"?days=30", auth, nil)
	var report service.ConsistencyReport
	decode(t, w, &report)
	if w.Code != http.StatusOK || report.SessionsScheduled != 2 || report.SessionsAttended != 1 || !report.ProgressCheckDue {
		t.Errorf("consistency = %d %+v", w.Code, report)
	}

	if w := s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("unscoped purge status = %d, want 400", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, auth, nil); w.Code != http.StatusNoContent {
		t.Errorf("purge status = %d, want 204", w.Code)
	}
}

func TestUnscopedVisibility(t *testing.T) {
	s := newTestServer(t)
	_, tokenA := s.register(t, "a@example.com")
	_, tokenB := s.register(t, "b@example.com")

	for _, tok := range []string{tokenA, tokenB} {
		if w := s.do(t, http.MethodPost, "/api/v1/clients", bearer(tok), gin.H{"name": "Jo"}); w.Code != http.StatusCreated {
			t.Fatalf("create client status = %d", w.Code)
		}
	}

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"coach a", bearer(tokenA), 1},
		{"coach b", bearer(tokenB), 1},
		{"unscoped", nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var clients []domain.Client
			decode(t, s.do(t, http.MethodGet, "/api/v1/clients", tt.headers, nil), &clients)
			if len(clients) != tt.want {
				t.Errorf("listed %d clients, want %d", len(clients), tt.want)
			}
		})
	}
}

func TestAvailabilityRoutes(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "ana@example.com")
	auth := bearer(token)

	steps := []struct {
		name     string
		method   string
		path     string
		headers  map[string]string
		body     any
		wantCode int
	}{
		{"unscoped profile", http.MethodGet, "/api/v1/availability", nil, nil, http.StatusBadRequest},
		{"default profile", http.MethodGet, "/api/v1/availability", auth, nil, http.StatusOK},
		{"replace days", http.MethodPut, "/api/v1/availability/days", auth, gin.H{"workingDays": []int{1, 3}}, http.StatusOK},
		{"invalid day", http.MethodPut, "/api/v1/availability/days", auth, gin.H{"workingDays": []int{9}}, http.StatusBadRequest},
		{"add holiday", http.MethodPost, "/api/v1/availability/holidays", auth, gin.H{"date": "2026-03-04"}, http.StatusCreated},
		{"duplicate holiday", http.MethodPost, "/api/v1/availability/holidays", auth, gin.H{"date": "2026-03-04"}, http.StatusConflict},
		{"bad holiday", http.MethodPost, "/api/v1/availability/holidays", auth, gin.H{"date": "March 4"}, http.StatusBadRequest},
	}
	for _, st := range steps {
		if w := s.do(t, st.method, st.path, st.headers, st.body); w.Code != st.wantCode {
			t.Errorf("%s: status = %d, want %d (body %s)", st.name, w.Code, st.wantCode, w.Body)
		}
	}

	preview := gin.H{"startDate": "2026-03-02", "time": "10:00", "recurrence": "daily", "count": 3, "respectAvailability": true}
	w := s.do(t, http.MethodPost, "/api/v1/sessions/preview", auth, preview)
	var resp PreviewResponse
	decode(t, w, &resp)
	want := []int{2, 9, 11}
	if len(resp.Instants) != len(want) {
		t.Fatalf("preview = %+v", resp)
	}
	for i, d := range want {
		if resp.Instants[i].Day() != d {
			t.Errorf("instant %d = %v, want March %d", i, resp.Instants[i], d)
		}
	}
}

func TestProgressRoutes(t *testing.T) {
	s := newTestServer(t)
	coachID, token := s.register(t, "ana@example.com")
	auth := bearer(token)
	ownerID, _ := primitive.ObjectIDFromHex(coachID)
	clientID, err := s.clients.Create(context.Background(), &domain.Client{Name: "Jo", CoachID: &ownerID})
	if err != nil {
		t.Fatal(err)
	}

	w := s.do(t, http.MethodPost, "/api/v1/progress", auth, gin.H{"clientId": clientID.Hex(), "entryType": "weigh-in"})
	if w.Code != http.StatusCreated {
		t.Fatalf("record progress status = %d, body %s", w.Code, w.Body)
	}
	var record domain.ProgressRecord
	decode(t, w, &record)

	var records []domain.ProgressRecord
	decode(t, s.do(t, http.MethodGet, "/api/v1/progress/client/"+clientID.Hex(), auth, nil), &records)
	if len(records) != 1 {
		t.Errorf("listed %d records, want 1", len(records))
	}

	// Object storage is not configured in this server.
	w = s.do(t, http.MethodPost, "/api/v1/progress/"+record.ID.Hex()+"/attachment-url", auth, gin.H{"contentType": "image/png"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("attachment without storage status = %d, want 500", w.Code)
	}

	if w := s.do(t, http.MethodDelete, "/api/v1/clients/"+clientID.Hex(), auth, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete client status = %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/progress/consistency/"+clientID.Hex(), auth, nil); w.Code != http.StatusNotFound {
		t.Errorf("consistency for deleted client status = %d, want 404", w.Code)
	}
}

func TestSlotRoutes(t *testing.T) {
	s := newTestServer(t)
	_, tokenA := s.register(t, "a@example.com")
	_, tokenB := s.register(t, "b@example.com")
	authA, authB := bearer(tokenA), bearer(tokenB)

	w := s.do(t, http.MethodPost, "/api/v1/clients", authA, gin.H{"name": "Jo"})
	var client domain.Client
	decode(t, w, &client)

	w = s.do(t, http.MethodPost, "/api/v1/availability/slots", authA, gin.H{
		"dayOfWeek": 4, "startTime": "18:30", "endTime": "19:30", "locationType": "offline", "locationAddress": "Studio B",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create slot status = %d, body %s", w.Code, w.Body)
	}
	var slot domain.TimeSlot
	decode(t, w, &slot)
	if slot.DayOfWeek != time.Thursday || slot.DurationMinutes != 60 {
		t.Errorf("slot = %+v", slot)
	}

	bad := []gin.H{
		{"startTime": "09:00", "endTime": "10:00"},
		{"dayOfWeek": 9, "startTime": "09:00", "endTime": "10:00"},
		{"dayOfWeek": 1, "startTime": "10:00", "endTime": "09:00"},
	}
	for _, body := range bad {
		if w := s.do(t, http.MethodPost, "/api/v1/availability/slots", authA, body); w.Code != http.StatusBadRequest {
			t.Errorf("create slot %v: status = %d, want 400", body, w.Code)
		}
	}

	assign := gin.H{"timeSlotId": slot.ID.Hex(), "clientId": client.ID.Hex(), "startDate": "2026-03-02", "idempotencyKey": "slot-jo"}
	w = s.do(t, http.MethodPost, "/api/v1/sessions/assign-to-slot", authA, assign)
	if w.Code != http.StatusCreated {
		t.Fatalf("assign status = %d, body %s", w.Code, w.Body)
	}
	var batch service.RecurringSessionsResult
	decode(t, w, &batch)
	if len(batch.Sessions) != service.DefaultSlotSessions || !batch.Sessions[0].ScheduledAt.Equal(time.Date(2026, 3, 5, 18, 30, 0, 0, time.UTC)) {
		t.Errorf("assign batch = %+v", batch)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/sessions/assign-to-slot", authA, assign); w.Code != http.StatusOK {
		t.Errorf("assign replay status = %d, want 200", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/sessions/assign-to-slot", authB, assign); w.Code != http.StatusNotFound {
		t.Errorf("foreign assign status = %d, want 404", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/v1/availability/slots", authB, nil)
	var slots []domain.TimeSlot
	decode(t, w, &slots)
	if len(slots) != 0 {
		t.Errorf("coach B sees %d slots, want 0", len(slots))
	}
	if w := s.do(t, http.MethodDelete, "/api/v1/availability/slots/"+slot.ID.Hex(), authB, nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/v1/availability/slots/"+slot.ID.Hex(), authA, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
}

func TestGradeRoutes(t *testing.T) {
	s := newTestServer(t)
	_, tokenA := s.register(t, "a@example.com")
	_, tokenB := s.register(t, "b@example.com")
	authA, authB := bearer(tokenA), bearer(tokenB)

	w := s.do(t, http.MethodPost, "/api/v1/clients", authA, gin.H{"name": "Jo"})
	var client domain.Client
	decode(t, w, &client)
	w = s.do(t, http.MethodPost, "/api/v1/sessions", authA, gin.H{"clientId": client.ID.Hex(), "scheduledAt": "2026-03-10T09:00:00Z"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body %s", w.Code, w.Body)
	}
	var session domain.Session
	decode(t, w, &session)

	steps := []struct {
		name     string
		auth     map[string]string
		body     gin.H
		wantCode int
	}{
		{"grade", authA, gin.H{"sessionId": session.ID.Hex(), "gradeValue": "B", "numericScore": 80}, http.StatusOK},
		{"regrade", authA, gin.H{"sessionId": session.ID.Hex(), "clientId": client.ID.Hex(), "gradeValue": "A", "numericScore": 92}, http.StatusOK},
		{"score out of range", authA, gin.H{"sessionId": session.ID.Hex(), "gradeValue": "A", "numericScore": 120}, http.StatusBadRequest},
		{"missing grade", authA, gin.H{"sessionId": session.ID.Hex()}, http.StatusBadRequest},
		{"other coach", authB, gin.H{"sessionId": session.ID.Hex(), "gradeValue": "F"}, http.StatusNotFound},
		{"unscoped", nil, gin.H{"sessionId": session.ID.Hex(), "gradeValue": "F"}, http.StatusBadRequest},
	}
	for _, st := range steps {
		if w := s.do(t, http.MethodPost, "/api/v1/grades/session", st.auth, st.body); w.Code != st.wantCode {
			t.Errorf("%s: status = %d, want %d (body %s)", st.name, w.Code, st.wantCode, w.Body)
		}
	}

	w = s.do(t, http.MethodGet, "/api/v1/grades/client/"+client.ID.Hex(), authA, nil)
	var grades []domain.SessionGrade
	decode(t, w, &grades)
	if len(grades) != 1 || grades[0].GradeValue != "A" || grades[0].NumericScore != 92 {
		t.Errorf("grades = %+v, want the regraded entry only", grades)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/grades/client/"+client.ID.Hex(), authB, nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign grade list status = %d, want 404", w.Code)
	}
}
