package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"alcyxob/coach-scheduler/internal/storage"
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAttachmentsDisabled = errors.New("object storage is not configured")
	ErrUploadURLError      = errors.New("failed to generate upload URL")
	ErrDownloadURLError    = errors.New("failed to generate download URL")
)

// CreateClientInput holds the fields a coach supplies for a new client.
type CreateClientInput struct {
	Name    string
	Email   string
	Phone   string
	Profile domain.ClientProfile

	// CoachID assigns the owner for unscoped callers. Ignored when scoped:
	// a coach always creates clients for themselves.
	CoachID *primitive.ObjectID
}

// RecordProgressInput is one progress check.
type RecordProgressInput struct {
	ClientID  primitive.ObjectID
	SessionID *primitive.ObjectID
	EntryType string
	Notes     string
}

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// ClientService manages clients and their progress records.
type ClientService interface {
	CreateClient(ctx context.Context, scope CoachScope, in CreateClientInput) (*domain.Client, error)
	GetClient(ctx context.Context, scope CoachScope, id primitive.ObjectID) (*domain.Client, error)
	ListClients(ctx context.Context, scope CoachScope) ([]domain.Client, error)
	DeleteClient(ctx context.Context, scope CoachScope, id primitive.ObjectID) error

	RecordProgress(ctx context.Context, scope CoachScope, in RecordProgressInput) (*domain.ProgressRecord, error)
	ListProgress(ctx context.Context, scope CoachScope, clientID primitive.ObjectID) ([]domain.ProgressRecord, error)

	// Attachment upload/download goes straight to object storage via presigned URLs.
	RequestProgressAttachmentURL(ctx context.Context, scope CoachScope, recordID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	GetProgressAttachmentURL(ctx context.Context, scope CoachScope, recordID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

type clientService struct {
	clientRepo   repository.ClientRepository
	progressRepo repository.ProgressRepository
	fileStorage  storage.FileStorage // nil when S3 is not configured
	now          Clock
}

// NewClientService creates a new instance of clientService.
func NewClientService(
	clientRepo repository.ClientRepository,
	progressRepo repository.ProgressRepository,
	fileStorage storage.FileStorage,
	now Clock,
) ClientService {
	if now == nil {
		now = SystemClock
	}
	return &clientService{
		clientRepo:   clientRepo,
		progressRepo: progressRepo,
		fileStorage:  fileStorage,
		now:          now,
	}
}

func (s *clientService) CreateClient(ctx context.Context, scope CoachScope, in CreateClientInput) (*domain.Client, error) {
	// 1. Validate Inputs
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	switch in.Profile.ProgressCheckFrequency {
	case "", domain.CheckWeekly, domain.CheckBiweekly, domain.CheckMonthly:
	default:
		return nil, domain.NewValidationError("profile.progressCheckFrequency", "must be weekly, biweekly or monthly")
	}

	// 2. Owner: the scoped coach, else whatever the caller supplied
	owner := in.CoachID
	if coachID, ok := scope.CoachID(); ok {
		owner = &coachID
	}

	client := &domain.Client{
		Name:    in.Name,
		Email:   strings.TrimSpace(in.Email),
		Phone:   in.Phone,
		CoachID: owner,
		Profile: in.Profile,
	}
	id, err := s.clientRepo.Create(ctx, client)
	if err != nil {
		return nil, domain.NewStorageError("create client", err)
	}
	client.ID = id
	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, scope CoachScope, id primitive.ObjectID) (*domain.Client, error) {
	return loadClient(ctx, s.clientRepo, scope, id)
}

// ListClients returns the caller's live clients, or every coach's when unscoped.
func (s *clientService) ListClients(ctx context.Context, scope CoachScope) ([]domain.Client, error) {
	clients, err := s.clientRepo.List(ctx, repository.ClientFilter{CoachID: scope.coachFilter()})
	if err != nil {
		return nil, domain.NewStorageError("list clients", err)
	}
	return clients, nil
}

// DeleteClient soft-deletes. Existing sessions are left untouched.
func (s *clientService) DeleteClient(ctx context.Context, scope CoachScope, id primitive.ObjectID) error {
	if _, err := loadClient(ctx, s.clientRepo, scope, id); err != nil {
		return err
	}
	if err := s.clientRepo.SoftDelete(ctx, id, s.now()); err != nil {
		return translateRepoError("delete client", "client", id, err)
	}
	return nil
}

func (s *clientService) RecordProgress(ctx context.Context, scope CoachScope, in RecordProgressInput) (*domain.ProgressRecord, error) {
	in.EntryType = strings.TrimSpace(in.EntryType)
	if in.EntryType == "" {
		return nil, domain.NewValidationError("entryType", "is required")
	}
	if _, err := loadClient(ctx, s.clientRepo, scope, in.ClientID); err != nil {
		return nil, err
	}

	record := &domain.ProgressRecord{
		ClientID:  in.ClientID,
		SessionID: in.SessionID,
		EntryType: in.EntryType,
		Notes:     in.Notes,
		CreatedAt: s.now(),
	}
	id, err := s.progressRepo.Create(ctx, record)
	if err != nil {
		return nil, domain.NewStorageError("create progress record", err)
	}
	record.ID = id
	return record, nil
}

func (s *clientService) ListProgress(ctx context.Context, scope CoachScope, clientID primitive.ObjectID) ([]domain.ProgressRecord, error) {
	if _, err := loadClient(ctx, s.clientRepo, scope, clientID); err != nil {
		return nil, err
	}
	records, err := s.progressRepo.ListByClientID(ctx, clientID)
	if err != nil {
		return nil, domain.NewStorageError("list progress records", err)
	}
	return records, nil
}

// loadRecord fetches a progress record whose client is visible to scope.
func (s *clientService) loadRecord(ctx context.Context, scope CoachScope, recordID primitive.ObjectID) (*domain.ProgressRecord, error) {
	record, err := s.progressRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, translateRepoError("get progress record", "progress record", recordID, err)
	}
	if _, err := loadClient(ctx, s.clientRepo, scope, record.ClientID); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError("progress record", recordID.Hex())
		}
		return nil, err
	}
	return record, nil
}

// RequestProgressAttachmentURL issues a presigned PUT URL and records the new
// object key on the record. A previously attached object is deleted.
func (s *clientService) RequestProgressAttachmentURL(ctx context.Context, scope CoachScope, recordID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	// 1. Validate Inputs
	contentType = strings.TrimSpace(contentType)
	if !strings.Contains(contentType, "/") {
		return nil, domain.NewValidationError("contentType", "must be a MIME type such as image/jpeg")
	}
	if s.fileStorage == nil {
		return nil, domain.NewStorageError("presign upload", ErrAttachmentsDisabled)
	}

	// 2. Get the record
	record, err := s.loadRecord(ctx, scope, recordID)
	if err != nil {
		return nil, err
	}

	// 3. Generate key and URL
	objectKey := storage.ProgressAttachmentKey(record.ClientID.Hex(), record.ID.Hex(), contentType)
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, 0)
	if err != nil {
		return nil, domain.NewStorageError("presign upload", ErrUploadURLError)
	}

	// 4. Point the record at the new key
	if err := s.progressRepo.SetAttachmentKey(ctx, record.ID, objectKey); err != nil {
		return nil, translateRepoError("set attachment key", "progress record", record.ID, err)
	}
	if record.AttachmentKey != "" {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.fileStorage.DeleteObject(cleanupCtx, record.AttachmentKey); err != nil {
			log.Printf("WARN: Failed to delete replaced attachment %s: %v", record.AttachmentKey, err)
		}
	}

	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// GetProgressAttachmentURL issues a presigned GET URL for the record's attachment.
func (s *clientService) GetProgressAttachmentURL(ctx context.Context, scope CoachScope, recordID primitive.ObjectID) (string, error) {
	if s.fileStorage == nil {
		return "", domain.NewStorageError("presign download", ErrAttachmentsDisabled)
	}
	record, err := s.loadRecord(ctx, scope, recordID)
	if err != nil {
		return "", err
	}
	if record.AttachmentKey == "" {
		return "", domain.NewNotFoundError("attachment", recordID.Hex())
	}

	downloadURL, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, record.AttachmentKey, 0)
	if err != nil {
		return "", domain.NewStorageError("presign download", ErrDownloadURLError)
	}
	return downloadURL, nil
}
