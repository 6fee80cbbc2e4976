package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressRecord is one progress check for a client. Only the count and
// the most recent CreatedAt feed consistency analytics.
type ProgressRecord struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ClientID      primitive.ObjectID  `bson:"clientId" json:"clientId"`
	SessionID     *primitive.ObjectID `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	EntryType     string              `bson:"entryType" json:"entryType"` // e.g. "weight", "measurements", "photo"
	Notes         string              `bson:"notes,omitempty" json:"notes,omitempty"`
	AttachmentKey string              `bson:"attachmentKey,omitempty" json:"attachmentKey,omitempty"` // S3 object key
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}
