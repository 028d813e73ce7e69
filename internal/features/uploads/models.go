package uploads

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload is the metadata record for a stored document.
type Upload struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"ownerId"`
	Filename    string             `bson:"filename" json:"filename"`
	Path        string             `bson:"path" json:"-"`
	ContentType string             `bson:"content_type" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}
