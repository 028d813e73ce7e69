package messages

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a direct message between two accounts.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FromID    primitive.ObjectID `bson:"from_id" json:"fromId"`
	ToID      primitive.ObjectID `bson:"to_id" json:"toId"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	ReadAt    *time.Time         `bson:"read_at,omitempty" json:"readAt,omitempty"`
}
