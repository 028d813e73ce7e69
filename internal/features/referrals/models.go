package referrals

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Referral lifecycle states. A referral moves open -> claimed -> completed.
const (
	StatusOpen      = "open"
	StatusClaimed   = "claimed"
	StatusCompleted = "completed"
)

// Referral is an offer by a recruiter to refer a candidate for a job.
type Referral struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	JobID       primitive.ObjectID  `bson:"job_id" json:"jobId"`
	ReferrerID  primitive.ObjectID  `bson:"referrer_id" json:"referrerId"`
	ClaimedBy   *primitive.ObjectID `bson:"claimed_by,omitempty" json:"claimedBy,omitempty"`
	Status      string              `bson:"status" json:"status"`
	Note        string              `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updatedAt"`
	ClaimedAt   *time.Time          `bson:"claimed_at,omitempty" json:"claimedAt,omitempty"`
	CompletedAt *time.Time          `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}
