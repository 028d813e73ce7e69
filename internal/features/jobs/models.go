package jobs

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Employment types accepted for postings.
const (
	TypeFullTime   = "full_time"
	TypePartTime   = "part_time"
	TypeInternship = "internship"
	TypeContract   = "contract"
)

func validJobType(t string) bool {
	switch t {
	case TypeFullTime, TypePartTime, TypeInternship, TypeContract:
		return true
	}
	return false
}

// Job is a posting document in the jobs collection.
type Job struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Company     string             `bson:"company" json:"company"`
	Description string             `bson:"description" json:"description"`
	Location    string             `bson:"location" json:"location"`
	Type        string             `bson:"type" json:"type"`
	SalaryMin   int                `bson:"salary_min,omitempty" json:"salaryMin,omitempty"`
	SalaryMax   int                `bson:"salary_max,omitempty" json:"salaryMax,omitempty"`
	Skills      []string           `bson:"skills,omitempty" json:"skills,omitempty"`
	PostedBy    primitive.ObjectID `bson:"posted_by" json:"postedBy"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}
