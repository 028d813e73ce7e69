// internal/db/mongodb/errors.go
package mongodb

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// IsDup reports whether err is a Mongo duplicate-key error (E11000), e.g.
// from the unique index on users.email. It handles WriteException,
// BulkWriteException, and CommandError, and falls back to a string check
// since some hosted deployments surface the code only as text.
func IsDup(err error) bool {
	if err == nil {
		return false
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
		if bwe.WriteConcernError != nil && bwe.WriteConcernError.Code == 11000 {
			return true
		}
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
		if we.WriteConcernError != nil && we.WriteConcernError.Code == 11000 {
			return true
		}
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}

	s := strings.ToLower(err.Error())
	return strings.Contains(s, "e11000") || strings.Contains(s, "duplicate key")
}
