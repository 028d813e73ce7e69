// Package referrals implements referral offers tied to job postings.
// Recruiters open referrals, students claim them, and the referrer
// marks them completed once the candidate has been put forward.
package referrals

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/features/auth"
	"github.com/campushire/campushire/internal/httputil"
	"github.com/campushire/campushire/internal/mailer"
	"github.com/campushire/campushire/internal/validate"
)

const (
	referralsCollection = "referrals"
	jobsCollection      = "jobs"
	usersCollection     = "users"
)

// Handler is the shared dependency container for the referrals feature.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	Secret string
	Mail   *mailer.Mailer
}

func NewHandler(db *mongo.Database, logger *zap.Logger, secret string, mail *mailer.Mailer) *Handler {
	return &Handler{DB: db, Log: logger, Secret: secret, Mail: mail}
}

// Routes mounts the referral endpoints. All require authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Use(auth.RequireAuth(h.Secret))
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleRecruiter, auth.RoleAdmin))
		r.Post("/", h.create)
		r.Post("/{id}/complete", h.complete)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleStudent))
		r.Post("/{id}/claim", h.claim)
	})
}

func (h *Handler) referrals() *mongo.Collection {
	return h.DB.Collection(referralsCollection)
}

type createRequest struct {
	JobID string `json:"jobId" validate:"required,len=24,hexadecimal"`
	Note  string `json:"note" validate:"omitempty,max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req createRequest
	if err := httputil.BindJSON(r, &req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	jobID, err := primitive.ObjectIDFromHex(req.JobID)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}
	referrerID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}

	// The referral must target a live posting.
	count, err := h.DB.Collection(jobsCollection).CountDocuments(r.Context(),
		bson.M{"_id": jobID, "active": true})
	if err != nil {
		h.Log.Error("job lookup failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not create referral")
		return
	}
	if count == 0 {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "job not found")
		return
	}

	now := time.Now().UTC()
	ref := Referral{
		JobID:      jobID,
		ReferrerID: referrerID,
		Status:     StatusOpen,
		Note:       req.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	res, err := h.referrals().InsertOne(r.Context(), ref)
	if err != nil {
		h.Log.Error("insert referral failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not create referral")
		return
	}
	ref.ID = res.InsertedID.(primitive.ObjectID)

	h.Log.Info("referral opened",
		zap.String("referral_id", ref.ID.Hex()),
		zap.String("job_id", jobID.Hex()))
	httputil.WriteJSON(w, http.StatusCreated, ref)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	q := r.URL.Query()

	filter := bson.M{}
	switch status := q.Get("status"); status {
	case "":
	case StatusOpen, StatusClaimed, StatusCompleted:
		filter["status"] = status
	default:
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "unknown status filter")
		return
	}
	if jobHex := q.Get("jobId"); jobHex != "" {
		jobID, err := primitive.ObjectIDFromHex(jobHex)
		if err != nil {
			httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid job id")
			return
		}
		filter["job_id"] = jobID
	}
	if q.Get("mine") == "true" {
		uid, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
			return
		}
		if claims.Role == auth.RoleStudent {
			filter["claimed_by"] = uid
		} else {
			filter["referrer_id"] = uid
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(200)
	cur, err := h.referrals().Find(r.Context(), filter, opts)
	if err != nil {
		h.Log.Error("find referrals failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list referrals")
		return
	}
	defer cur.Close(r.Context())

	refs := make([]Referral, 0)
	if err := cur.All(r.Context(), &refs); err != nil {
		h.Log.Error("decode referrals failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list referrals")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"referrals": refs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid referral id")
		return
	}

	var ref Referral
	if err := h.referrals().FindOne(r.Context(), bson.M{"_id": id}).Decode(&ref); err != nil {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "referral not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ref)
}

// claim atomically moves an open referral to claimed. The status guard in
// the filter makes concurrent claims race safely; the loser sees no match.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid referral id")
		return
	}
	studentID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}

	now := time.Now().UTC()
	var ref Referral
	err = h.referrals().FindOneAndUpdate(r.Context(),
		bson.M{"_id": id, "status": StatusOpen},
		bson.M{"$set": bson.M{
			"status":     StatusClaimed,
			"claimed_by": studentID,
			"claimed_at": now,
			"updated_at": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&ref)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			httputil.JSONError(w, http.StatusConflict, "not_claimable", "referral is not open")
			return
		}
		h.Log.Error("claim referral failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not claim referral")
		return
	}

	h.notifyReferrer(r, &ref)

	h.Log.Info("referral claimed",
		zap.String("referral_id", ref.ID.Hex()),
		zap.String("claimed_by", claims.Subject))
	httputil.WriteJSON(w, http.StatusOK, ref)
}

// complete moves a claimed referral to completed. Only the referrer who
// opened it (or an admin) may complete it.
func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid referral id")
		return
	}

	filter := bson.M{"_id": id, "status": StatusClaimed}
	if claims.Role != auth.RoleAdmin {
		referrerID, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
			return
		}
		filter["referrer_id"] = referrerID
	}

	now := time.Now().UTC()
	var ref Referral
	err = h.referrals().FindOneAndUpdate(r.Context(), filter,
		bson.M{"$set": bson.M{
			"status":       StatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&ref)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			httputil.JSONError(w, http.StatusConflict, "not_completable", "referral is not claimed or not yours")
			return
		}
		h.Log.Error("complete referral failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not complete referral")
		return
	}

	h.Log.Info("referral completed", zap.String("referral_id", ref.ID.Hex()))
	httputil.WriteJSON(w, http.StatusOK, ref)
}

// notifyReferrer emails the recruiter that their referral was claimed.
// Delivery failures are logged, never surfaced to the claiming student.
func (h *Handler) notifyReferrer(r *http.Request, ref *Referral) {
	if h.Mail == nil || !h.Mail.Enabled() {
		return
	}

	var referrer struct {
		Email string `bson:"email"`
		Name  string `bson:"name"`
	}
	err := h.DB.Collection(usersCollection).FindOne(r.Context(),
		bson.M{"_id": ref.ReferrerID}).Decode(&referrer)
	if err != nil {
		h.Log.Warn("referrer lookup for notification failed", zap.Error(err))
		return
	}

	err = h.Mail.Send(r.Context(), mailer.Message{
		To:       []string{referrer.Email},
		Subject:  "Your referral was claimed",
		TextBody: "A candidate claimed one of your referral offers. Sign in to review it.",
	})
	if err != nil {
		h.Log.Warn("referral notification failed", zap.Error(err))
	}
}
