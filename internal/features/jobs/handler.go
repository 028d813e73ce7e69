// Package jobs implements job posting CRUD with filtering and paging.
package jobs

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/features/auth"
	"github.com/campushire/campushire/internal/httputil"
	"github.com/campushire/campushire/internal/validate"
)

const jobsCollection = "jobs"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler is the shared dependency container for the jobs feature.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	Secret string
}

func NewHandler(db *mongo.Database, logger *zap.Logger, secret string) *Handler {
	return &Handler{DB: db, Log: logger, Secret: secret}
}

// Routes mounts the job endpoints. Listing and reads are public;
// writes require a recruiter or admin account.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(h.Secret))
		r.Use(auth.RequireRole(auth.RoleRecruiter, auth.RoleAdmin))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) jobs() *mongo.Collection {
	return h.DB.Collection(jobsCollection)
}

type jobRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=200"`
	Company     string   `json:"company" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"required,min=10,max=20000"`
	Location    string   `json:"location" validate:"required,max=200"`
	Type        string   `json:"type" validate:"required"`
	SalaryMin   int      `json:"salaryMin" validate:"omitempty,min=0"`
	SalaryMax   int      `json:"salaryMax" validate:"omitempty,min=0"`
	Skills      []string `json:"skills" validate:"omitempty,max=50,dive,min=1,max=80"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req jobRequest
	if err := httputil.BindJSON(r, &req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if !validJobType(req.Type) {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", "type must be full_time, part_time, internship, or contract")
		return
	}
	if req.SalaryMax != 0 && req.SalaryMax < req.SalaryMin {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", "salaryMax must not be below salaryMin")
		return
	}

	posterID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}

	now := time.Now().UTC()
	job := Job{
		Title:       req.Title,
		Company:     req.Company,
		Description: req.Description,
		Location:    req.Location,
		Type:        req.Type,
		SalaryMin:   req.SalaryMin,
		SalaryMax:   req.SalaryMax,
		Skills:      req.Skills,
		PostedBy:    posterID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := h.jobs().InsertOne(r.Context(), job)
	if err != nil {
		h.Log.Error("insert job failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not create job")
		return
	}
	job.ID = res.InsertedID.(primitive.ObjectID)

	h.Log.Info("job created",
		zap.String("job_id", job.ID.Hex()),
		zap.String("posted_by", claims.Subject))
	httputil.WriteJSON(w, http.StatusCreated, job)
}

type listResponse struct {
	Jobs  []Job `json:"jobs"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := bson.M{"active": true}
	if loc := q.Get("location"); loc != "" {
		filter["location"] = bson.M{"$regex": primitive.Regex{Pattern: regexEscape(loc), Options: "i"}}
	}
	if jt := q.Get("type"); jt != "" {
		if !validJobType(jt) {
			httputil.JSONError(w, http.StatusBadRequest, "bad_request", "unknown job type filter")
			return
		}
		filter["type"] = jt
	}
	if company := q.Get("company"); company != "" {
		filter["company"] = bson.M{"$regex": primitive.Regex{Pattern: regexEscape(company), Options: "i"}}
	}
	if search := q.Get("q"); search != "" {
		pattern := primitive.Regex{Pattern: regexEscape(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": pattern}},
			bson.M{"description": bson.M{"$regex": pattern}},
			bson.M{"skills": bson.M{"$regex": pattern}},
		}
	}

	page, limit := paging(q.Get("page"), q.Get("limit"))

	total, err := h.jobs().CountDocuments(r.Context(), filter)
	if err != nil {
		h.Log.Error("count jobs failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list jobs")
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := h.jobs().Find(r.Context(), filter, opts)
	if err != nil {
		h.Log.Error("find jobs failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list jobs")
		return
	}
	defer cur.Close(r.Context())

	jobs := make([]Job, 0, limit)
	if err := cur.All(r.Context(), &jobs); err != nil {
		h.Log.Error("decode jobs failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list jobs")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{Jobs: jobs, Total: total, Page: page, Limit: limit})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}

	var job Job
	if err := h.jobs().FindOne(r.Context(), bson.M{"_id": id, "active": true}).Decode(&job); err != nil {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}

	var req jobRequest
	if err := httputil.BindJSON(r, &req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if !validJobType(req.Type) {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", "type must be full_time, part_time, internship, or contract")
		return
	}

	filter := bson.M{"_id": id}
	if claims.Role != auth.RoleAdmin {
		// Recruiters may only edit their own postings.
		posterID, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
			return
		}
		filter["posted_by"] = posterID
	}

	update := bson.M{"$set": bson.M{
		"title":       req.Title,
		"company":     req.Company,
		"description": req.Description,
		"location":    req.Location,
		"type":        req.Type,
		"salary_min":  req.SalaryMin,
		"salary_max":  req.SalaryMax,
		"skills":      req.Skills,
		"updated_at":  time.Now().UTC(),
	}}

	var job Job
	err = h.jobs().FindOneAndUpdate(r.Context(), filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&job)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			httputil.JSONError(w, http.StatusNotFound, "not_found", "job not found or not yours to edit")
			return
		}
		h.Log.Error("update job failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not update job")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

// remove soft-deletes a posting so existing referrals keep a valid target.
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}

	filter := bson.M{"_id": id}
	if claims.Role != auth.RoleAdmin {
		posterID, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
			return
		}
		filter["posted_by"] = posterID
	}

	res, err := h.jobs().UpdateOne(r.Context(), filter,
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		h.Log.Error("delete job failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not delete job")
		return
	}
	if res.MatchedCount == 0 {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "job not found or not yours to delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func paging(pageStr, limitStr string) (page, limit int) {
	page, _ = strconv.Atoi(pageStr)
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(limitStr)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// regexEscape quotes regex metacharacters in user-supplied filter text.
func regexEscape(s string) string {
	return regexp.QuoteMeta(s)
}
