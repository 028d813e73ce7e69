// Package admin exposes the operator surface: account management, posting
// moderation, and database diagnostics.
package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/db/mongodb"
	"github.com/campushire/campushire/internal/features/auth"
	"github.com/campushire/campushire/internal/httputil"
)

const (
	usersCollection = "users"
	jobsCollection  = "jobs"
)

// Handler is the shared dependency container for the admin feature.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	Secret  string
	Manager *mongodb.Manager
}

func NewHandler(db *mongo.Database, logger *zap.Logger, secret string, mgr *mongodb.Manager) *Handler {
	return &Handler{DB: db, Log: logger, Secret: secret, Manager: mgr}
}

// Routes mounts the admin endpoints. Everything requires the admin role.
func (h *Handler) Routes(r chi.Router) {
	r.Use(auth.RequireAuth(h.Secret))
	r.Use(auth.RequireRole(auth.RoleAdmin))
	r.Get("/users", h.listUsers)
	r.Post("/users/{id}/deactivate", h.setUserActive(false))
	r.Post("/users/{id}/activate", h.setUserActive(true))
	r.Post("/jobs/{id}/deactivate", h.deactivateJob)
	r.Get("/diagnostics", h.diagnostics)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := bson.M{}
	switch role := q.Get("role"); role {
	case "":
	case auth.RoleStudent, auth.RoleRecruiter, auth.RoleAdmin:
		filter["role"] = role
	default:
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "unknown role filter")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	const pageSize = 50

	total, err := h.DB.Collection(usersCollection).CountDocuments(r.Context(), filter)
	if err != nil {
		h.Log.Error("count users failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list users")
		return
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(pageSize)
	cur, err := h.DB.Collection(usersCollection).Find(r.Context(), filter, opts)
	if err != nil {
		h.Log.Error("find users failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list users")
		return
	}
	defer cur.Close(r.Context())

	users := make([]auth.User, 0, pageSize)
	if err := cur.All(r.Context(), &users); err != nil {
		h.Log.Error("decode users failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": total,
		"page":  page,
		"limit": pageSize,
	})
}

func (h *Handler) setUserActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())

		id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
		if err != nil {
			httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid user id")
			return
		}
		if !active && id.Hex() == claims.Subject {
			httputil.JSONError(w, http.StatusBadRequest, "bad_request", "cannot deactivate your own account")
			return
		}

		res, err := h.DB.Collection(usersCollection).UpdateOne(r.Context(),
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"active": active, "updated_at": time.Now().UTC()}})
		if err != nil {
			h.Log.Error("update user failed", zap.Error(err))
			httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not update user")
			return
		}
		if res.MatchedCount == 0 {
			httputil.JSONError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}

		h.Log.Info("user active flag changed",
			zap.String("user_id", id.Hex()),
			zap.Bool("active", active),
			zap.String("by", claims.Subject))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) deactivateJob(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid job id")
		return
	}

	res, err := h.DB.Collection(jobsCollection).UpdateOne(r.Context(),
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		h.Log.Error("deactivate job failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not update job")
		return
	}
	if res.MatchedCount == 0 {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type diagnosticsResponse struct {
	ReadyState  string   `json:"readyState"`
	DBConnected bool     `json:"dbConnected"`
	Attempts    int64    `json:"attempts"`
	LastError   string   `json:"lastError,omitempty"`
	ErrorKind   string   `json:"errorKind,omitempty"`
	Collections []string `json:"collections,omitempty"`
}

// diagnostics reports connection manager state and, when connected, the
// collections visible in the database. Unlike /health this runs a live
// round trip and may attempt a connection.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	resp := diagnosticsResponse{
		ReadyState:  h.Manager.State().String(),
		DBConnected: h.Manager.Connected(),
		Attempts:    h.Manager.Attempts(),
	}
	if lastErr := h.Manager.LastError(); lastErr != nil {
		resp.LastError = lastErr.Error()
		var derr *mongodb.Error
		if errors.As(lastErr, &derr) {
			resp.ErrorKind = derr.Kind.String()
		}
	}

	if resp.DBConnected {
		names, err := h.DB.ListCollectionNames(r.Context(), bson.M{})
		if err != nil {
			h.Log.Warn("list collections failed", zap.Error(err))
		} else {
			resp.Collections = names
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
