// Package messages implements direct messaging between accounts.
package messages

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
	"github.com/campushire/campushire/internal/validate"
)

const (
	messagesCollection = "messages"
	usersCollection    = "users"
)

// Handler is the shared dependency container for the messages feature.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	Secret string
}

func NewHandler(db *mongo.Database, logger *zap.Logger, secret string) *Handler {
	return &Handler{DB: db, Log: logger, Secret: secret}
}

// Routes mounts the messaging endpoints. All require authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Use(auth.RequireAuth(h.Secret))
	r.Post("/", h.send)
	r.Get("/inbox", h.inbox)
	r.Get("/with/{userId}", h.conversation)
	r.Post("/{id}/read", h.markRead)
}

func (h *Handler) messages() *mongo.Collection {
	return h.DB.Collection(messagesCollection)
}

type sendRequest struct {
	To   string `json:"to" validate:"required,len=24,hexadecimal"`
	Body string `json:"body" validate:"required,min=1,max=10000"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req sendRequest
	if err := httputil.BindJSON(r, &req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	fromID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}
	toID, err := primitive.ObjectIDFromHex(req.To)
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid recipient id")
		return
	}
	if toID == fromID {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "cannot message yourself")
		return
	}

	count, err := h.DB.Collection(usersCollection).CountDocuments(r.Context(),
		bson.M{"_id": toID, "active": true})
	if err != nil {
		h.Log.Error("recipient lookup failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not send message")
		return
	}
	if count == 0 {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "recipient not found")
		return
	}

	msg := Message{
		FromID:    fromID,
		ToID:      toID,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	res, err := h.messages().InsertOne(r.Context(), msg)
	if err != nil {
		h.Log.Error("insert message failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not send message")
		return
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)

	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// inbox returns the most recent messages addressed to the caller.
func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	uid, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}

	filter := bson.M{"to_id": uid}
	if r.URL.Query().Get("unread") == "true" {
		filter["read_at"] = bson.M{"$exists": false}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	cur, err := h.messages().Find(r.Context(), filter, opts)
	if err != nil {
		h.Log.Error("find inbox failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not load inbox")
		return
	}
	defer cur.Close(r.Context())

	msgs := make([]Message, 0)
	if err := cur.All(r.Context(), &msgs); err != nil {
		h.Log.Error("decode inbox failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not load inbox")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// conversation returns the full two-way thread with another account,
// oldest first.
func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	uid, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}
	other, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	filter := bson.M{"$or": bson.A{
		bson.M{"from_id": uid, "to_id": other},
		bson.M{"from_id": other, "to_id": uid},
	}}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(500)
	cur, err := h.messages().Find(r.Context(), filter, opts)
	if err != nil {
		h.Log.Error("find conversation failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not load conversation")
		return
	}
	defer cur.Close(r.Context())

	msgs := make([]Message, 0)
	if err := cur.All(r.Context(), &msgs); err != nil {
		h.Log.Error("decode conversation failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not load conversation")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// markRead stamps a received message as read. Only the recipient may do it.
func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	uid, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid message id")
		return
	}

	res, err := h.messages().UpdateOne(r.Context(),
		bson.M{"_id": id, "to_id": uid, "read_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"read_at": time.Now().UTC()}})
	if err != nil {
		h.Log.Error("mark read failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not update message")
		return
	}
	if res.MatchedCount == 0 {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "message not found or already read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
