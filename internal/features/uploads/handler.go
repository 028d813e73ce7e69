// Package uploads stores resumes and other application documents. File
// bytes go to the configured storage backend, metadata to Mongo.
package uploads

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/features/auth"
	"github.com/campushire/campushire/internal/httputil"
	"github.com/campushire/campushire/internal/storage"
)

const uploadsCollection = "uploads"

// allowedExtensions are the document formats accepted for upload.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".odt":  true,
	".rtf":  true,
	".txt":  true,
	".md":   true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Handler is the shared dependency container for the uploads feature.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Secret   string
	Store    storage.Store
	MaxBytes int64
}

func NewHandler(db *mongo.Database, logger *zap.Logger, secret string, store storage.Store, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Handler{DB: db, Log: logger, Secret: secret, Store: store, MaxBytes: maxBytes}
}

// Routes mounts the upload endpoints. All require authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Use(auth.RequireAuth(h.Secret))
	r.Post("/", h.upload)
	r.Get("/", h.list)
	r.Get("/{id}", h.download)
	r.Delete("/{id}", h.remove)
}

func (h *Handler) uploads() *mongo.Collection {
	return h.DB.Collection(uploadsCollection)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	ownerID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		httputil.JSONError(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		httputil.JSONError(w, http.StatusUnsupportedMediaType, "unsupported_type", "file type not accepted")
		return
	}

	objectPath, err := newObjectPath(ownerID, ext)
	if err != nil {
		h.Log.Error("object path generation failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not store file")
		return
	}

	if err := h.Store.Put(r.Context(), objectPath, file); err != nil {
		h.Log.Error("store upload failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not store file")
		return
	}

	info, err := h.Store.Head(r.Context(), objectPath)
	if err != nil {
		h.Log.Error("stat upload failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not store file")
		return
	}

	up := Upload{
		OwnerID:     ownerID,
		Filename:    filepath.Base(header.Filename),
		Path:        objectPath,
		ContentType: info.ContentType,
		Size:        info.Size,
		CreatedAt:   time.Now().UTC(),
	}
	res, err := h.uploads().InsertOne(r.Context(), up)
	if err != nil {
		// Metadata insert failed, do not leave an orphan object behind.
		if derr := h.Store.Delete(r.Context(), objectPath); derr != nil {
			h.Log.Warn("orphan cleanup failed", zap.String("path", objectPath), zap.Error(derr))
		}
		h.Log.Error("insert upload metadata failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not store file")
		return
	}
	up.ID = res.InsertedID.(primitive.ObjectID)

	h.Log.Info("file uploaded",
		zap.String("upload_id", up.ID.Hex()),
		zap.Int64("size", up.Size))
	httputil.WriteJSON(w, http.StatusCreated, up)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	ownerID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(100)
	cur, err := h.uploads().Find(r.Context(), bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		h.Log.Error("find uploads failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list uploads")
		return
	}
	defer cur.Close(r.Context())

	ups := make([]Upload, 0)
	if err := cur.All(r.Context(), &ups); err != nil {
		h.Log.Error("decode uploads failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not list uploads")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"uploads": ups})
}

// download streams the file. Owners and admins may fetch it.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	up, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	rc, info, err := h.Store.GetWithInfo(r.Context(), up.Path)
	if err != nil {
		if err == storage.ErrNotFound {
			httputil.JSONError(w, http.StatusNotFound, "not_found", "file not found")
			return
		}
		h.Log.Error("open upload failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not read file")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", up.Filename))
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("stream upload interrupted", zap.Error(err))
	}
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	up, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if _, err := h.uploads().DeleteOne(r.Context(), bson.M{"_id": up.ID}); err != nil {
		h.Log.Error("delete upload metadata failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not delete file")
		return
	}
	if err := h.Store.Delete(r.Context(), up.Path); err != nil && err != storage.ErrNotFound {
		h.Log.Warn("delete stored object failed", zap.String("path", up.Path), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadOwned resolves the upload in the URL and enforces ownership.
// Admins may access any upload.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (*Upload, bool) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", "invalid upload id")
		return nil, false
	}

	filter := bson.M{"_id": id}
	if claims.Role != auth.RoleAdmin {
		ownerID, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
			return nil, false
		}
		filter["owner_id"] = ownerID
	}

	var up Upload
	if err := h.uploads().FindOne(r.Context(), filter).Decode(&up); err != nil {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "upload not found")
		return nil, false
	}
	return &up, true
}

// newObjectPath builds a collision-free storage path under the owner's
// prefix. The random component keeps original filenames out of paths.
func newObjectPath(ownerID primitive.ObjectID, ext string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("uploads/%s/%s%s", ownerID.Hex(), hex.EncodeToString(buf), ext), nil
}
