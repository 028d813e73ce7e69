// Package auth implements account registration, login, and JWT-based
// request authentication for the recruitment platform.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/campushire/campushire/internal/crypto"
	"github.com/campushire/campushire/internal/db/mongodb"
	"github.com/campushire/campushire/internal/httputil"
	"github.com/campushire/campushire/internal/mailer"
	"github.com/campushire/campushire/internal/validate"
)

const usersCollection = "users"

// Handler is the shared dependency container for the auth feature.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Secret   string
	TokenTTL time.Duration
	Mail     *mailer.Mailer
}

// NewHandler constructs the auth Handler. Called from bootstrap once the
// database and logger are initialized.
func NewHandler(db *mongo.Database, logger *zap.Logger, secret string, tokenTTL time.Duration, mail *mailer.Mailer) *Handler {
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Handler{DB: db, Log: logger, Secret: secret, TokenTTL: tokenTTL, Mail: mail}
}

// Routes mounts the auth endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.Secret))
		r.Get("/me", h.me)
	})
}

func (h *Handler) users() *mongo.Collection {
	return h.DB.Collection(usersCollection)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Role     string `json:"role" validate:"required"`
	Headline string `json:"headline" validate:"omitempty,max=300"`
	Company  string `json:"company" validate:"omitempty,max=200"`
}

type tokenResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.BindJSON(r, &req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if !ValidRole(req.Role) {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", "role must be student or recruiter")
		return
	}

	hash, err := crypto.HashPassword(req.Password, nil)
	if err != nil {
		h.Log.Error("password hash failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not create account")
		return
	}

	now := time.Now().UTC()
	user := User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		Headline:     req.Headline,
		Company:      req.Company,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := h.users().InsertOne(r.Context(), user)
	if err != nil {
		if mongodb.IsDup(err) {
			httputil.JSONError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
			return
		}
		h.Log.Error("insert user failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not create account")
		return
	}
	user.ID = res.InsertedID.(primitive.ObjectID)

	token, err := IssueToken(h.Secret, user.ID.Hex(), user.Role, h.TokenTTL)
	if err != nil {
		h.Log.Error("token issue failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not create session")
		return
	}

	h.sendWelcome(r, &user)

	h.Log.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", user.Role))
	httputil.WriteJSON(w, http.StatusCreated, tokenResponse{Token: token, User: user})
}

// sendWelcome emails the new account holder. Delivery failures are
// logged, never surfaced to the registering user.
func (h *Handler) sendWelcome(r *http.Request, user *User) {
	if h.Mail == nil || !h.Mail.Enabled() {
		return
	}

	err := h.Mail.Send(r.Context(), mailer.Message{
		To:      []string{user.Email},
		Subject: "Welcome to CampusHire",
		TextBody: fmt.Sprintf("Hi %s,\n\nYour %s account is ready. Sign in to get started.",
			user.Name, user.Role),
	})
	if err != nil {
		h.Log.Warn("welcome email failed",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.BindJSON(r, &req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user User
	err := h.users().FindOne(r.Context(), bson.M{"email": email}).Decode(&user)
	if err != nil {
		// Same answer for unknown email and bad password.
		httputil.JSONError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
		return
	}
	if !user.Active {
		httputil.JSONError(w, http.StatusForbidden, "account_disabled", "this account has been deactivated")
		return
	}
	if err := crypto.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
		return
	}

	token, err := IssueToken(h.Secret, user.ID.Hex(), user.Role, h.TokenTTL)
	if err != nil {
		h.Log.Error("token issue failed", zap.Error(err))
		httputil.JSONError(w, http.StatusInternalServerError, "internal_error", "could not create session")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		httputil.JSONError(w, http.StatusUnauthorized, "unauthorized", "invalid subject")
		return
	}

	var user User
	if err := h.users().FindOne(r.Context(), bson.M{"_id": id}).Decode(&user); err != nil {
		httputil.JSONError(w, http.StatusNotFound, "not_found", "account not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}
