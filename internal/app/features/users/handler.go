// internal/app/features/users/handler.go
package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	userstore "github.com/knowledgeconnect/knowledgeconnect/internal/app/store/users"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/auth"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/authz"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/httpjson"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/ratelimit"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/timeouts"
	"github.com/knowledgeconnect/knowledgeconnect/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the users feature.
type Handler struct {
	Users  *userstore.Store
	Tokens *auth.TokenManager
	Logins *ratelimit.LoginLimiter
	Log    *zap.Logger
}

// NewHandler constructs a users Handler. It is typically called from the
// bootstrap BuildHandler function.
func NewHandler(db *mongo.Database, tokens *auth.TokenManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:  userstore.New(db),
		Tokens: tokens,
		Logins: ratelimit.NewLoginLimiter(),
		Log:    logger,
	}
}

// authResponse is returned by register and login: the user plus a
// bearer token for subsequent requests.
type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type registerRequest struct {
	FullName       string   `json:"fullName"`
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	StudentEmail   string   `json:"studentEmail"`
	InstituteName  string   `json:"instituteName"`
	Country        string   `json:"country"`
	Location       string   `json:"location"`
	Qualification  string   `json:"qualification"`
	Course         string   `json:"course"`
	Expertise      []string `json:"expertise"`
	ProfilePicture string   `json:"profilePicture"`
	Bio            string   `json:"bio"`
}

// HandleRegister handles POST /api/users/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Users.Create(ctx, models.User{
		FullName:       req.FullName,
		Email:          req.Email,
		StudentEmail:   req.StudentEmail,
		InstituteName:  req.InstituteName,
		Country:        req.Country,
		Location:       req.Location,
		Qualification:  req.Qualification,
		Course:         req.Course,
		Expertise:      req.Expertise,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
	}, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail),
			errors.Is(err, userstore.ErrMissingFields),
			errors.Is(err, userstore.ErrShortPassword):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}

	token, err := h.Tokens.Issue(created.ID.Hex())
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("user registered", zap.String("user_id", created.ID.Hex()))
	httpjson.Write(w, http.StatusCreated, authResponse{User: created, Token: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/users/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpjson.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if ok, reason := h.Logins.Check(r, req.Email); !ok {
		httpjson.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, userstore.ErrInvalidCredentials) {
			httpjson.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		httpjson.Internal(w, h.Log, err)
		return
	}

	h.Logins.ResetEmail(req.Email)

	token, err := h.Tokens.Issue(user.ID.Hex())
	if err != nil {
		httpjson.Internal(w, h.Log, err)
		return
	}

	httpjson.Write(w, http.StatusOK, authResponse{User: *user, Token: token})
}

// ServeProfile handles GET /api/users/profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			httpjson.Error(w, http.StatusNotFound, "user not found")
			return
		}
		httpjson.Internal(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, user)
}

// HandleUpdateProfile handles PUT /api/users/profile. The body is an
// allow-listed patch; unknown fields are rejected.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var upd userstore.ProfileUpdate
	if err := dec.Decode(&upd); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid update: unrecognized or malformed fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		case err == mongo.ErrNoDocuments:
			httpjson.Error(w, http.StatusNotFound, "user not found")
		default:
			httpjson.Internal(w, h.Log, err)
		}
		return
	}
	httpjson.Write(w, http.StatusOK, user)
}
