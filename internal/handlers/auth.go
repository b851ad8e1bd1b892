package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/auth"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/middleware"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	errorWriter
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, logger *log.Logger, dev bool) *AuthHandler {
	return &AuthHandler{
		errorWriter:    newErrorWriter(logger, dev),
		authService:    authService,
		userCollection: userCollection,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeRequest(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.userCollection.FindUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, db.ErrNotFound) {
		response.Error(w, http.StatusUnauthorized, "Invalid credentials", "")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !user.IsActive {
		response.Error(w, http.StatusUnauthorized, "Account is deactivated", "")
		return
	}

	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		response.Error(w, http.StatusUnauthorized, "Invalid credentials", "")
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		// a stale lastLogin does not fail the login
		h.log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	} else {
		now := time.Now()
		user.LastLogin = &now
	}

	response.Success(w, http.StatusOK, "Login successful", models.LoginResponse{
		Token: token,
		User:  *user,
	})
}

// Register creates a user account of any role. The route is admin-only.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeRequest(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	_, err := h.userCollection.FindUserByEmail(r.Context(), email)
	if err == nil {
		response.Error(w, http.StatusBadRequest, "email already exists", "")
		return
	}
	if !errors.Is(err, db.ErrNotFound) {
		h.writeError(w, r, err)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user := &models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		Phone:        req.Phone,
		IsActive:     true,
	}
	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusCreated, "User registered successfully", user)
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	response.Success(w, http.StatusOK, "Profile retrieved successfully", user)
}

// UpdateProfile updates the current user's name, email and phone
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd models.ProfileUpdate
	if err := decodeRequest(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Phone != nil {
		user.Phone = *upd.Phone
	}

	if err := h.userCollection.UpdateUser(r.Context(), user.ID.Hex(), *user); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Profile updated successfully", user)
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordChange
	if err := decodeRequest(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if !h.authService.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		response.Error(w, http.StatusBadRequest, "Current password is incorrect", "")
		return
	}

	hash, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user.PasswordHash = hash

	if err := h.userCollection.UpdateUser(r.Context(), user.ID.Hex(), *user); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Password changed successfully", nil)
}

// currentUser loads the account behind the request's token. It writes the
// error response itself and reports whether the caller may continue.
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Not authenticated", "")
		return nil, false
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "User not found", "")
		return nil, false
	}
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return user, true
}
