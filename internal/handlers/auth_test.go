package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/aivodrive/internal/auth"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/middleware"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *MockUserCollection) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestAuthService(t *testing.T) *auth.Service {
	t.Helper()
	authService, err := auth.NewService("handler-test-secret", time.Hour)
	require.NoError(t, err)
	return authService
}

func newTestAuthHandler(t *testing.T, authService *auth.Service, users *MockUserCollection) *AuthHandler {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewAuthHandler(authService, db.UserCollection(users), logger, false)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func withClaims(r *http.Request, user *models.User) *http.Request {
	claims := &models.Claims{UserID: user.ID.Hex(), Email: user.Email, Role: user.Role}
	return r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, claims))
}

func testUser(t *testing.T, authService *auth.Service, active bool) *models.User {
	t.Helper()
	passwordHash, err := authService.HashPassword("password123")
	require.NoError(t, err)
	return &models.User{
		ID:           primitive.NewObjectID(),
		Name:         "Test Admin",
		Email:        "test@example.com",
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
		IsActive:     active,
	}
}

func TestAuthHandler_Login(t *testing.T) {
	authService := newTestAuthService(t)

	t.Run("successful login", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, true)

		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(user, nil)
		users.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, models.LoginRequest{Email: "test@example.com", Password: "password123"}))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)

		var data models.LoginResponse
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.NotEmpty(t, data.Token)
		assert.Equal(t, user.Email, data.User.Email)
		assert.NotNil(t, data.User.LastLogin)

		claims, err := authService.ValidateToken(data.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), claims.UserID)

		users.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)

		users.On("FindUserByEmail", mock.Anything, "nobody@example.com").Return(nil, db.ErrNotFound)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, models.LoginRequest{Email: "nobody@example.com", Password: "wrongpassword"}))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", decodeEnvelope(t, w).Message)
		users.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, true)

		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(user, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, models.LoginRequest{Email: "test@example.com", Password: "not-the-password"}))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		users.AssertExpectations(t)
		users.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("inactive user", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, false)

		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(user, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, models.LoginRequest{Email: "test@example.com", Password: "password123"}))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Account is deactivated", decodeEnvelope(t, w).Message)
		users.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":""}`))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeEnvelope(t, w).Message, "email is required")
		users.AssertNotCalled(t, "FindUserByEmail", mock.Anything, mock.Anything)
	})

	t.Run("last login failure does not fail the login", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, true)

		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(user, nil)
		users.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(assert.AnError)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, models.LoginRequest{Email: "test@example.com", Password: "password123"}))
		w := httptest.NewRecorder()

		handler.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	authService := newTestAuthService(t)

	t.Run("successful registration", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)

		users.On("FindUserByEmail", mock.Anything, "new@example.com").Return(nil, db.ErrNotFound)
		users.On("InsertUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "new@example.com" && u.Role == models.RoleDispatcher && u.IsActive &&
				authService.CheckPassword("password123", u.PasswordHash)
		})).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, models.RegisterRequest{
			Name:     "New Dispatcher",
			Email:    "New@Example.com",
			Password: "password123",
			Role:     models.RoleDispatcher,
		}))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
		users.AssertExpectations(t)
	})

	t.Run("email already exists", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)

		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(testUser(t, authService, true), nil)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, models.RegisterRequest{
			Name:     "Duplicate",
			Email:    "test@example.com",
			Password: "password123",
			Role:     models.RoleDriver,
		}))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "email already exists", decodeEnvelope(t, w).Message)
		users.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("invalid role", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			bytes.NewBufferString(`{"name":"Bad Role","email":"bad@example.com","password":"password123","role":"owner"}`))
		w := httptest.NewRecorder()

		handler.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeEnvelope(t, w).Message, "role must be one of")
	})
}

func TestAuthHandler_Profile(t *testing.T) {
	authService := newTestAuthService(t)

	t.Run("get profile", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, true)

		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)

		req := withClaims(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil), user)
		w := httptest.NewRecorder()

		handler.GetProfile(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got models.User
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
		assert.Equal(t, user.Email, got.Email)
		users.AssertExpectations(t)
	})

	t.Run("no claims", func(t *testing.T) {
		handler := newTestAuthHandler(t, authService, new(MockUserCollection))

		w := httptest.NewRecorder()
		handler.GetProfile(w, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("update profile", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, true)

		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
		users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.MatchedBy(func(u models.User) bool {
			return u.Name == "Renamed Admin" && u.Phone == "+1 555 0100" && u.Email == "test@example.com"
		})).Return(nil)

		req := withClaims(httptest.NewRequest(http.MethodPut, "/api/auth/profile",
			bytes.NewBufferString(`{"name":"Renamed Admin","phone":"+1 555 0100"}`)), user)
		w := httptest.NewRecorder()

		handler.UpdateProfile(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("update to a taken email", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, true)

		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
		users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.Anything).
			Return(&db.DuplicateKeyError{Field: "email"})

		req := withClaims(httptest.NewRequest(http.MethodPut, "/api/auth/profile",
			bytes.NewBufferString(`{"email":"taken@example.com"}`)), user)
		w := httptest.NewRecorder()

		handler.UpdateProfile(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "email already exists", decodeEnvelope(t, w).Message)
	})
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	authService := newTestAuthService(t)

	t.Run("successful change", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, true)

		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
		users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.MatchedBy(func(u models.User) bool {
			return authService.CheckPassword("newpassword456", u.PasswordHash)
		})).Return(nil)

		req := withClaims(httptest.NewRequest(http.MethodPut, "/api/auth/password", jsonBody(t, models.PasswordChange{
			CurrentPassword: "password123",
			NewPassword:     "newpassword456",
		})), user)
		w := httptest.NewRecorder()

		handler.ChangePassword(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		users := new(MockUserCollection)
		handler := newTestAuthHandler(t, authService, users)
		user := testUser(t, authService, true)

		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)

		req := withClaims(httptest.NewRequest(http.MethodPut, "/api/auth/password", jsonBody(t, models.PasswordChange{
			CurrentPassword: "not-my-password",
			NewPassword:     "newpassword456",
		})), user)
		w := httptest.NewRecorder()

		handler.ChangePassword(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		users.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})
}
