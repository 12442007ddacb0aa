package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func setupHandler() (*gin.Engine, *MockUserRepository) {
	router, mockRepo, _ := setupHandlerWithTokens()
	return router, mockRepo
}

func setupHandlerWithTokens() (*gin.Engine, *MockUserRepository, *services.TokenService) {
	gin.SetMode(gin.TestMode)

	mockRepo := new(MockUserRepository)
	tokens := services.NewTokenService("handler-secret", "kanso-test", time.Minute, time.Hour, mockRepo)
	authService := services.NewAuthService(mockRepo, tokens)
	authHandler := NewAuthHandler(authService, tokens)

	router := gin.New()
	authHandler.RegisterRoutes(router.Group(""))

	return router, mockRepo, tokens
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("Success: Should return 201 and created user (No Password)", func(t *testing.T) {
		router, mockRepo := setupHandler()

		payload := map[string]string{
			"email":    "api_test@kanso.app",
			"password": "PasswordSuperSegreta1!",
		}
		body, _ := json.Marshal(payload)

		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response userResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, payload["email"], response.Email)
		assert.NotEmpty(t, response.ID)

		assert.NotContains(t, w.Body.String(), "password")

		mockRepo.AssertExpectations(t)
	})

	t.Run("Fail: Should return 400 for Bad JSON (Invalid Email)", func(t *testing.T) {
		router, mockRepo := setupHandler()

		payload := map[string]string{
			"email":    "not-an-email",
			"password": "Password123!",
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Fail: Should return 400 for Bad JSON (Password too short)", func(t *testing.T) {
		router, mockRepo := setupHandler()

		payload := map[string]string{
			"email":    "valid@email.com",
			"password": "short",
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("Fail: Should return 409 Conflict if email exists", func(t *testing.T) {
		router, mockRepo := setupHandler()

		payload := map[string]string{
			"email":    "duplicate@kanso.app",
			"password": "PasswordValidissima!",
		}
		body, _ := json.Marshal(payload)

		mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrEmailAlreadyExists)

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "email already exists")
	})

	t.Run("Fail: Should return 500 Internal Server Error on DB failure", func(t *testing.T) {
		router, mockRepo := setupHandler()

		payload := map[string]string{
			"email":    "crash@kanso.app",
			"password": "PasswordValidissima!",
		}
		body, _ := json.Marshal(payload)

		mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db connection lost"))

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal server error")
	})
	t.Run("Success: Telegram chat id is stored and echoed", func(t *testing.T) {
		router, mockRepo := setupHandler()

		body := `{"email":"tg@kanso.app","password":"PasswordValidissima!","username":"giacomo","tg_chat_id":"987654321"}`

		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.TelegramChatID != nil && *u.TelegramChatID == "987654321"
		})).Return(nil)

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"tg_chat_id":"987654321"`)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Fail: Should return 400 for a username instead of a chat id", func(t *testing.T) {
		router, mockRepo := setupHandler()

		body := `{"email":"tg@kanso.app","password":"PasswordValidissima!","tg_chat_id":"@giacomo"}`

		req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockRepo.AssertNotCalled(t, "Create")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	user, err := domain.NewUser("user-1", "login@kanso.app")
	assert.NoError(t, err)
	assert.NoError(t, user.SetPassword("PasswordValidissima!"))

	t.Run("Success: Should return a token pair", func(t *testing.T) {
		router, mockRepo, tokens := setupHandlerWithTokens()
		mockRepo.On("GetByEmail", mock.Anything, "login@kanso.app").Return(user, nil)
		mockRepo.On("GetByID", mock.Anything, "user-1").Return(user, nil)

		body := `{"email":"Login@Kanso.app","password":"PasswordValidissima!"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var pair services.TokenPair
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
		userID, err := tokens.ValidateToken(pair.Access)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("Fail: Should return 401 for a wrong password", func(t *testing.T) {
		router, mockRepo := setupHandler()
		mockRepo.On("GetByEmail", mock.Anything, "login@kanso.app").Return(user, nil)

		body := `{"email":"login@kanso.app","password":"wrong-password"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid credentials")
	})

	t.Run("Fail: Should return 401 for an unknown email", func(t *testing.T) {
		router, mockRepo := setupHandler()
		mockRepo.On("GetByEmail", mock.Anything, "ghost@kanso.app").Return(nil, domain.ErrUserNotFound)

		body := `{"email":"ghost@kanso.app","password":"PasswordValidissima!"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("Success: Refresh token yields a new pair", func(t *testing.T) {
		router, mockRepo, tokens := setupHandlerWithTokens()
		mockRepo.On("GetByID", mock.Anything, "user-1").Return(&domain.User{ID: "user-1"}, nil)

		pair, err := tokens.GeneratePair("user-1")
		assert.NoError(t, err)

		body, _ := json.Marshal(map[string]string{"refresh": pair.Refresh})
		req, _ := http.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"access":`)
	})

	t.Run("Fail: Access token is not accepted", func(t *testing.T) {
		router, _, tokens := setupHandlerWithTokens()

		access, err := tokens.GenerateToken("user-1")
		assert.NoError(t, err)

		body, _ := json.Marshal(map[string]string{"refresh": access})
		req, _ := http.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewBuffer(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
