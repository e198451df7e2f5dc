package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoride/backend/internal/config"
	"github.com/ecoride/backend/internal/middleware"
	"github.com/ecoride/backend/internal/models"
)

func setAuthTestConfig(t *testing.T) {
	t.Helper()
	viper.Set("jwt.secret_key", "test-secret-key")
	viper.Set("jwt.expiry_hours", 1)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 8*1024)
	viper.Set("argon2.threads", 1)
	viper.Set("argon2.key_length", 32)
	viper.Set("argon2.salt_length", 16)
}

func TestPasswordHashing(t *testing.T) {
	setAuthTestConfig(t)

	t.Run("hash verifies against the original password", func(t *testing.T) {
		hashed, err := hashPassword("password123")
		require.NoError(t, err)
		assert.True(t, verifyPassword("password123", hashed))
	})

	t.Run("wrong password fails verification", func(t *testing.T) {
		hashed, err := hashPassword("password123")
		require.NoError(t, err)
		assert.False(t, verifyPassword("password124", hashed))
	})

	t.Run("two hashes of one password differ by salt", func(t *testing.T) {
		first, err := hashPassword("password123")
		require.NoError(t, err)
		second, err := hashPassword("password123")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("malformed stored hash fails closed", func(t *testing.T) {
		assert.False(t, verifyPassword("password123", "not-a-valid-hash"))
	})
}

func TestAuthService_Register(t *testing.T) {
	setAuthTestConfig(t)
	cfg := &config.BookingConfig{SignupGrantCredits: 20, PlatformFeeCredits: 2, MaxSeatsPerBooking: 8}

	t.Run("creates the user and grants welcome credits together", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("roadrunner", "user@example.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery("UPDATE users SET credits = credits \\+ \\$1").
			WithArgs(int64(20), sqlmock.AnyArg(), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(20))
		mock.ExpectExec("INSERT INTO credit_transactions").
			WithArgs(sqlmock.AnyArg(), int64(1), int64(20), models.TxKindCredit,
				models.TxRefAccount, int64(1), int64(20), "Welcome credits", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		service := NewAuthService(db, nil, cfg)
		body := `{"pseudo":"roadrunner","email":"User@Example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, int64(1), resp.User.ID)
		assert.Equal(t, "user@example.com", resp.User.Email)
		assert.Equal(t, int64(20), resp.User.Credits)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a short password before touching the database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewAuthService(db, nil, cfg)
		body := `{"pseudo":"roadrunner","email":"user@example.com","password":"short"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		service := NewAuthService(db, nil, cfg)
		body := `{"pseudo":"roadrunner","email":"user@example.com","password":"password123","admin":true}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email rolls back and conflicts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("roadrunner", "user@example.com", sqlmock.AnyArg()).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		service := NewAuthService(db, nil, cfg)
		body := `{"pseudo":"roadrunner","email":"user@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_Login(t *testing.T) {
	setAuthTestConfig(t)
	cfg := &config.BookingConfig{SignupGrantCredits: 20}

	t.Run("valid credentials return a token", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		hashed, err := hashPassword("password123")
		require.NoError(t, err)

		mock.ExpectQuery("FROM users WHERE email = \\$1").
			WithArgs("user@example.com").
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "pseudo", "email", "password_hash", "role", "credits"}).
				AddRow(1, "roadrunner", "user@example.com", hashed, "user", 20))
		mock.ExpectExec("UPDATE users SET last_login").
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		service := NewAuthService(db, nil, cfg)
		body := `{"email":"user@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "roadrunner", resp.User.Pseudo)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		hashed, err := hashPassword("password123")
		require.NoError(t, err)

		mock.ExpectQuery("FROM users WHERE email = \\$1").
			WithArgs("user@example.com").
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "pseudo", "email", "password_hash", "role", "credits"}).
				AddRow(1, "roadrunner", "user@example.com", hashed, "user", 20))

		service := NewAuthService(db, nil, cfg)
		body := `{"email":"user@example.com","password":"wrong-password"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown email is unauthorized", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM users WHERE email = \\$1").
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		service := NewAuthService(db, nil, cfg)
		body := `{"email":"nobody@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_Logout(t *testing.T) {
	setAuthTestConfig(t)

	t.Run("denylists the bearer token until expiry", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		redisMock.ExpectSet("denylist:some-jwt-token", "1", time.Hour).SetVal("OK")

		service := NewAuthService(nil, redisClient, &config.BookingConfig{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer some-jwt-token")
		w := httptest.NewRecorder()

		service.Logout(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("succeeds without Redis", func(t *testing.T) {
		service := NewAuthService(nil, nil, &config.BookingConfig{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer some-jwt-token")
		w := httptest.NewRecorder()

		service.Logout(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthService_GetAccount(t *testing.T) {
	setAuthTestConfig(t)

	t.Run("returns the caller's profile and balance", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM users WHERE id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "pseudo", "email", "role", "credits", "created_at"}).
				AddRow(7, "roadrunner", "user@example.com", "user", 50, time.Now()))

		service := NewAuthService(db, nil, &config.BookingConfig{})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/account", nil)
		req = req.WithContext(middleware.WithUserID(req.Context(), 7))
		w := httptest.NewRecorder()

		service.GetAccount(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var user models.User
		require.NoError(t, json.NewDecoder(w.Body).Decode(&user))
		assert.Equal(t, int64(50), user.Credits)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing caller context is unauthorized", func(t *testing.T) {
		service := NewAuthService(nil, nil, &config.BookingConfig{})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/account", nil)
		w := httptest.NewRecorder()

		service.GetAccount(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
