package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mpetrashov/projecthub/internal/middleware"
	"github.com/mpetrashov/projecthub/internal/models"
	"github.com/mpetrashov/projecthub/internal/repo"
	"github.com/mpetrashov/projecthub/internal/service"
	"github.com/mpetrashov/projecthub/internal/tokens"
)

type testEnv struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Project{}))

	rp := repo.GormRepo{DB: db}
	codec := tokens.NewCodec([]byte("test-jwt-secret"), jwt.SigningMethodHS256)

	authSvc := &service.AuthService{
		Repo:       rp,
		Codec:      codec,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	projectSvc := &service.ProjectService{Repo: rp}

	e := echo.New()
	Register(e, &Deps{
		Auth:     &AuthHTTP{Svc: authSvc},
		Projects: &ProjectHTTP{Svc: projectSvc},
		AuthMW:   middleware.NewSimpleAuth(codec, rp),
	})

	return &testEnv{t: t, e: e, db: db}
}

func (env *testEnv) doJSON(method, path string, body any, bearer string) *httptest.ResponseRecorder {
	env.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(env.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodePair(t *testing.T, rec *httptest.ResponseRecorder) (access, refresh string) {
	t.Helper()

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)
	require.NotEmpty(t, body.RefreshToken)
	assert.Equal(t, "bearer", body.TokenType)
	return body.AccessToken, body.RefreshToken
}

func TestAuthFlow_RegisterLoginRefreshReplay(t *testing.T) {
	env := newTestEnv(t)
	creds := map[string]string{"email": "a@x.com", "password": "secret1"}

	rec := env.doJSON(http.MethodPost, "/auth/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var user struct {
		ID        uint      `json:"id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.NotZero(t, user.ID)
	assert.Equal(t, "a@x.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())

	rec = env.doJSON(http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	access, refresh := decodePair(t, rec)
	assert.NotEqual(t, access, refresh)

	rec = env.doJSON(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, newRefresh := decodePair(t, rec)
	assert.NotEqual(t, refresh, newRefresh)

	// the consumed refresh token must not work a second time
	rec = env.doJSON(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": newRefresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow_RegisterDuplicateAndValidation(t *testing.T) {
	env := newTestEnv(t)
	creds := map[string]string{"email": "a@x.com", "password": "secret1"}

	rec := env.doJSON(http.MethodPost, "/auth/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.doJSON(http.MethodPost, "/auth/register", creds, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	rec = env.doJSON(http.MethodPost, "/auth/register", map[string]string{"email": "b@x.com", "password": "short"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthFlow_LoginFailures(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(http.MethodPost, "/auth/register", map[string]string{"email": "a@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	recUnknown := env.doJSON(http.MethodPost, "/auth/login", map[string]string{"email": "b@x.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusUnauthorized, recUnknown.Code)

	recWrong := env.doJSON(http.MethodPost, "/auth/login", map[string]string{"email": "a@x.com", "password": "wrong-pass"}, "")
	require.Equal(t, http.StatusUnauthorized, recWrong.Code)

	// unknown email and wrong password produce the same response body
	assert.Equal(t, recUnknown.Body.String(), recWrong.Body.String())
}

func TestAuthFlow_Logout(t *testing.T) {
	env := newTestEnv(t)
	creds := map[string]string{"email": "a@x.com", "password": "secret1"}

	env.doJSON(http.MethodPost, "/auth/register", creds, "")
	rec := env.doJSON(http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, refresh := decodePair(t, rec)

	rec = env.doJSON(http.MethodPost, "/auth/logout", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// logging out again is still fine, malformed tokens are not
	rec = env.doJSON(http.MethodPost, "/auth/logout", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(http.MethodPost, "/auth/logout", map[string]string{"refresh_token": "not-a-valid-jwt"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutes_RequireAccessToken(t *testing.T) {
	env := newTestEnv(t)
	creds := map[string]string{"email": "a@x.com", "password": "secret1"}

	env.doJSON(http.MethodPost, "/auth/register", creds, "")
	rec := env.doJSON(http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	access, refresh := decodePair(t, rec)

	rec = env.doJSON(http.MethodGet, "/projects", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// a refresh token must never authenticate a request
	rec = env.doJSON(http.MethodGet, "/projects", nil, refresh)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSON(http.MethodPost, "/projects", map[string]string{"name": "my project", "description": "hello"}, access)
	require.Equal(t, http.StatusCreated, rec.Code)

	var project models.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))
	require.NotZero(t, project.ID)

	rec = env.doJSON(http.MethodGet, "/projects", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProjectOwnership_OverHTTP(t *testing.T) {
	env := newTestEnv(t)

	env.doJSON(http.MethodPost, "/auth/register", map[string]string{"email": "owner@x.com", "password": "secret1"}, "")
	env.doJSON(http.MethodPost, "/auth/register", map[string]string{"email": "stranger@x.com", "password": "secret1"}, "")

	rec := env.doJSON(http.MethodPost, "/auth/login", map[string]string{"email": "owner@x.com", "password": "secret1"}, "")
	ownerAccess, _ := decodePair(t, rec)
	rec = env.doJSON(http.MethodPost, "/auth/login", map[string]string{"email": "stranger@x.com", "password": "secret1"}, "")
	strangerAccess, _ := decodePair(t, rec)

	rec = env.doJSON(http.MethodPost, "/projects", map[string]string{"name": "owner project"}, ownerAccess)
	require.Equal(t, http.StatusCreated, rec.Code)
	var project models.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))

	url := "/projects/" + strconv.FormatUint(uint64(project.ID), 10)

	rec = env.doJSON(http.MethodGet, url, nil, strangerAccess)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.doJSON(http.MethodGet, url, nil, ownerAccess)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(http.MethodDelete, url, nil, strangerAccess)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.doJSON(http.MethodDelete, url, nil, ownerAccess)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.doJSON(http.MethodGet, url, nil, ownerAccess)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
