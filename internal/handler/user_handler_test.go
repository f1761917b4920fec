package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/GoArmGo/VideoTube/internal/auth"
	"github.com/GoArmGo/VideoTube/internal/database/memory"
	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/GoArmGo/VideoTube/internal/handler"
	"github.com/GoArmGo/VideoTube/internal/logger"
	"github.com/GoArmGo/VideoTube/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// localBlobStore mimics the media host: it consumes the local file.
type localBlobStore struct{}

func (localBlobStore) Upload(ctx context.Context, localPath string) (*domain.Blob, error) {
	if localPath == "" {
		return nil, nil
	}
	defer os.Remove(localPath)
	if _, err := os.Stat(localPath); err != nil {
		return nil, err
	}
	return &domain.Blob{URL: "http://media.local/" + localPath, PublicID: localPath}, nil
}

func (localBlobStore) Delete(ctx context.Context, publicID string) error { return nil }

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Detail     string          `json:"detail"`
}

type testServer struct {
	handler   http.Handler
	store     *memory.Store
	uploadDir string
}

func newTestServer(t *testing.T, development bool) *testServer {
	t.Helper()
	codec, err := auth.NewCodec(
		auth.SigningKey{Secret: []byte("access-secret"), TTL: 15 * time.Minute},
		auth.SigningKey{Secret: []byte("refresh-secret"), TTL: 240 * time.Hour},
	)
	require.NoError(t, err)

	store := memory.NewStore()
	log := logger.Discard()
	sessions := usecase.NewSessionUseCase(store, localBlobStore{}, nil, codec, auth.NewBcryptHasher(bcrypt.MinCost), log)
	channels := usecase.NewChannelUseCase(store, log)

	uploadDir := t.TempDir()
	h := handler.NewUserHandler(sessions, channels, handler.Options{
		CookieSecure:   true,
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     240 * time.Hour,
		UploadTempDir:  uploadDir,
		MaxUploadBytes: 1 << 20,
		Development:    development,
	}, log)

	return &testServer{handler: handler.NewRouter(h, log, 5*time.Second), store: store, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func registerRequest(t *testing.T, fields map[string]string, withAvatar bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withAvatar {
		fw, err := mw.CreateFormFile("avatar", "me.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("png-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func aliceForm() map[string]string {
	return map[string]string{
		"username": "Alice",
		"email":    "alice@example.com",
		"fullName": "Alice Liddell",
		"password": "wonderland",
	}
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (s *testServer) registerAndLogin(t *testing.T) (access, refresh *http.Cookie) {
	t.Helper()
	rec, _ := s.do(t, registerRequest(t, aliceForm(), true))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"wonderland"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	access, refresh = cookieByName(rec, "accessToken"), cookieByName(rec, "refreshToken")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return access, refresh
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, false)

	rec, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/healthcheck", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Backend is working...", env.Message)
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, false)

	rec, env := s.do(t, registerRequest(t, aliceForm(), true))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusCreated, env.StatusCode)

	var user map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "refreshToken")

	left, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, left, "temp uploads must not be left behind")
}

func TestRegister_Rejections(t *testing.T) {
	s := newTestServer(t, false)

	rec, env := s.do(t, registerRequest(t, aliceForm(), false))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "avatar file is required", env.Message)
	assert.False(t, env.Success)

	form := aliceForm()
	form["email"] = " "
	rec, env = s.do(t, registerRequest(t, form, true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "all fields are required", env.Message)

	rec, _ = s.do(t, registerRequest(t, aliceForm(), true))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = s.do(t, registerRequest(t, aliceForm(), true))
	assert.Equal(t, http.StatusConflict, rec.Code)

	left, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestLogin_SetsCookies(t *testing.T) {
	s := newTestServer(t, false)
	access, refresh := s.registerAndLogin(t)

	for _, c := range []*http.Cookie{access, refresh} {
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, "/", c.Path)
		assert.Positive(t, c.MaxAge)
	}
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t, false)
	rec, _ := s.do(t, registerRequest(t, aliceForm(), true))
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "no identifier", body: `{"password":"x"}`, want: http.StatusBadRequest},
		{name: "unknown user", body: `{"username":"bob","password":"x"}`, want: http.StatusNotFound},
		{name: "wrong password", body: `{"email":"alice@example.com","password":"x"}`, want: http.StatusUnauthorized},
		{name: "broken json", body: `{`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", tt.body))
			assert.Equal(t, tt.want, rec.Code)
			assert.False(t, env.Success)
			assert.Empty(t, env.Detail)
		})
	}
}

func TestRefreshToken_RotatesAndRejectsReplay(t *testing.T) {
	s := newTestServer(t, false)
	_, refresh := s.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(refresh)
	rec, env := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var pair domain.TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEqual(t, refresh.Value, pair.RefreshToken)
	assert.Equal(t, pair.RefreshToken, cookieByName(rec, "refreshToken").Value)

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	replay.AddCookie(refresh)
	rec, env = s.do(t, replay)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "refresh token is expired or already used", env.Message)

	rec, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", `{"refreshToken":"`+pair.RefreshToken+`"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshToken_Missing(t *testing.T) {
	s := newTestServer(t, false)

	rec, env := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized request: missing refresh token", env.Message)
}

func TestSecuredRoutes_RequireAccessToken(t *testing.T) {
	s := newTestServer(t, false)
	access, refresh := s.registerAndLogin(t)

	rec, env := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized request", env.Message)

	withRefresh := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	withRefresh.Header.Set("Authorization", "Bearer "+refresh.Value)
	rec, env = s.do(t, withRefresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid access token", env.Message)

	bearer := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	bearer.Header.Set("Authorization", "Bearer "+access.Value)
	rec, env = s.do(t, bearer)
	require.Equal(t, http.StatusOK, rec.Code)

	var user domain.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "alice", user.Username)
}

func TestLogout_ClearsSession(t *testing.T) {
	s := newTestServer(t, false)
	access, refresh := s.registerAndLogin(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.AddCookie(access)
	rec, _ := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}

	refreshReq := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	refreshReq.AddCookie(refresh)
	rec, _ = s.do(t, refreshReq)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t, false)
	access, _ := s.registerAndLogin(t)

	wrong := jsonRequest(http.MethodPost, "/api/v1/users/change-password", `{"oldPassword":"nope","newPassword":"looking-glass"}`)
	wrong.AddCookie(access)
	rec, env := s.do(t, wrong)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid old password", env.Message)

	right := jsonRequest(http.MethodPost, "/api/v1/users/change-password", `{"oldPassword":"wonderland","newPassword":"looking-glass"}`)
	right.AddCookie(access)
	rec, _ = s.do(t, right)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", `{"username":"alice","password":"looking-glass"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChannelAndHistory(t *testing.T) {
	s := newTestServer(t, false)
	access, _ := s.registerAndLogin(t)

	profileReq := httptest.NewRequest(http.MethodGet, "/api/v1/users/c/Alice", nil)
	profileReq.AddCookie(access)
	rec, env := s.do(t, profileReq)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile domain.ChannelProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "alice", profile.Username)
	assert.False(t, profile.IsSubscribed)

	missing := httptest.NewRequest(http.MethodGet, "/api/v1/users/c/ghost", nil)
	missing.AddCookie(access)
	rec, _ = s.do(t, missing)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	historyReq := httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil)
	historyReq.AddCookie(access)
	rec, env = s.do(t, historyReq)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestErrorDetail_OnlyInDevelopment(t *testing.T) {
	s := newTestServer(t, true)

	rec, env := s.do(t, jsonRequest(http.MethodPost, "/api/v1/users/login", `{"username":"bob","password":"x"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user does not exist", env.Detail)
}
