package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/GoArmGo/VideoTube/internal/usecase"
	"github.com/go-chi/chi/v5"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"

	// multipartMemory is how much of a multipart body is held in memory
	// before the rest spills to disk.
	multipartMemory = 1 << 20
)

// Options configures the transport behaviour that is not business logic.
type Options struct {
	CookieSecure   bool
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	UploadTempDir  string
	MaxUploadBytes int64
	Development    bool
}

// UserHandler serves the /users routes.
type UserHandler struct {
	sessions usecase.SessionUseCase
	channels usecase.ChannelUseCase
	opts     Options
	logger   *slog.Logger
}

func NewUserHandler(sessions usecase.SessionUseCase, channels usecase.ChannelUseCase, opts Options, logger *slog.Logger) *UserHandler {
	return &UserHandler{sessions: sessions, channels: channels, opts: opts, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         *domain.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HealthCheck reports that the process is serving requests.
func (h *UserHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, http.StatusOK, nil, "Backend is working...", h.logger)
}

// Register handles the multipart registration form.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.fail(w, domain.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit)))
			return
		}
		h.fail(w, domain.NewValidationError("invalid multipart form"))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	avatarPath, err := h.saveUpload(r, "avatar")
	if err != nil {
		h.fail(w, domain.NewInternalError("failed to store uploaded file", err))
		return
	}
	defer h.removeTemp(avatarPath)

	coverPath, err := h.saveUpload(r, "coverImage")
	if err != nil {
		h.fail(w, domain.NewInternalError("failed to store uploaded file", err))
		return
	}
	defer h.removeTemp(coverPath)

	user, err := h.sessions.Register(r.Context(), usecase.RegisterInput{
		Username:            r.FormValue("username"),
		Email:               r.FormValue("email"),
		FullName:            r.FormValue("fullName"),
		Password:            r.FormValue("password"),
		AvatarLocalPath:     avatarPath,
		CoverImageLocalPath: coverPath,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	respondWithData(w, http.StatusCreated, user, "User registered successfully", h.logger)
}

// Login checks credentials and sets both token cookies.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	res, err := h.sessions.Login(r.Context(), usecase.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	h.setTokenCookies(w, res.Tokens)
	respondWithData(w, http.StatusOK, loginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User logged in successfully", h.logger)
}

// RefreshToken rotates the refresh token taken from the cookie or the body.
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			h.fail(w, domain.NewValidationError("request body must be valid JSON"))
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.sessions.RefreshAccessToken(r.Context(), token)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.setTokenCookies(w, *pair)
	respondWithData(w, http.StatusOK, pair, "Access token refreshed", h.logger)
}

// Logout clears the stored refresh token and both cookies.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := h.sessions.Logout(r.Context(), user.ID); err != nil {
		h.fail(w, err)
		return
	}

	h.clearTokenCookies(w)
	respondWithData(w, http.StatusOK, nil, "User logged out", h.logger)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	user := UserFromContext(r.Context())
	if err := h.sessions.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		h.fail(w, err)
		return
	}

	respondWithData(w, http.StatusOK, nil, "Password changed successfully", h.logger)
}

func (h *UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, http.StatusOK, UserFromContext(r.Context()), "Current user fetched successfully", h.logger)
}

func (h *UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewer := UserFromContext(r.Context())
	profile, err := h.channels.ChannelProfile(r.Context(), viewer.ID, chi.URLParam(r, "username"))
	if err != nil {
		h.fail(w, err)
		return
	}
	respondWithData(w, http.StatusOK, profile, "User channel fetched successfully", h.logger)
}

func (h *UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	history, err := h.channels.WatchHistory(r.Context(), user.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondWithData(w, http.StatusOK, history, "Watch history fetched successfully", h.logger)
}

func (h *UserHandler) fail(w http.ResponseWriter, err error) {
	respondWithError(w, err, h.opts.Development, h.logger)
}

func (h *UserHandler) setTokenCookies(w http.ResponseWriter, pair domain.TokenPair) {
	http.SetCookie(w, h.cookie(accessTokenCookie, pair.AccessToken, h.opts.AccessTTL))
	http.SetCookie(w, h.cookie(refreshTokenCookie, pair.RefreshToken, h.opts.RefreshTTL))
}

func (h *UserHandler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		c := h.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (h *UserHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// saveUpload copies the first file of the form field into the upload temp
// dir and returns its path, or "" when the field is absent.
func (h *UserHandler) saveUpload(r *http.Request, field string) (string, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return "", nil
	}
	return h.copyToTemp(files[0])
}

func (h *UserHandler) copyToTemp(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	if err := os.MkdirAll(h.opts.UploadTempDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.CreateTemp(h.opts.UploadTempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		h.removeTemp(dst.Name())
		return "", fmt.Errorf("copy upload %s: %w", fh.Filename, err)
	}
	return dst.Name(), nil
}

// removeTemp deletes a temp upload the blob store did not consume.
func (h *UserHandler) removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("failed to remove temp upload", "path", path, "error", err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required")
		}
		return domain.NewValidationError("request body must be valid JSON")
	}
	return nil
}
