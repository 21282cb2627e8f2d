package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/vidstream/internal/handlers"
	"github.com/Skotchmaster/vidstream/internal/models"
	"github.com/Skotchmaster/vidstream/internal/mykafka"
	"github.com/Skotchmaster/vidstream/internal/service"
	httpserver "github.com/Skotchmaster/vidstream/internal/transport/http"
)

type fakeMedia struct{}

func (fakeMedia) Upload(_ context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	io.Copy(io.Discard, r)
	return "https://cdn.test/" + filename, nil
}

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	accessSecret := []byte("test-access-secret")
	svc := &service.SessionService{
		DB:            db,
		AccessSecret:  accessSecret,
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		DB:           db,
		AuthHandler:  &handlers.AuthHandler{Svc: svc, Media: fakeMedia{}, Producer: &mykafka.Producer{}},
		AccessSecret: accessSecret,
	})

	return &testEnv{T: t, E: e, DB: db}
}

func (env *testEnv) registerForm(fields map[string]string, files ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	env.T.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(env.T, w.WriteField(k, v))
	}
	for _, name := range files {
		fw, err := w.CreateFormFile(name, name+".png")
		require.NoError(env.T, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(env.T, err)
	}
	require.NoError(env.T, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec, decodeEnvelope(env.T, rec)
}

func (env *testEnv) doJSON(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]interface{}) {
	env.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec, decodeEnvelope(env.T, rec)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func defaultRegisterFields() map[string]string {
	return map[string]string{
		"username": "u1",
		"email":    "u1@x.com",
		"fullName": "U One",
		"password": "secret",
	}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.registerForm(defaultRegisterFields(), "avatar", "coverImage")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, true, body["success"])

	// Credential material must never leave the service.
	require.NotContains(t, rec.Body.String(), "password")
	require.NotContains(t, rec.Body.String(), "refreshToken")

	data := body["data"].(map[string]interface{})
	require.Equal(t, "u1", data["username"])
	require.Equal(t, "https://cdn.test/avatar.png", data["avatar"])
	require.Equal(t, "https://cdn.test/coverImage.png", data["coverImage"])

	var stored models.User
	require.NoError(t, env.DB.Where("username = ?", "u1").First(&stored).Error)
	require.NotEqual(t, "secret", stored.PasswordHash)
}

func TestRegisterMissingFiles(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.registerForm(defaultRegisterFields(), "avatar")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, false, body["success"])
}

func TestRegisterMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.registerForm(map[string]string{"username": "u1"}, "avatar", "coverImage")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.registerForm(defaultRegisterFields(), "avatar", "coverImage")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := env.registerForm(defaultRegisterFields(), "avatar", "coverImage")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, false, body["success"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.registerForm(defaultRegisterFields(), "avatar", "coverImage")

	rec, body := env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "u1",
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	access := data["accessToken"].(string)
	refresh := data["refreshToken"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEqual(t, access, refresh)

	accessCk := cookieByName(rec, "accessToken")
	refreshCk := cookieByName(rec, "refreshToken")
	require.NotNil(t, accessCk)
	require.NotNil(t, refreshCk)
	require.True(t, accessCk.HttpOnly)
	require.True(t, accessCk.Secure)
	require.Equal(t, access, accessCk.Value)
	require.Equal(t, refresh, refreshCk.Value)

	user := data["user"].(map[string]interface{})
	require.Equal(t, "u1", user["username"])
	require.NotContains(t, user, "passwordHash")

	// Login by email works the same.
	rec, _ = env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "u1@x.com",
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	env.registerForm(defaultRegisterFields(), "avatar", "coverImage")

	rec, _ := env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "u1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "nobody", "password": "secret",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "u1", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, false, body["success"])
}

func TestRefreshRotationAndReplay(t *testing.T) {
	env := newTestEnv(t)
	env.registerForm(defaultRegisterFields(), "avatar", "coverImage")

	_, loginBody := env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "u1", "password": "secret",
	})
	original := loginBody["data"].(map[string]interface{})["refreshToken"].(string)

	rec, body := env.doJSON(http.MethodPost, "/api/v1/users/refreshToken", nil,
		&http.Cookie{Name: "refreshToken", Value: original})
	require.Equal(t, http.StatusOK, rec.Code)

	rotated := body["data"].(map[string]interface{})["refreshToken"].(string)
	require.NotEmpty(t, rotated)
	require.NotEqual(t, original, rotated)
	require.NotNil(t, cookieByName(rec, "refreshToken"))

	// Replay of the rotated-out token is rejected.
	rec, body = env.doJSON(http.MethodPost, "/api/v1/users/refreshToken", nil,
		&http.Cookie{Name: "refreshToken", Value: original})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, false, body["success"])
}

func TestRefreshMissingToken(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.doJSON(http.MethodPost, "/api/v1/users/refreshToken", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.doJSON(http.MethodPost, "/api/v1/users/refreshToken", nil,
		&http.Cookie{Name: "refreshToken", Value: "not.a.token"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.registerForm(defaultRegisterFields(), "avatar", "coverImage")

	_, loginBody := env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "u1", "password": "secret",
	})
	data := loginBody["data"].(map[string]interface{})
	access := data["accessToken"].(string)
	refresh := data["refreshToken"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Both cookies cleared with the same attribute set they were set with.
	cleared := cookieByName(rec, "refreshToken")
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.True(t, cleared.Expires.Before(time.Now()))
	require.Equal(t, "/", cleared.Path)

	// The previously issued refresh token is now dead.
	rec2, _ := env.doJSON(http.MethodPost, "/api/v1/users/refreshToken", nil,
		&http.Cookie{Name: "refreshToken", Value: refresh})
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerForm(defaultRegisterFields(), "avatar", "coverImage")

	_, loginBody := env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "u1", "password": "secret",
	})
	access := loginBody["data"].(map[string]interface{})["accessToken"].(string)

	changeReq := func(oldPw, newPw string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{
			"oldPassword": oldPw, "newPassword": newPw,
		}))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", &buf)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
		rec := httptest.NewRecorder()
		env.E.ServeHTTP(rec, req)
		return rec
	}

	rec := changeReq("wrong", "newsecret")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = changeReq("secret", "newsecret")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, true, body["success"])

	// Old password stops working, new one logs in.
	rec2, _ := env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "u1", "password": "secret",
	})
	require.Equal(t, http.StatusUnauthorized, rec2.Code)

	rec2, _ = env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "u1", "password": "newsecret",
	})
	require.Equal(t, http.StatusOK, rec2.Code)
}

func TestLogoutUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.doJSON(http.MethodPost, "/api/v1/users/logout", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, false, body["success"])
}

func TestFullSessionScenario(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.registerForm(defaultRegisterFields(), "avatar", "coverImage")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.False(t, strings.Contains(rec.Body.String(), "password"))
	require.False(t, strings.Contains(rec.Body.String(), "refreshToken"))

	rec, body = env.doJSON(http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "u1", "password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 2)

	data := body["data"].(map[string]interface{})
	access := data["accessToken"].(string)
	refresh := data["refreshToken"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	require.NotEqual(t, access, refresh)

	rec, body = env.doJSON(http.MethodPost, "/api/v1/users/refreshToken", nil,
		&http.Cookie{Name: "refreshToken", Value: refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := body["data"].(map[string]interface{})["refreshToken"].(string)
	require.NotEqual(t, refresh, rotated)

	rec, _ = env.doJSON(http.MethodPost, "/api/v1/users/refreshToken", nil,
		&http.Cookie{Name: "refreshToken", Value: refresh})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
