package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *serviceContext) *gin.Engine {
	router := gin.New()
	registerRoutes(svc, router)

	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

// lastCookie returns the final value set for a cookie, since a response may set it more than once
func lastCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			found = cookie
		}
	}

	return found
}

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}

	return args
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) sessionInfo {
	t.Helper()

	var session sessionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))

	return session
}

func TestNewSessionWithoutStore(t *testing.T) {
	svc := newTestService(t, nil)
	router := newTestRouter(svc)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/v1/Token/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	session := decodeSession(t, w)
	assert.NotEmpty(t, session.SessionID)
	assert.False(t, session.Authenticated)
	assert.Equal(t, anonymousUsername, session.Username)

	cookie := lastCookie(w, cookieSessionID)
	require.NotNil(t, cookie)
	assert.Equal(t, session.SessionID, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.InDelta(t, svc.config.Service.CookieMinKeep, cookie.MaxAge, 5)

	assert.NotNil(t, lastCookie(w, cookieSessionExpire))
	assert.Nil(t, lastCookie(w, cookieAccessToken))
}

func TestKeepActiveSession(t *testing.T) {
	svc := newTestService(t, nil)

	w := serve(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/v1/Token/?ka=true", nil))

	session := decodeSession(t, w)
	assert.True(t, session.KeepActive)
	assert.WithinDuration(t, time.Now().Add(time.Duration(svc.config.Service.CookieMaxKeep)*time.Second), session.SessionExpires, time.Minute)
}

func TestSessionCookieIsReused(t *testing.T) {
	svc := newTestService(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/Token/", nil)
	req.AddCookie(&http.Cookie{Name: cookieSessionID, Value: "existing-session"})

	w := serve(newTestRouter(svc), req)

	assert.Equal(t, "existing-session", decodeSession(t, w).SessionID)
	assert.Nil(t, lastCookie(w, cookieSessionID))
}

func TestNewSessionIsSavedAndUsageRecorded(t *testing.T) {
	svc := newTestService(t, nil)

	store, mock := newMockStore(t)
	svc.store = store

	mock.ExpectExec("INSERT INTO api_sessions").WithArgs(anyArgs(10)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO api_session_endpoints").
		WithArgs(pgxmock.AnyArg(), endpointLoginStatus, "/v1/Token/", "", http.StatusOK, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	w := serve(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/v1/Token/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStoredSessionIsRestored(t *testing.T) {
	svc := newTestService(t, nil)

	store, mock := newMockStore(t)
	svc.store = store

	start := time.Now().UTC().Add(-time.Minute)

	rows := pgxmock.NewRows(sessionColumns).
		AddRow("stored-session", 7, "reader1", "10.0.0.1", "", "", false, true, start, start.Add(time.Hour))

	mock.ExpectQuery("FROM api_sessions WHERE session_id").WithArgs("stored-session").WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO api_session_endpoints").WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	req := httptest.NewRequest(http.MethodGet, "/v1/Token/", nil)
	req.AddCookie(&http.Cookie{Name: cookieSessionID, Value: "stored-session"})

	w := serve(newTestRouter(svc), req)

	session := decodeSession(t, w)
	assert.Equal(t, 7, session.UserID)
	assert.True(t, session.KeepActive)
}

func TestMissingStoredSessionIsRecreated(t *testing.T) {
	svc := newTestService(t, nil)

	store, mock := newMockStore(t)
	svc.store = store

	mock.ExpectQuery("FROM api_sessions WHERE session_id").WithArgs("expired-session").WillReturnRows(pgxmock.NewRows(sessionColumns))
	mock.ExpectExec("INSERT INTO api_sessions").WithArgs(anyArgs(10)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO api_session_endpoints").WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	req := httptest.NewRequest(http.MethodGet, "/v1/Token/", nil)
	req.AddCookie(&http.Cookie{Name: cookieSessionID, Value: "expired-session"})

	w := serve(newTestRouter(svc), req)

	assert.Equal(t, "expired-session", decodeSession(t, w).SessionID)
}

func TestBearerTokenAuthenticatesSession(t *testing.T) {
	svc := newTestService(t, nil)
	token := testToken(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/Token/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := serve(newTestRouter(svc), req)

	session := decodeSession(t, w)
	assert.True(t, session.Authenticated)
	assert.Equal(t, "reader1", session.Username)
}

func TestInvalidBearerTokenIsIgnored(t *testing.T) {
	svc := newTestService(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/Token/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	w := serve(newTestRouter(svc), req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeSession(t, w).Authenticated)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t, nil)
	token := testToken(t, svc)

	w := serve(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/v1/Login/?access_token="+token, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var item loginReturnItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))

	assert.Equal(t, "bearer", item.TokenType)
	assert.True(t, item.Authenticated)
	assert.Equal(t, token, item.AccessToken)
	assert.Equal(t, testClaims().Role.String(), item.Scope)

	assert.Equal(t, item.SessionID, lastCookie(w, cookieSessionID).Value)

	access := lastCookie(w, cookieAccessToken)
	require.NotNil(t, access)
	assert.Equal(t, token, access.Value)
	assert.True(t, access.HttpOnly)
}

func TestLoginWithBadToken(t *testing.T) {
	svc := newTestService(t, nil)

	w := serve(newTestRouter(svc), httptest.NewRequest(http.MethodGet, "/v1/Login/?access_token=forged", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var item loginReturnItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))

	assert.False(t, item.Authenticated)
	assert.Empty(t, item.AccessToken)
	assert.Empty(t, item.Scope)

	access := lastCookie(w, cookieAccessToken)
	require.NotNil(t, access)
	assert.Empty(t, access.Value)
}

func TestLogout(t *testing.T) {
	svc := newTestService(t, nil)

	store, mock := newMockStore(t)
	svc.store = store

	start := time.Now().UTC()

	rows := pgxmock.NewRows(sessionColumns).
		AddRow("stored-session", 0, anonymousUsername, "", "", "", false, false, start, start.Add(time.Hour))

	mock.ExpectQuery("FROM api_sessions WHERE session_id").WithArgs("stored-session").WillReturnRows(rows)
	mock.ExpectExec("UPDATE api_sessions SET session_end").WithArgs("stored-session", pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO api_session_endpoints").WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	req := httptest.NewRequest(http.MethodGet, "/v1/Logout/", nil)
	req.AddCookie(&http.Cookie{Name: cookieSessionID, Value: "stored-session"})

	w := serve(newTestRouter(svc), req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.JSONEq(t, `{"licenseInfo":{"responseInfo":{"loggedIn":false},"responseSet":[]}}`, w.Body.String())

	cleared := lastCookie(w, cookieSessionID)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.MaxAge < 0)
}
