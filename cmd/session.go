package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/uvalib/virgo4-jwt/v4jwt"
)

const (
	cookieSessionID     = "opasSessionID"
	cookieAccessToken   = "opasAccessToken"
	cookieSessionExpire = "opasSessionExpire"

	anonymousUsername = "NotLoggedIn"
)

// api_endpoints ids recorded against each session
const (
	endpointLogin                = 1
	endpointLoginStatus          = 2
	endpointLogout               = 3
	endpointMetadataSourceInfo   = 12
	endpointMetadataVolumes      = 14
	endpointMetadataContents     = 15
	endpointMetadataContentsVol  = 16
	endpointAuthorsIndex         = 20
	endpointAuthorsPublications  = 21
	endpointDocumentsAbstracts   = 30
	endpointDocumentsDocument    = 31
	endpointDownloadsPDF         = 32
	endpointDownloadsPDFOrig     = 33
	endpointDownloadsXML         = 34
	endpointDownloadsEPUB        = 35
	endpointDownloadsHTML        = 36
	endpointDocumentsGlossary    = 37
	endpointDatabaseSearch       = 41
	endpointDatabaseWhatsNew     = 42
	endpointDatabaseMostCited    = 43
	endpointDatabaseMostViewed   = 44
	endpointDatabaseAnalysis     = 45
	endpointDatabaseMoreLikeThis = 46
)

var downloadEndpoints = map[string]int{
	"PDF":     endpointDownloadsPDF,
	"PDFORIG": endpointDownloadsPDFOrig,
	"XML":     endpointDownloadsXML,
	"EPUB":    endpointDownloadsEPUB,
	"HTML":    endpointDownloadsHTML,
}

type sessionInfo struct {
	SessionID      string    `json:"session_id"`
	UserID         int       `json:"user_id"`
	Username       string    `json:"username"`
	UserIP         string    `json:"user_ip,omitempty"`
	ConnectedVia   string    `json:"connected_via,omitempty"`
	AccessToken    string    `json:"access_token,omitempty"`
	Authenticated  bool      `json:"authenticated"`
	KeepActive     bool      `json:"keep_active"`
	SessionStart   time.Time `json:"session_start"`
	SessionExpires time.Time `json:"session_expires_time"`
	saved          bool
}

func (svc *serviceContext) keepTime(keepActive bool) time.Duration {
	if keepActive == true {
		return time.Duration(svc.config.Service.CookieMaxKeep) * time.Second
	}

	return time.Duration(svc.config.Service.CookieMinKeep) * time.Second
}

func (svc *serviceContext) newSession(c *gin.Context, sessionID string, keepActive bool) *sessionInfo {
	now := time.Now().UTC()

	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	return &sessionInfo{
		SessionID:      sessionID,
		Username:       anonymousUsername,
		UserIP:         c.ClientIP(),
		ConnectedVia:   c.Request.UserAgent(),
		KeepActive:     keepActive,
		SessionStart:   now,
		SessionExpires: now.Add(svc.keepTime(keepActive)),
	}
}

// saveSession persists a session; an unavailable store leaves the session usable but unsaved
func (svc *serviceContext) saveSession(ctx context.Context, cl *clientContext, session *sessionInfo) {
	if svc.store == nil {
		return
	}

	if err := svc.store.SaveSession(ctx, session); err != nil {
		cl.warn("[SESSION] continuing with unsaved session %s: %s", session.SessionID, err.Error())
		return
	}

	session.saved = true
}

func (svc *serviceContext) setSessionCookies(c *gin.Context, session *sessionInfo) {
	maxAge := int(time.Until(session.SessionExpires) / time.Second)
	domain := svc.config.Service.CookieDomain

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieSessionID, session.SessionID, maxAge, "/", domain, false, false)
	c.SetCookie(cookieSessionExpire, formatTimeStamp(session.SessionExpires), maxAge, "/", domain, false, false)

	if session.Authenticated == true && session.AccessToken != "" {
		c.SetCookie(cookieAccessToken, session.AccessToken, maxAge, "/", domain, false, true)
	}
}

func (svc *serviceContext) clearSessionCookies(c *gin.Context) {
	domain := svc.config.Service.CookieDomain

	for _, name := range []string{cookieSessionID, cookieAccessToken, cookieSessionExpire} {
		c.SetCookie(name, "", -1, "/", domain, false, false)
	}
}

// requestToken returns the bearer token from the Authorization header, falling back to the access token cookie
func requestToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, err := getBearerToken(header); err == nil {
			return token
		}
	}

	if token, err := c.Cookie(cookieAccessToken); err == nil {
		return token
	}

	return ""
}

func (svc *serviceContext) validateToken(token string) (*v4jwt.V4Claims, error) {
	if token == "" {
		return nil, errors.New("no bearer token supplied")
	}

	return v4jwt.Validate(token, svc.config.Service.JWTKey)
}

// sessionMiddleware bootstraps or restores the client session and authenticates
// any bearer token before the /v1 handlers run
func (svc *serviceContext) sessionMiddleware(c *gin.Context) {
	cl := clientContext{}
	cl.init(svc, c)

	c.Set("req_id", cl.reqID)

	ctx := c.Request.Context()
	keepActive := boolOptionWithFallback(c.Query("ka"), false)

	var session *sessionInfo

	sessionID, cookieErr := c.Cookie(cookieSessionID)

	switch {
	case cookieErr != nil || sessionID == "":
		session = svc.newSession(c, "", keepActive)
		svc.saveSession(ctx, &cl, session)
		svc.setSessionCookies(c, session)
		svc.metrics.sessionsStarted.Inc()

		cl.log("[SESSION] started session %s", session.SessionID)

	case svc.store == nil:
		session = svc.newSession(c, sessionID, keepActive)

	default:
		existing, err := svc.store.GetSession(ctx, sessionID)

		switch {
		case err == nil:
			session = existing
			session.saved = true

		case errors.Is(err, errNotFound):
			cl.log("[SESSION] recreating missing session %s", sessionID)
			session = svc.newSession(c, sessionID, keepActive)
			svc.saveSession(ctx, &cl, session)

		default:
			cl.warn("[SESSION] session lookup failed; continuing with unsaved session %s: %s", sessionID, err.Error())
			session = svc.newSession(c, sessionID, keepActive)
		}
	}

	if token := requestToken(c); token != "" {
		claims, err := svc.validateToken(token)

		if err != nil {
			cl.warn("[SESSION] bearer token rejected: %s", err.Error())
		} else {
			c.Set("token", token)
			c.Set("claims", claims)

			if session.Authenticated == false || session.AccessToken != token {
				session.Authenticated = true
				session.AccessToken = token
				session.Username = claims.UserID
				svc.saveSession(ctx, &cl, session)
			}
		}
	}

	c.Set("session", session)
}

// recordEndpoint logs endpoint usage against the client session; failures are only logged
func (s *searchContext) recordEndpoint(endpointID int, documentID string, resp serviceResponse) {
	session := s.client.session

	if s.svc.store == nil || session == nil || session.saved == false {
		return
	}

	msg := ""
	if resp.err != nil {
		msg = resp.err.Error()
	}

	entry := sessionEndpoint{
		SessionID:     session.SessionID,
		EndpointID:    endpointID,
		Params:        s.client.requestURL(),
		DocumentID:    documentID,
		StatusCode:    resp.status,
		StatusMessage: msg,
	}

	if err := s.svc.store.RecordSessionEndpoint(s.requestContext(), entry); err != nil {
		s.warn("[SESSION] endpoint usage not recorded: %s", err.Error())
	}
}

func (s *searchContext) handleLoginRequest() serviceResponse {
	c := s.client.ginCtx

	token := c.Query("access_token")
	if token == "" {
		token = requestToken(c)
	}

	keepActive := boolOptionWithFallback(c.Query("ka"), false)

	session := s.svc.newSession(c, "", keepActive)

	claims, err := s.svc.validateToken(token)
	if err != nil {
		s.log("[SESSION] login without valid token: %s", err.Error())
	} else {
		session.Authenticated = true
		session.AccessToken = token
		session.Username = claims.UserID

		c.Set("claims", claims)
		s.client.claims = claims
	}

	s.svc.saveSession(s.requestContext(), s.client, session)
	s.svc.metrics.sessionsStarted.Inc()

	// a login replaces any session bootstrapped by the middleware
	s.svc.clearSessionCookies(c)
	s.svc.setSessionCookies(c, session)

	s.client.session = session

	item := loginReturnItem{
		TokenType:          "bearer",
		SessionID:          session.SessionID,
		Authenticated:      session.Authenticated,
		SessionExpiresTime: formatTimeStamp(session.SessionExpires),
	}

	if session.Authenticated == true {
		item.AccessToken = session.AccessToken
		item.Scope = claims.Role.String()
	}

	return serviceResponse{status: http.StatusOK, data: item}
}

func (s *searchContext) handleLogoutRequest() serviceResponse {
	c := s.client.ginCtx

	if session := s.client.session; session != nil && s.svc.store != nil && session.saved == true {
		if err := s.svc.store.EndSession(s.requestContext(), session.SessionID, time.Now().UTC()); err != nil {
			s.warn("[SESSION] failed to end session %s: %s", session.SessionID, err.Error())
		} else {
			s.log("[SESSION] ended session %s", session.SessionID)
		}
	}

	s.svc.clearSessionCookies(c)

	info := licenseStatusInfo{
		LicenseInfo: licenseInfoStruct{
			ResponseInfo: licenseInfoResponse{LoggedIn: false},
			ResponseSet:  []interface{}{},
		},
	}

	return serviceResponse{status: http.StatusOK, data: info}
}

func (s *searchContext) handleTokenRequest() serviceResponse {
	if s.client.session == nil {
		return errorResponse(errors.New("no session is available"))
	}

	return serviceResponse{status: http.StatusOK, data: s.client.session}
}
