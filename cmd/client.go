package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/uvalib/virgo4-jwt/v4jwt"
)

type clientOpts struct {
	debug   bool // controls whether debug info is requested from Solr
	verbose bool // controls whether verbose Solr requests/responses are logged
}

type clientContext struct {
	reqID   string          // internally generated
	start   time.Time       // internally set
	opts    clientOpts      // options set by client
	claims  *v4jwt.V4Claims // information about this user, if authenticated
	session *sessionInfo    // session bootstrapped by middleware
	ginCtx  *gin.Context    // gin context
	logger  zerolog.Logger  // request-scoped logger
}

func boolOptionWithFallback(opt string, fallback bool) bool {
	var err error
	var val bool

	if val, err = strconv.ParseBool(opt); err != nil {
		val = fallback
	}

	return val
}

func (c *clientContext) init(svc *serviceContext, ctx *gin.Context) {
	c.ginCtx = ctx

	c.start = time.Now()

	// reuse the id assigned by the session middleware, if any
	if ctx != nil {
		c.reqID = ctx.GetString("req_id")
	}

	if c.reqID == "" {
		c.reqID = svc.newRequestID()
	}

	c.logger = svc.logger.With().Str("req_id", c.reqID).Logger()

	if ctx == nil {
		return
	}

	if val, ok := ctx.Get("claims"); ok == true {
		c.claims = val.(*v4jwt.V4Claims)
	}

	if val, ok := ctx.Get("session"); ok == true {
		c.session = val.(*sessionInfo)
	}

	c.opts.debug = boolOptionWithFallback(ctx.Query("debug"), false)
	c.opts.verbose = boolOptionWithFallback(ctx.Query("verbose"), false)
}

func (c *clientContext) logRequest() {
	c.log("------------------------------[ NEW REQUEST ]------------------------------")

	query := ""
	if c.ginCtx.Request.URL.RawQuery != "" {
		query = fmt.Sprintf("?%s", c.ginCtx.Request.URL.RawQuery)
	}

	sessionStr := ""
	if c.session != nil {
		sessionStr = fmt.Sprintf("  [session: %s]", c.session.SessionID)
	}

	claimsStr := ""
	if c.claims != nil {
		claimsStr = fmt.Sprintf("  [%s; %s; %s]", c.claims.UserID, c.claims.Role, c.claims.AuthMethod)
	}

	c.log("[REQUEST] %s %s%s%s%s", c.ginCtx.Request.Method, c.ginCtx.Request.URL.Path, query, sessionStr, claimsStr)
}

func (c *clientContext) logResponse(resp serviceResponse) {
	msg := fmt.Sprintf("[RESPONSE] status: %d", resp.status)

	if resp.err != nil {
		msg = msg + fmt.Sprintf(", error: %s", resp.err.Error())
	}

	msg = msg + fmt.Sprintf(", elapsed: %d (ms)", int64(time.Since(c.start)/time.Millisecond))

	c.log("%s", msg)
}

func (c *clientContext) printf(level zerolog.Level, prefix, format string, args ...interface{}) {
	str := fmt.Sprintf(format, args...)

	if prefix != "" {
		str = strings.Join([]string{prefix, str}, " ")
	}

	c.logger.WithLevel(level).Msg(str)
}

func (c *clientContext) log(format string, args ...interface{}) {
	c.printf(zerolog.InfoLevel, "", format, args...)
}

func (c *clientContext) warn(format string, args ...interface{}) {
	c.printf(zerolog.WarnLevel, "WARNING:", format, args...)
}

func (c *clientContext) err(format string, args ...interface{}) {
	c.printf(zerolog.ErrorLevel, "ERROR:", format, args...)
}

func (c *clientContext) isAuthenticated() bool {
	return c.claims != nil
}

func (c *clientContext) requestURL() string {
	if c.ginCtx == nil || c.ginCtx.Request == nil {
		return ""
	}

	return c.ginCtx.Request.URL.String()
}
