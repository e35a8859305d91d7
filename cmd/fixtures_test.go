package main

import (
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/uvalib/virgo4-jwt/v4jwt"
)

const (
	testDocsCore     = "pepwebdocs"
	testAuthorsCore  = "pepwebauthors"
	testGlossaryCore = "pepwebglossary"
)

// fakeSolr records the JSON requests it receives and replies with canned responses
type fakeSolr struct {
	mu       sync.Mutex
	requests []fakeSolrRequest
	respond  func(req fakeSolrRequest) interface{}
}

type fakeSolrRequest struct {
	path   string
	params solrRequestParams
}

func (f *fakeSolr) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var sr solrRequestJSON
	_ = json.Unmarshal(body, &sr)

	req := fakeSolrRequest{path: r.URL.Path, params: sr.Params}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	var resp interface{} = map[string]interface{}{"response": map[string]interface{}{"numFound": 0, "docs": []interface{}{}}}
	if f.respond != nil {
		resp = f.respond(req)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeSolr) recorded() []fakeSolrRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]fakeSolrRequest{}, f.requests...)
}

func solrDocs(numFound int, docs ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"responseHeader": map[string]interface{}{"status": 0, "QTime": 1},
		"response":       map[string]interface{}{"numFound": numFound, "start": 0, "docs": docs},
	}
}

func testConfig() *serviceConfig {
	cfg := serviceConfig{}

	cfg.Service.Port = "8080"
	cfg.Service.JWTKey = "test-signing-key"
	cfg.Service.BaseURL = "development.org:9100"
	cfg.Solr.Cores = serviceConfigSolrCores{
		Docs:     testDocsCore,
		Authors:  testAuthorsCore,
		Glossary: testGlossaryCore,
	}

	applyConfigDefaults(&cfg)

	return &cfg
}

// newTestService builds a service backed by the given fake Solr and no relational store
func newTestService(t *testing.T, solr *fakeSolr) *serviceContext {
	t.Helper()

	svc := serviceContext{
		config:       testConfig(),
		logger:       zerolog.Nop(),
		randomSource: rand.New(rand.NewSource(1)),
		metrics:      getServiceMetrics(),
	}

	svc.solr = serviceSolr{client: http.DefaultClient, cores: svc.config.Solr.Cores}

	if solr != nil {
		srv := httptest.NewServer(solr)
		t.Cleanup(srv.Close)

		svc.solr.client = srv.Client()
		svc.solr.host = srv.URL
	}

	return &svc
}

// newTestSearch returns a searchContext for a request to target, authenticated when claims is set
func newTestSearch(svc *serviceContext, target string, claims *v4jwt.V4Claims, params ...gin.Param) (*searchContext, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Params = params

	if claims != nil {
		c.Set("claims", claims)
	}

	cl := clientContext{}
	cl.init(svc, c)

	s := searchContext{}
	s.init(svc, &cl)

	return &s, w
}

func testClaims() *v4jwt.V4Claims {
	return &v4jwt.V4Claims{UserID: "reader1"}
}

// testToken mints a token the test service accepts
func testToken(t *testing.T, svc *serviceContext) string {
	t.Helper()

	token, err := v4jwt.Mint(*testClaims(), time.Hour, svc.config.Service.JWTKey)
	if err != nil {
		t.Fatalf("failed to mint token: %s", err.Error())
	}

	return token
}

func paramsOf(pairs ...string) gin.Params {
	var params gin.Params

	for i := 0; i+1 < len(pairs); i += 2 {
		params = append(params, gin.Param{Key: pairs[i], Value: pairs[i+1]})
	}

	return params
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) == false {
			return false
		}
	}

	return true
}

func init() {
	gin.SetMode(gin.TestMode)
}
