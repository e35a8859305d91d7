package main

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// git commit used for this build; supplied at compile time
var gitCommit string

type serviceVersion struct {
	BuildVersion string `json:"build,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	GitCommit    string `json:"git_commit,omitempty"`
}

type serviceSolr struct {
	client  *http.Client
	host    string
	cores   serviceConfigSolrCores
	limiter *rate.Limiter // nil when unlimited
}

type serviceContext struct {
	randomSource *rand.Rand
	randomLock   sync.Mutex
	config       *serviceConfig
	logger       zerolog.Logger
	version      serviceVersion
	solr         serviceSolr
	store        *relationalStore
	sources      *sourceCache
	metrics      *serviceMetrics
}

func (svc *serviceContext) newRequestID() string {
	svc.randomLock.Lock()
	defer svc.randomLock.Unlock()

	return fmt.Sprintf("%08x", svc.randomSource.Uint32())
}

func (svc *serviceContext) initVersion() {
	buildVersion := "unknown"
	files, _ := filepath.Glob("buildtag.*")
	if len(files) == 1 {
		buildVersion = strings.Replace(files[0], "buildtag.", "", 1)
	}

	svc.version = serviceVersion{
		BuildVersion: buildVersion,
		GoVersion:    fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
		GitCommit:    gitCommit,
	}

	svc.logger.Info().Msgf("[SERVICE] version.BuildVersion = [%s]", svc.version.BuildVersion)
	svc.logger.Info().Msgf("[SERVICE] version.GoVersion    = [%s]", svc.version.GoVersion)
	svc.logger.Info().Msgf("[SERVICE] version.GitCommit    = [%s]", svc.version.GitCommit)
}

func (svc *serviceContext) initSolr() {
	// client setup

	connTimeout := timeoutWithMinimum(svc.config.Solr.ConnTimeout, 5)
	readTimeout := timeoutWithMinimum(svc.config.Solr.ReadTimeout, 5)

	solrClient := &http.Client{
		Timeout: readTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   connTimeout,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			MaxIdleConns:        100, // we are hitting one solr host, so
			MaxIdleConnsPerHost: 100, // these two values can be the same
			IdleConnTimeout:     90 * time.Second,
		},
	}

	svc.solr = serviceSolr{
		client: solrClient,
		host:   strings.TrimRight(svc.config.Solr.Host, "/"),
		cores:  svc.config.Solr.Cores,
	}

	if rps := svc.config.Solr.MaxRequestsPerSecond; rps > 0 {
		burst := svc.config.Solr.Burst
		if burst <= 0 {
			burst = int(rps) + 1
		}

		svc.solr.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	svc.logger.Info().Msgf("[SERVICE] solr.host            = [%s]", svc.solr.host)
	svc.logger.Info().Msgf("[SERVICE] solr.cores           = [%s, %s, %s]", svc.solr.cores.Docs, svc.solr.cores.Authors, svc.solr.cores.Glossary)
	svc.logger.Info().Msgf("[SERVICE] solr.rateLimit       = [%0.1f]", svc.config.Solr.MaxRequestsPerSecond)
}

func (svc *serviceContext) initStore() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, pool, err := openStore(ctx, svc.config.Database, svc.logger)
	if err != nil {
		svc.logger.Error().Err(err).Msg("[SERVICE] relational store setup failed")
		os.Exit(1)
	}

	if svc.config.Database.Migrate == true {
		if err := runMigrations(pool, svc.config.Database.MigrationsPath, svc.logger); err != nil {
			svc.logger.Error().Err(err).Msg("[SERVICE] relational store migration failed")
			os.Exit(1)
		}
	}

	svc.store = store
}

func (svc *serviceContext) requestTimeout() time.Duration {
	return timeoutWithMinimum(svc.config.Service.RequestTimeout, 1)
}

func (svc *serviceContext) validateConfig() {
	// ensure the existence and validity of required variables

	service := newConfigValidator(svc.logger, "service")
	service.requireValue(svc.config.Service.Port, "service port")
	service.requireValue(svc.config.Service.JWTKey, "jwt key")
	service.requireValue(svc.config.Database.URL, "database url")

	solr := newConfigValidator(svc.logger, "solr")
	solr.requireValue(svc.config.Solr.Host, "solr host")
	solr.requireValue(svc.config.Solr.Cores.Docs, "docs core")
	solr.requireValue(svc.config.Solr.Cores.Authors, "authors core")
	solr.requireValue(svc.config.Solr.Cores.Glossary, "glossary core")

	search := newConfigValidator(svc.logger, "search")
	search.requirePositive(svc.config.Search.KwicFragSize, "kwic fragment size")
	search.requirePositive(svc.config.Search.MaxKwicReturns, "max kwic returns")

	if service.invalid() || solr.invalid() || search.invalid() {
		svc.logger.Error().Msg("[VALIDATE] exiting due to missing/incorrect field value(s) above")
		os.Exit(1)
	}
}

func initializeService(cfg *serviceConfig) *serviceContext {
	svc := serviceContext{}

	svc.config = cfg
	svc.logger = newLogger(cfg.Logging)
	svc.randomSource = rand.New(rand.NewSource(time.Now().UnixNano()))
	svc.metrics = getServiceMetrics()

	svc.initVersion()
	svc.validateConfig()
	svc.initSolr()
	svc.initStore()

	svc.sources = newSourceCache(svc.store, time.Duration(cfg.Service.SourceRefresh)*time.Second, svc.logger)
	svc.sources.start()

	return &svc
}
