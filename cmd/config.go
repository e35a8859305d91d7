package main

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const envPrefix = "OPAS_SOLR_WS_"

type serviceConfigService struct {
	Port           string `json:"port,omitempty"`
	JWTKey         string `json:"jwt_key,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	ImagesPath     string `json:"images_path,omitempty"`
	PDFDir         string `json:"pdf_dir,omitempty"`
	DocsDir        string `json:"docs_dir,omitempty"`
	Pprof          bool   `json:"pprof,omitempty"`
	CookieMinKeep  int    `json:"cookie_min_keep,omitempty"` // seconds
	CookieMaxKeep  int    `json:"cookie_max_keep,omitempty"` // seconds
	CookieDomain   string `json:"cookie_domain,omitempty"`
	SourceRefresh  int    `json:"source_refresh,omitempty"`  // seconds
	RequestTimeout string `json:"request_timeout,omitempty"` // seconds
}

type serviceConfigLogging struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"` // json or console
}

type serviceConfigSolrCores struct {
	Docs     string `json:"docs,omitempty"`
	Authors  string `json:"authors,omitempty"`
	Glossary string `json:"glossary,omitempty"`
}

type serviceConfigSolr struct {
	Host                 string                 `json:"host,omitempty"`
	ConnTimeout          string                 `json:"conn_timeout,omitempty"`
	ReadTimeout          string                 `json:"read_timeout,omitempty"`
	Cores                serviceConfigSolrCores `json:"cores,omitempty"`
	MaxRequestsPerSecond float64                `json:"max_requests_per_second,omitempty"`
	Burst                int                    `json:"burst,omitempty"`
	StatusDocumentID     string                 `json:"status_document_id,omitempty"`
}

type serviceConfigDatabase struct {
	URL            string `json:"url,omitempty"`
	MaxConns       int32  `json:"max_conns,omitempty"`
	Timeout        string `json:"timeout,omitempty"`
	Migrate        bool   `json:"migrate,omitempty"`
	MigrationsPath string `json:"migrations_path,omitempty"`
}

type serviceConfigSearch struct {
	KwicFragSize      int    `json:"kwic_frag_size,omitempty"`
	MaxKwicReturns    int    `json:"max_kwic_returns,omitempty"`
	FullTextFragSize  int    `json:"full_text_frag_size,omitempty"`
	HitMarkerStart    string `json:"hit_marker_start,omitempty"`
	HitMarkerEnd      string `json:"hit_marker_end,omitempty"`
	OutputMarkerStart string `json:"output_marker_start,omitempty"`
	OutputMarkerEnd   string `json:"output_marker_end,omitempty"`
	WhatsNewDays      int    `json:"whats_new_days,omitempty"`
}

type serviceConfig struct {
	Service  serviceConfigService  `json:"service,omitempty"`
	Logging  serviceConfigLogging  `json:"logging,omitempty"`
	Solr     serviceConfigSolr     `json:"solr,omitempty"`
	Database serviceConfigDatabase `json:"database,omitempty"`
	Search   serviceConfigSearch   `json:"search,omitempty"`
}

func getSortedJSONEnvVars() []string {
	var keys []string

	for _, keyval := range os.Environ() {
		key := strings.Split(keyval, "=")[0]
		if strings.HasPrefix(key, envPrefix+"JSON_") {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys
}

// config values may be plain json, or gzipped + base64-encoded json (as produced by the setup tool)
func decodeConfigValue(val string, cfg *serviceConfig) error {
	raw := []byte(strings.TrimSpace(val))

	if len(raw) > 0 && raw[0] != '{' {
		gz, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil {
			return err
		}

		zr, err := gzip.NewReader(bytes.NewReader(gz))
		if err != nil {
			return err
		}
		defer zr.Close()

		if raw, err = io.ReadAll(zr); err != nil {
			return err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	return dec.Decode(cfg)
}

func applyConfigDefaults(cfg *serviceConfig) {
	setDefault := func(val *int, def int) {
		if *val <= 0 {
			*val = def
		}
	}

	setDefaultString := func(val *string, def string) {
		if *val == "" {
			*val = def
		}
	}

	setDefault(&cfg.Search.KwicFragSize, 200)
	setDefault(&cfg.Search.MaxKwicReturns, 5)
	setDefault(&cfg.Search.FullTextFragSize, 2520000)
	setDefault(&cfg.Search.WhatsNewDays, 7)
	setDefaultString(&cfg.Search.HitMarkerStart, "%##")
	setDefaultString(&cfg.Search.HitMarkerEnd, "##%")
	setDefaultString(&cfg.Search.OutputMarkerStart, "<span class='searchhit'>")
	setDefaultString(&cfg.Search.OutputMarkerEnd, "</span>")

	setDefault(&cfg.Service.CookieMinKeep, 3600)
	setDefault(&cfg.Service.CookieMaxKeep, 86400)
	setDefault(&cfg.Service.SourceRefresh, 300)
	setDefaultString(&cfg.Service.ImagesPath, "images")
	setDefaultString(&cfg.Service.RequestTimeout, "10")

	setDefaultString(&cfg.Logging.Level, "info")
	setDefaultString(&cfg.Logging.Format, "json")

	setDefaultString(&cfg.Solr.StatusDocumentID, "APA.009.0331A")

	setDefaultString(&cfg.Database.MigrationsPath, "migrations")
	setDefaultString(&cfg.Database.Timeout, "5")
}

func loadConfig() *serviceConfig {
	cfg := serviceConfig{}

	// json configs

	envs := getSortedJSONEnvVars()

	valid := true

	for _, env := range envs {
		log.Info().Msgf("[CONFIG] loading %s ...", env)
		if val := os.Getenv(env); val != "" {
			if err := decodeConfigValue(val, &cfg); err != nil {
				log.Error().Msgf("error decoding %s: %s", env, err.Error())
				valid = false
			}
		}
	}

	if valid == false {
		log.Error().Msg("exiting due to json decode error(s) above")
		os.Exit(1)
	}

	// optional convenience overrides to simplify deployment config
	if host := os.Getenv(envPrefix + "SOLR_HOST"); host != "" {
		cfg.Solr.Host = host
	}

	if dbURL := os.Getenv(envPrefix + "DB_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}

	if port := os.Getenv(envPrefix + "PORT"); port != "" {
		cfg.Service.Port = port
	}

	applyConfigDefaults(&cfg)

	// never log credentials
	redacted := cfg
	if redacted.Database.URL != "" {
		redacted.Database.URL = "REDACTED"
	}
	if redacted.Service.JWTKey != "" {
		redacted.Service.JWTKey = "REDACTED"
	}

	bytes, err := json.Marshal(redacted)
	if err != nil {
		log.Error().Msgf("error encoding service config json: %s", err.Error())
		os.Exit(1)
	}

	log.Info().Msg("[CONFIG] composite json:")
	log.Info().Msgf("\n%s", string(bytes))

	return &cfg
}
