package main

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

/**
 * Main entry point for the web service
 */
func main() {
	log.Info().Msg("===> opas-solr-ws starting up <===")

	cfg := loadConfig()
	svc := initializeService(cfg)

	gin.SetMode(gin.ReleaseMode)
	//gin.DisableConsoleColor()

	router := gin.Default()

	router.Use(gzip.Gzip(gzip.DefaultCompression))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOriginFunc = func(origin string) bool { return true }
	corsCfg.AllowCredentials = true
	corsCfg.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsCfg))

	p := ginprometheus.NewPrometheus("gin")

	// roundabout setup of /metrics endpoint to avoid double-gzip of response
	router.Use(p.HandlerFunc())
	h := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}))

	router.GET(p.MetricsPath, func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	})

	if svc.config.Service.Pprof == true {
		pprof.Register(router)
	}

	registerRoutes(svc, router)

	if dir := svc.config.Service.DocsDir; dir != "" {
		router.Use(static.Serve("/docs", static.LocalFile(dir, false)))
	}

	portStr := fmt.Sprintf(":%s", svc.config.Service.Port)
	log.Info().Msgf("Start service on %s", portStr)

	log.Fatal().Err(router.Run(portStr)).Msg("service exited")
}

func registerRoutes(svc *serviceContext, router *gin.Engine) {
	router.GET("/favicon.ico", svc.ignoreHandler)

	router.GET("/version", svc.versionHandler)
	router.GET("/healthcheck", svc.healthCheckHandler)
	router.GET("/WhoAmI", svc.whoAmIHandler)

	v1 := router.Group("/v1", svc.sessionMiddleware)

	if db := v1.Group("/Database"); db != nil {
		db.GET("/Search/", svc.searchHandler)
		db.GET("/SearchAnalyses/", svc.searchHandler)
		db.GET("/MoreLikeThese/", svc.searchHandler)
		db.GET("/MostCited/", svc.mostCitedHandler)
		db.GET("/MostDownloaded/", svc.mostDownloadedHandler)
		db.GET("/WhatsNew/", svc.whatsNewHandler)
	}

	if md := v1.Group("/Metadata"); md != nil {
		md.GET("/Contents/:sourceCode/", svc.contentsHandler)
		md.GET("/Contents/:sourceCode/:vol/", svc.contentsHandler)
		md.GET("/Volumes/:sourceCode/", svc.volumesHandler)
		md.GET("/:sourceType/", svc.sourcesHandler)
		md.GET("/:sourceType/:sourceCode/", svc.sourcesHandler)
	}

	if au := v1.Group("/Authors"); au != nil {
		au.GET("/Index/:authorNamePartial/", svc.authorIndexHandler)
		au.GET("/Publications/:authorNamePartial/", svc.authorPublicationsHandler)
	}

	if docs := v1.Group("/Documents"); docs != nil {
		docs.GET("/Abstracts/:documentID/", svc.abstractsHandler)
		docs.GET("/Document/:documentID/", svc.documentHandler)
		docs.GET("/Glossary/:termID/", svc.glossaryHandler)
		docs.GET("/Downloads/:retFormat/:documentID/", svc.downloadHandler)
		docs.GET("/:documentID/", svc.documentHandler)
	}

	v1.GET("/Status/", svc.statusHandler)
	v1.GET("/Login/", svc.loginHandler)
	v1.GET("/Logout/", svc.logoutHandler)
	v1.GET("/Token/", svc.tokenHandler)
}
