package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// serveRequest runs a /v1 request through a searchContext, records the
// endpoint against the session, and renders the JSON response
func (svc *serviceContext) serveRequest(c *gin.Context, endpointID int, documentID string, handle func(s *searchContext) serviceResponse) {
	cl := clientContext{}
	cl.init(svc, c)

	s := searchContext{}
	s.init(svc, &cl)

	cl.logRequest()

	// solr and store calls made by the handler share the request deadline
	parent := c.Request
	ctx, cancel := context.WithTimeout(parent.Context(), svc.requestTimeout())
	c.Request = parent.WithContext(ctx)

	resp := handle(&s)

	cancel()
	c.Request = parent

	cl.logResponse(resp)

	s.recordEndpoint(endpointID, documentID, resp)

	c.JSON(resp.status, resp.data)
}

func (svc *serviceContext) searchHandler(c *gin.Context) {
	mode := searchModeForPath(c.Request.URL.Path)

	endpointID := endpointDatabaseSearch

	switch mode {
	case searchModeAnalysis:
		endpointID = endpointDatabaseAnalysis
	case searchModeMoreLikeThese:
		endpointID = endpointDatabaseMoreLikeThis
	}

	svc.serveRequest(c, endpointID, "", func(s *searchContext) serviceResponse {
		return s.handleSearchRequest(mode)
	})
}

func (svc *serviceContext) mostCitedHandler(c *gin.Context) {
	svc.serveRequest(c, endpointDatabaseMostCited, "", (*searchContext).handleMostCitedRequest)
}

func (svc *serviceContext) mostDownloadedHandler(c *gin.Context) {
	svc.serveRequest(c, endpointDatabaseMostViewed, "", (*searchContext).handleMostDownloadedRequest)
}

func (svc *serviceContext) whatsNewHandler(c *gin.Context) {
	svc.serveRequest(c, endpointDatabaseWhatsNew, "", (*searchContext).handleWhatsNewRequest)
}

func (svc *serviceContext) contentsHandler(c *gin.Context) {
	endpointID := endpointMetadataContents
	if c.Param("vol") != "" {
		endpointID = endpointMetadataContentsVol
	}

	svc.serveRequest(c, endpointID, "", (*searchContext).handleContentsRequest)
}

func (svc *serviceContext) volumesHandler(c *gin.Context) {
	svc.serveRequest(c, endpointMetadataVolumes, "", (*searchContext).handleVolumesRequest)
}

func (svc *serviceContext) sourcesHandler(c *gin.Context) {
	svc.serveRequest(c, endpointMetadataSourceInfo, "", (*searchContext).handleSourcesRequest)
}

func (svc *serviceContext) authorIndexHandler(c *gin.Context) {
	svc.serveRequest(c, endpointAuthorsIndex, "", (*searchContext).handleAuthorIndexRequest)
}

func (svc *serviceContext) authorPublicationsHandler(c *gin.Context) {
	svc.serveRequest(c, endpointAuthorsPublications, "", (*searchContext).handleAuthorPublicationsRequest)
}

func (svc *serviceContext) abstractsHandler(c *gin.Context) {
	svc.serveRequest(c, endpointDocumentsAbstracts, c.Param("documentID"), (*searchContext).handleAbstractsRequest)
}

func (svc *serviceContext) documentHandler(c *gin.Context) {
	svc.serveRequest(c, endpointDocumentsDocument, c.Param("documentID"), (*searchContext).handleDocumentRequest)
}

func (svc *serviceContext) glossaryHandler(c *gin.Context) {
	svc.serveRequest(c, endpointDocumentsGlossary, c.Param("termID"), (*searchContext).handleGlossaryRequest)
}

func (svc *serviceContext) downloadHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(svc, c)

	s := searchContext{}
	s.init(svc, &cl)

	cl.logRequest()
	resp := s.handleDownloadRequest()
	cl.logResponse(resp)

	endpointID, ok := downloadEndpoints[strings.ToUpper(c.Param("retFormat"))]
	if ok == false {
		endpointID = endpointDownloadsXML
	}

	s.recordEndpoint(endpointID, c.Param("documentID"), resp)

	if resp.err != nil {
		c.JSON(resp.status, resp.data)
		return
	}

	dl := resp.data.(*download)

	if dl.path != "" {
		c.FileAttachment(dl.path, dl.filename)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dl.filename))
	c.Data(http.StatusOK, dl.contentType, dl.body)
}

func (svc *serviceContext) loginHandler(c *gin.Context) {
	svc.serveRequest(c, endpointLogin, "", (*searchContext).handleLoginRequest)
}

func (svc *serviceContext) logoutHandler(c *gin.Context) {
	svc.serveRequest(c, endpointLogout, "", (*searchContext).handleLogoutRequest)
}

func (svc *serviceContext) tokenHandler(c *gin.Context) {
	svc.serveRequest(c, endpointLoginStatus, "", (*searchContext).handleTokenRequest)
}

func (svc *serviceContext) statusHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(svc, c)

	s := searchContext{}
	s.init(svc, &cl)

	cl.logRequest()

	ping := s.handlePingRequest()

	dbOK := false
	if svc.store != nil {
		dbOK = svc.store.Ping(c.Request.Context()) == nil
	}

	status := serverStatusItem{
		TextServerOK: ping.err == nil,
		DBServerOK:   dbOK,
		UserIP:       c.ClientIP(),
		TimeStamp:    formatTimeStamp(cl.start),
	}

	resp := serviceResponse{status: http.StatusOK, data: status}
	cl.logResponse(resp)

	c.JSON(resp.status, resp.data)
}

func (svc *serviceContext) whoAmIHandler(c *gin.Context) {
	cookie := func(name string) interface{} {
		if val, err := c.Cookie(name); err == nil {
			return val
		}
		return nil
	}

	c.JSON(http.StatusOK, gin.H{
		"client_host":       c.ClientIP(),
		"referrer":          c.Request.Referer(),
		cookieSessionID:     cookie(cookieSessionID),
		cookieAccessToken:   cookie(cookieAccessToken),
		cookieSessionExpire: cookie(cookieSessionExpire),
	})
}

func (svc *serviceContext) ignoreHandler(c *gin.Context) {
}

func (svc *serviceContext) versionHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(svc, c)

	c.JSON(http.StatusOK, svc.version)
}

func (svc *serviceContext) healthCheckHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(svc, c)

	s := searchContext{}
	s.init(svc, &cl)

	ping := s.handlePingRequest()

	// build response

	internalServiceError := false

	type hcResp struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message,omitempty"`
	}

	hcSolr := hcResp{Healthy: true}
	if ping.err != nil {
		internalServiceError = true
		hcSolr = hcResp{Healthy: false, Message: ping.err.Error()}
	}

	hcDatabase := hcResp{Healthy: true}

	var dbErr error
	if svc.store == nil {
		dbErr = errors.New("relational store is not configured")
	} else {
		dbErr = svc.store.Ping(context.Background())
	}

	if dbErr != nil {
		internalServiceError = true
		hcDatabase = hcResp{Healthy: false, Message: dbErr.Error()}
	}

	hcMap := make(map[string]hcResp)
	hcMap["solr"] = hcSolr
	hcMap["database"] = hcDatabase

	hcStatus := http.StatusOK
	if internalServiceError == true {
		hcStatus = http.StatusInternalServerError
	}

	c.JSON(hcStatus, hcMap)
}

func getBearerToken(authorization string) (string, error) {
	components := strings.Split(strings.Join(strings.Fields(authorization), " "), " ")

	// must have two components, the first of which is "Bearer", and the second a non-empty token
	if len(components) != 2 || components[0] != "Bearer" || components[1] == "" {
		return "", fmt.Errorf("invalid Authorization header: [%s]", authorization)
	}

	token := components[1]

	if token == "undefined" {
		return "", errors.New("bearer token is undefined")
	}

	return token, nil
}
