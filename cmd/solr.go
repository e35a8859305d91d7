package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

func (s *searchContext) solrURL(req *solrRequest) string {
	return fmt.Sprintf("%s/%s/%s", s.svc.solr.host, req.core, req.handler)
}

func (s *searchContext) requestContext() context.Context {
	if s.client.ginCtx != nil && s.client.ginCtx.Request != nil {
		return s.client.ginCtx.Request.Context()
	}

	return context.Background()
}

func (s *searchContext) waitForSolr(ctx context.Context, core string) error {
	limiter := s.svc.solr.limiter

	if limiter == nil {
		return nil
	}

	if limiter.Allow() == true {
		return nil
	}

	s.svc.metrics.solrRateLimited.WithLabelValues(core).Inc()

	if err := limiter.Wait(ctx); err != nil {
		return newStatusError(http.StatusServiceUnavailable, fmt.Sprintf("solr rate limit wait failed: %s", err.Error()))
	}

	return nil
}

func (s *searchContext) solrQuery(req *solrRequest) (*solrResponse, error) {
	url := s.solrURL(req)
	ctx := s.requestContext()

	if s.client.opts.debug == true {
		req.json.Params.DebugQuery = "on"
	}

	jsonBytes, jsonErr := json.Marshal(req.json)
	if jsonErr != nil {
		s.log("Marshal() failed: %s", jsonErr.Error())
		return nil, fmt.Errorf("failed to marshal Solr JSON: %w", jsonErr)
	}

	if err := s.waitForSolr(ctx, req.core); err != nil {
		return nil, err
	}

	httpReq, reqErr := http.NewRequestWithContext(ctx, "GET", url, bytes.NewBuffer(jsonBytes))
	if reqErr != nil {
		s.log("NewRequest() failed: %s", reqErr.Error())
		return nil, fmt.Errorf("failed to create Solr request: %w", reqErr)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if s.client.opts.verbose == true {
		s.log("[SOLR] req: [%s]", string(jsonBytes))
	} else {
		s.log("[SOLR] req: [%s] fq: %v", req.json.Params.Q, req.json.Params.Fq)
	}

	start := time.Now()
	res, resErr := s.svc.solr.client.Do(httpReq)
	elapsed := time.Since(start)
	elapsedMS := int64(elapsed / time.Millisecond)

	s.svc.metrics.solrDuration.WithLabelValues(req.core).Observe(elapsed.Seconds())

	// external service failure logging (scenario 1)

	if resErr != nil {
		status := http.StatusBadRequest
		errMsg := resErr.Error()
		if strings.Contains(errMsg, "Timeout") {
			status = http.StatusRequestTimeout
			errMsg = fmt.Sprintf("%s timed out", url)
		} else if strings.Contains(errMsg, "connection refused") {
			status = http.StatusServiceUnavailable
			errMsg = fmt.Sprintf("%s refused connection", url)
		}

		s.svc.metrics.solrRequests.WithLabelValues(req.core, "failed").Inc()

		s.log("client.Do() failed: %s", resErr.Error())
		s.err("Failed response from GET %s - %d:%s. Elapsed Time: %d (ms)", url, status, errMsg, elapsedMS)
		return nil, newStatusError(status, errMsg)
	}

	defer res.Body.Close()

	var solrRes solrResponse

	decoder := json.NewDecoder(res.Body)

	// external service failure logging (scenario 2)

	if decErr := decoder.Decode(&solrRes); decErr != nil {
		s.svc.metrics.solrRequests.WithLabelValues(req.core, "failed").Inc()

		s.log("Decode() failed: %s", decErr.Error())
		s.err("Failed response from GET %s - %d:%s. Elapsed Time: %d (ms)", url, http.StatusInternalServerError, decErr.Error(), elapsedMS)
		return nil, fmt.Errorf("failed to decode Solr response: %w", decErr)
	}

	// external service success logging

	s.log("Successful Solr response from GET %s. Elapsed Time: %d (ms)", url, elapsedMS)

	logHeader := fmt.Sprintf("[SOLR] res: header: { status = %d, QTime = %d }", solrRes.ResponseHeader.Status, solrRes.ResponseHeader.QTime)

	// quick validation
	if solrRes.ResponseHeader.Status != 0 || solrRes.Error.Code != 0 {
		s.svc.metrics.solrRequests.WithLabelValues(req.core, "error").Inc()

		s.log("%s, error: { code = %d, msg = %s }", logHeader, solrRes.Error.Code, solrRes.Error.Msg)

		status := solrRes.Error.Code
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}

		return nil, newStatusError(status, fmt.Sprintf("%d - %s", solrRes.Error.Code, solrRes.Error.Msg))
	}

	if err := solrRes.convertMoreLikeThis(); err != nil {
		s.err("more-like-this conversion failed: %s", err.Error())
		return nil, err
	}

	s.svc.metrics.solrRequests.WithLabelValues(req.core, "ok").Inc()

	s.log("%s, body: { start = %d, rows = %d, total = %d, maxScore = %0.2f }", logHeader, solrRes.Response.Start, len(solrRes.Response.Docs), solrRes.Response.NumFound, solrRes.Response.MaxScore)

	return &solrRes, nil
}
