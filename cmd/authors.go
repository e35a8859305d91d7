package main

import (
	"fmt"
	"net/http"
	"strings"
)

type authorsParams struct {
	Limit  int `form:"limit,default=15" binding:"min=0"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

var authorPublicationFields = []string{
	"art_author_id", "art_year_int", "art_year", "art_id", "art_auth_pos_int",
	"art_author_role", "art_author_bio", "art_citeas_xml", "score",
}

// patterns tried in order until one finds publications
var authorPublicationPatterns = []string{
	"art_author_id:/%s/",
	"art_author_id:/%s[ ]?.*/",
	"art_author_id:/(.*[ ])?%s[ ]?.*/",
}

func (s *searchContext) authorIndex(partial string, limit, offset int) (*authorIndex, error) {
	req := s.newSolrRequest(s.svc.solr.cores.Authors, "terms")

	p := &req.json.Params
	p.TermsFl = "art_author_id"
	p.TermsSort = "index"
	p.TermsLimit = limit

	if strings.ContainsAny(partial, "*?.") {
		p.TermsRegex = strings.ToLower(partial) + ".*"
	} else {
		p.TermsPrefix = strings.ToLower(partial)
	}

	res, err := s.solrQuery(req)
	if err != nil {
		return nil, err
	}

	terms, err := res.terms("art_author_id")
	if err != nil {
		return nil, fmt.Errorf("failed to read author terms: %w", err)
	}

	items := []authorIndexItem{}

	for _, term := range terms {
		if term.Count <= 0 {
			continue
		}

		items = append(items, authorIndexItem{
			AuthorID:          term.Term,
			PublicationsURL:   fmt.Sprintf("/v1/Authors/Publications/%s/", term.Term),
			PublicationsCount: term.Count,
		})
	}

	info := newResponseInfo("authorindex", len(items), limit, offset, len(items))
	info.FullCountComplete = limit >= len(items)
	info.ScopeQuery = fmt.Sprintf("Terms: %s", partial)
	info.SolrParams = res.ResponseHeader.Params
	info.Request = s.client.requestURL()

	return &authorIndex{AuthorIndex: authorIndexStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

func (s *searchContext) authorPublications(partial string, limit, offset int) (*authorPubList, error) {
	var res *solrResponse
	var query string

	for _, pattern := range authorPublicationPatterns {
		query = fmt.Sprintf(pattern, partial)

		req := s.newSolrRequest(s.svc.solr.cores.Authors, "select")
		req.json.Params.Q = query
		req.json.Params.Fl = authorPublicationFields
		req.json.Params.Sort = "art_author_id asc, art_year_int asc"
		req.json.Params.Rows = limit
		req.json.Params.Start = offset

		var err error

		if res, err = s.solrQuery(req); err != nil {
			return nil, err
		}

		if res.Response.NumFound > 0 {
			break
		}

		s.log("[AUTHORS] no publications for [%s]", query)
	}

	items := []authorPubListItem{}

	for _, doc := range res.Response.Docs {
		id := doc.getString("art_id")
		citeAs := doc.getString("art_citeas_xml")

		items = append(items, authorPubListItem{
			AuthorID:        doc.getString("art_author_id"),
			DocumentID:      id,
			DocumentRefHTML: citeAs,
			DocumentRef:     stripTags(citeAs),
			DocumentURL:     fmt.Sprintf("/v1/Documents/%s", id),
			Year:            doc.getString("art_year"),
			Score:           doc.getFloat("score"),
		})
	}

	info := newResponseInfo("authorpublist", len(items), limit, offset, res.Response.NumFound)
	info.ScopeQuery = query
	info.SolrParams = res.ResponseHeader.Params
	info.Request = s.client.requestURL()

	return &authorPubList{AuthorPubList: authorPubListStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

func (s *searchContext) handleAuthorIndexRequest() serviceResponse {
	var params authorsParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	partial := strings.TrimSpace(s.client.ginCtx.Param("authorNamePartial"))
	if partial == "" {
		return errorResponse(fmt.Errorf("%w: author name is required", errInvalidParameter))
	}

	index, err := s.authorIndex(partial, params.Limit, params.Offset)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: index}
}

func (s *searchContext) handleAuthorPublicationsRequest() serviceResponse {
	var params authorsParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	partial := strings.TrimSpace(s.client.ginCtx.Param("authorNamePartial"))
	if partial == "" {
		return errorResponse(fmt.Errorf("%w: author name is required", errInvalidParameter))
	}

	list, err := s.authorPublications(partial, params.Limit, params.Offset)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: list}
}
