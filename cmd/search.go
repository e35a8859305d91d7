package main

import (
	"fmt"
	"net/http"
	"strings"
)

type searchContext struct {
	svc    *serviceContext
	client *clientContext
}

type serviceResponse struct {
	status int         // http status code
	data   interface{} // data to return as JSON
	err    error       // error, if any
}

// searchOptions controls a docs core full-text search
type searchOptions struct {
	filterQ       string
	defType       string
	sort          string
	limit         int
	offset        int
	fullText      bool // return the document text instead of kwic excerpts
	moreLikeThese bool
}

var searchFields = []string{
	"art_id", "art_pepsrccode", "art_vol", "art_year", "art_iss", "art_iss_title", "art_newsecnm", "art_pgrg",
	"abstracts_xml", "art_title", "art_author_id", "art_citeas_xml", "text_xml", "score",
}

const moreLikeTheseFields = "text_xml,headings_xml,terms_xml,references_xml"

func (s *searchContext) init(svc *serviceContext, c *clientContext) {
	s.svc = svc
	s.client = c
}

func (s *searchContext) log(format string, args ...interface{}) {
	s.client.log(format, args...)
}

func (s *searchContext) warn(format string, args ...interface{}) {
	s.client.warn(format, args...)
}

func (s *searchContext) err(format string, args ...interface{}) {
	s.client.err(format, args...)
}

func (s *searchContext) newSolrRequest(core, handler string) *solrRequest {
	return &solrRequest{core: core, handler: handler}
}

func (s *searchContext) newDocsRequest(q string, fq string, sort string, limit, offset int) *solrRequest {
	req := s.newSolrRequest(s.svc.solr.cores.Docs, "select")

	req.json.Params.Q = q
	req.json.Params.Sort = sort
	req.json.Params.Rows = limit
	req.json.Params.Start = offset

	if fq = strings.TrimSpace(fq); fq != "" && fq != "*:*" {
		req.json.Params.Fq = []string{fq}
	}

	return req
}

// documentItemFromSolr fills in the bibliographic fields shared by every document list
func documentItemFromSolr(doc solrDocument) documentListItem {
	item := newDocumentListItem()

	citeAs := doc.getString("art_citeas_xml")
	pgStart, pgEnd := splitPageRange(doc.getString("art_pgrg"))

	item.PEPCode = doc.getString("art_pepsrccode")
	item.DocumentID = doc.getString("art_id")
	item.AuthorMast = authorMastFromIDs(doc.getStrings("art_author_id"))
	item.Title = doc.getString("art_title")
	item.Year = doc.getString("art_year")
	item.Vol = doc.getString("art_vol")
	item.Issue = doc.getString("art_iss")
	item.IssueTitle = doc.getString("art_iss_title")
	item.NewSectionName = doc.getString("art_newsecnm")
	item.PgRg = doc.getString("art_pgrg")
	item.PgStart = pgStart
	item.PgEnd = pgEnd
	item.DocumentRefHTML = citeAs
	item.DocumentRef = stripTags(citeAs)
	item.Abstract = doc.getString("abstracts_xml")
	item.Score = doc.getFloat("score")

	return item
}

// searchText runs a full-text search against the docs core and reshapes the hits
// into a document list.  a search with a filter that finds nothing is retried
// once without the filter.
func (s *searchContext) searchText(query string, opts searchOptions) (*documentList, error) {
	cfg := s.svc.config.Search

	fullText := opts.fullText
	if fullText == true && s.client.isAuthenticated() == false {
		s.warn("full text requested but not authenticated; returning excerpts")
		fullText = false
	}

	fragSize := cfg.KwicFragSize
	if fullText == true {
		fragSize = cfg.FullTextFragSize
	}

	req := s.newDocsRequest(query, opts.filterQ, opts.sort, opts.limit, opts.offset)

	p := &req.json.Params
	p.DefType = opts.defType
	p.Fl = searchFields
	p.Hl = "true"
	p.HlFl = []string{"text_xml"}
	p.HlFragsize = fragSize
	p.HlSnippets = cfg.MaxKwicReturns
	p.HlMultiTermQuery = "true"
	p.HlUsePhraseHighlighter = "true"
	p.HlSimplePre = cfg.HitMarkerStart
	p.HlSimplePost = cfg.HitMarkerEnd

	if opts.moreLikeThese == true {
		p.Mlt = "true"
		p.MltFl = moreLikeTheseFields
		p.MltCount = 2
		p.MltMinwl = 8
	}

	s.log("[SEARCH] q: [%s] fq: [%s]", query, opts.filterQ)

	res, err := s.solrQuery(req)
	if err != nil {
		return nil, err
	}

	if res.Response.NumFound == 0 && len(p.Fq) > 0 {
		s.log("[SEARCH] no hits with filter [%s]; retrying without it", p.Fq[0])
		s.svc.metrics.searchFallbacks.Inc()

		p.Fq = nil

		if res, err = s.solrQuery(req); err != nil {
			return nil, err
		}
	}

	items := []documentListItem{}

	for i, doc := range res.Response.Docs {
		item := documentItemFromSolr(doc)
		item.Rank = i + 1

		highlights := res.Highlighting[item.DocumentID]["text_xml"]

		if fullText == false {
			item.KwicList = kwicFromHighlights(highlights, cfg)
			item.Kwic = joinKwic(item.KwicList)
		} else {
			// prefer the highlighted text unless the highlighter truncated it
			stored := doc.getString("text_xml")
			text := strings.Join(highlights, "")

			if text == "" || len(stored) > len(text) {
				text = stored
			}

			item.Document = text
		}

		if opts.moreLikeThese == true {
			if similar, ok := res.MoreLikeThis[item.DocumentID]; ok == true {
				item.SimilarDocs = similar.Docs
				item.SimilarMaxScore = similar.MaxScore
				item.SimilarNumFound = similar.NumFound
			}
		}

		items = append(items, item)
	}

	info := newResponseInfo("documentlist", len(items), opts.limit, opts.offset, res.Response.NumFound)
	info.TotalMatchCount = res.Response.NumFound
	info.ScopeQuery = query
	info.SolrParams = res.ResponseHeader.Params
	info.Request = s.client.requestURL()

	list := documentList{DocumentList: documentListStruct{ResponseInfo: info, ResponseSet: items}}

	return &list, nil
}

// searchAnalysis reports the number of hits for each clause of a query on its own,
// followed by the hit count of the combined query
func (s *searchContext) searchAnalysis(parts solrQueryParts) (*documentList, error) {
	items := []documentListItem{}

	countFor := func(q, fq string) (int, error) {
		req := s.newDocsRequest(q, fq, "", 0, 0)
		req.json.Params.DefType = parts.defType
		req.json.Params.Fl = []string{"art_id"}

		res, err := s.solrQuery(req)
		if err != nil {
			return 0, err
		}

		return res.Response.NumFound, nil
	}

	for _, clause := range queryClauses(parts.searchQ) {
		count, err := countFor(clause, "")
		if err != nil {
			return nil, err
		}

		s.log("[ANALYSIS] term [%s] matches %d", clause, count)

		item := documentListItem{Term: clause, TermCount: &count, KwicList: []string{}}
		items = append(items, item)
	}

	if len(items) > 0 {
		combined, err := countFor(parts.searchQ, parts.filterQ)
		if err != nil {
			return nil, err
		}

		items = append(items, documentListItem{Term: "combined", TermCount: &combined, KwicList: []string{}})
	}

	info := newResponseInfo("srclist", len(items), len(items), 0, len(items))
	info.FullCountComplete = true
	info.ScopeQuery = parts.searchQ
	info.Request = s.client.requestURL()

	list := documentList{DocumentList: documentListStruct{ResponseInfo: info, ResponseSet: items}}

	return &list, nil
}

func (s *searchContext) bindQuery(params interface{}) error {
	if err := s.client.ginCtx.ShouldBindQuery(params); err != nil {
		return fmt.Errorf("%w: %s", errInvalidParameter, err.Error())
	}

	return nil
}

func (s *searchContext) handleSearchRequest(mode searchMode) serviceResponse {
	var params searchParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	parts, err := buildSolrQuery(params, s.svc.sources)
	if err != nil {
		return errorResponse(err)
	}

	for _, warning := range parts.warnings {
		s.warn("[SEARCH] ignoring parameter: %s", warning)
	}

	var list *documentList

	switch mode {
	case searchModeAnalysis:
		list, err = s.searchAnalysis(parts)

	default:
		list, err = s.searchText(parts.searchQ, searchOptions{
			filterQ:       parts.filterQ,
			defType:       parts.defType,
			sort:          parts.sort,
			limit:         params.Limit,
			offset:        params.Offset,
			moreLikeThese: mode == searchModeMoreLikeThese,
		})
	}

	if err != nil {
		return errorResponse(err)
	}

	s.log("[SEARCH] %d hits; mode: %d", len(list.DocumentList.ResponseSet), mode)

	return serviceResponse{status: http.StatusOK, data: list}
}

// handlePingRequest checks the docs core with a single-row query
func (s *searchContext) handlePingRequest() serviceResponse {
	req := s.newDocsRequest(fmt.Sprintf("art_id:%s", s.svc.config.Solr.StatusDocumentID), "", "", 1, 0)
	req.json.Params.Fl = []string{"art_id"}

	if _, err := s.solrQuery(req); err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK}
}
