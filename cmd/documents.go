package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin/binding"
)

type abstractsParams struct {
	RetFormat string `form:"retFormat,default=HTML" binding:"docformat"`
	Limit     int    `form:"limit,default=5" binding:"min=0"`
	Offset    int    `form:"offset,default=0" binding:"min=0"`
}

type documentParams struct {
	RetFormat string `form:"retFormat,default=XML" binding:"docformat"`
	Search    string `form:"search"`
}

type glossaryParams struct {
	RetFormat string `form:"retFormat,default=XML" binding:"docformat"`
}

type downloadParams struct {
	RetFormat  string `uri:"retFormat" binding:"required,downloadformat"`
	DocumentID string `uri:"documentID" binding:"required"`
}

// download describes a document body or stored file to return as an attachment
type download struct {
	filename    string
	contentType string
	body        []byte
	path        string // set when the attachment is served from disk
}

var abstractFields = []string{
	"art_id", "art_pepsrccode", "art_pepsourcetitlefull", "art_vol", "art_year", "art_iss", "art_citeas_xml", "art_pgrg",
	"art_title_xml", "art_title", "art_authors", "art_authors_xml", "abstracts_xml", "summaries_xml", "text_xml", "score",
}

// documentIDs become file names, so only plain identifiers are accepted
func validDocumentID(id string) bool {
	return id != "" && strings.ContainsAny(id, `/\`) == false && strings.Contains(id, "..") == false
}

func (s *searchContext) abstracts(documentID, retFormat string, limit, offset int) (*documents, error) {
	retFormat = strings.ToUpper(retFormat)
	authenticated := s.client.isAuthenticated()

	req := s.newDocsRequest(fmt.Sprintf("art_id:%s*", documentID), "", "art_year asc, art_pgrg asc", limit, offset)
	req.json.Params.Fl = abstractFields

	res, err := s.solrQuery(req)
	if err != nil {
		return nil, err
	}

	s.log("[DOCUMENTS] %d document matches for abstracts of %s", len(res.Response.Docs), documentID)

	items := []documentListItem{}

	for _, doc := range res.Response.Docs {
		item := documentItemFromSolr(doc)

		authorMast, _ := authorMastFromXML(doc.getString("art_authors_xml"))
		if authorMast == "" {
			authorMast = joinAuthorNames(doc.getStrings("art_authors"))
		}

		title := doc.getString("art_title_xml")
		if title == "" {
			title = doc.getString("art_title")
		}

		abstract := excerpt(doc.getString("abstracts_xml"), doc.getString("summaries_xml"), doc.getString("text_xml"))

		heading := abstractHeading{
			sourceTitle: doc.getString("art_pepsourcetitlefull"),
			year:        item.Year,
			vol:         item.Vol,
			issue:       item.Issue,
			pgrg:        item.PgRg,
			title:       title,
			authorMast:  authorMast,
		}

		accessLimited := authenticated == false

		item.AuthorMast = authorMast
		item.Title = title
		item.Abstract = abstractWithHeadings(abstract, heading, retFormat)
		item.AccessLimited = &accessLimited

		items = append(items, item)
	}

	info := newResponseInfo("documentlist", len(items), limit, offset, res.Response.NumFound)
	info.Request = s.client.requestURL()

	return &documents{Documents: documentListStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

// searchPartsFromURL rebuilds the query of an earlier search from its query string
func searchPartsFromURL(search string, sources sourceLookup) (solrQueryParts, error) {
	if i := strings.IndexByte(search, '?'); i >= 0 {
		search = search[i+1:]
	}

	values, err := url.ParseQuery(search)
	if err != nil {
		return solrQueryParts{}, fmt.Errorf("%w: search %q", errInvalidParameter, search)
	}

	var params searchParams

	if err := binding.MapFormWithTag(&params, values, "form"); err != nil {
		return solrQueryParts{}, fmt.Errorf("%w: search %q: %s", errInvalidParameter, search, err.Error())
	}

	return buildSolrQuery(params, sources)
}

func (s *searchContext) document(documentID, search string) (*documents, error) {
	if s.client.isAuthenticated() == false {
		s.log("[DOCUMENTS] not authenticated; returning abstract for %s", documentID)

		docs, err := s.abstracts(documentID, "HTML", 1, 0)
		if err != nil {
			return nil, err
		}

		if len(docs.Documents.ResponseSet) == 0 {
			return nil, fmt.Errorf("%w: %s", errNotFound, documentID)
		}

		return docs, nil
	}

	var list *documentList

	if search != "" {
		parts, err := searchPartsFromURL(search, s.svc.sources)

		if err == nil {
			query := fmt.Sprintf("art_id:%s && %s", documentID, strings.TrimSpace(parts.searchQ))

			list, err = s.searchText(query, searchOptions{
				filterQ:  parts.filterQ,
				defType:  parts.defType,
				limit:    1,
				fullText: true,
			})
		}

		if err != nil {
			s.warn("[DOCUMENTS] prior search could not be repeated: %s", err.Error())
			list = nil
		}
	}

	if list == nil || len(list.DocumentList.ResponseSet) == 0 {
		var err error

		list, err = s.searchText(fmt.Sprintf("art_id:%s", documentID), searchOptions{limit: 1, fullText: true})
		if err != nil {
			return nil, err
		}
	}

	if len(list.DocumentList.ResponseSet) == 0 {
		return nil, fmt.Errorf("%w: %s", errNotFound, documentID)
	}

	info := list.DocumentList.ResponseInfo
	info.Count = 1

	docs := documents{Documents: documentListStruct{
		ResponseInfo: info,
		ResponseSet:  list.DocumentList.ResponseSet[:1],
	}}

	return &docs, nil
}

func (s *searchContext) glossaryEntry(termID string) (*documents, error) {
	if s.client.isAuthenticated() == false {
		return nil, errNotAuthenticated
	}

	termID = strings.ToUpper(termID)

	req := s.newSolrRequest(s.svc.solr.cores.Glossary, "select")
	req.json.Params.Q = fmt.Sprintf("term_id:%s || group_id:%s", termID, termID)
	req.json.Params.Fl = []string{"term_id", "group_id", "term_type", "term_source", "group_term_count", "art_id", "text", "score"}
	req.json.Params.Rows = 100

	res, err := s.solrQuery(req)
	if err != nil {
		return nil, err
	}

	items := []documentListItem{}

	for _, doc := range res.Response.Docs {
		item := newDocumentListItem()

		item.PEPCode = "ZBK"
		item.DocumentID = doc.getString("art_id")
		item.Title = doc.getString("term_source")
		item.Document = doc.getString("text")
		item.Score = doc.getFloat("score")

		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: glossary term %s", errNotFound, termID)
	}

	info := newResponseInfo("documentlist", len(items), len(items), 0, len(items))
	info.FullCountComplete = true
	info.Request = s.client.requestURL()

	return &documents{Documents: documentListStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

func (s *searchContext) prepareDownload(retFormat, documentID string) (*download, error) {
	if s.client.isAuthenticated() == false {
		return nil, errNotAuthenticated
	}

	switch strings.ToUpper(retFormat) {
	case "XML":
		req := s.newDocsRequest(fmt.Sprintf("art_id:%s", documentID), "", "", 1, 0)
		req.json.Params.Fl = []string{"art_id", "art_citeas_xml", "text_xml"}

		res, err := s.solrQuery(req)
		if err != nil {
			return nil, err
		}

		if len(res.Response.Docs) == 0 || res.Response.Docs[0].getString("text_xml") == "" {
			return nil, fmt.Errorf("%w: %s", errNotFound, documentID)
		}

		return &download{
			filename:    documentID + ".xml",
			contentType: "application/xml; charset=utf-8",
			body:        []byte(res.Response.Docs[0].getString("text_xml")),
		}, nil

	case "PDFORIG":
		path := filepath.Join(s.svc.config.Service.PDFDir, documentID+".PDF")

		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: original PDF for %s", errNotFound, documentID)
			}

			return nil, fmt.Errorf("failed to access original PDF: %w", err)
		}

		return &download{
			filename:    documentID + ".PDF",
			contentType: "application/pdf",
			path:        path,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", errUnsupportedFormat, retFormat)
}

func (s *searchContext) handleAbstractsRequest() serviceResponse {
	var params abstractsParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	documentID := s.client.ginCtx.Param("documentID")

	docs, err := s.abstracts(documentID, params.RetFormat, params.Limit, params.Offset)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: docs}
}

func (s *searchContext) handleDocumentRequest() serviceResponse {
	var params documentParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	documentID := s.client.ginCtx.Param("documentID")

	docs, err := s.document(documentID, params.Search)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: docs}
}

func (s *searchContext) handleGlossaryRequest() serviceResponse {
	var params glossaryParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	docs, err := s.glossaryEntry(s.client.ginCtx.Param("termID"))
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: docs}
}

func (s *searchContext) handleDownloadRequest() serviceResponse {
	var params downloadParams

	if err := s.client.ginCtx.ShouldBindUri(&params); err != nil {
		return errorResponse(fmt.Errorf("%w: %s", errInvalidParameter, err.Error()))
	}

	if validDocumentID(params.DocumentID) == false {
		return errorResponse(fmt.Errorf("%w: document id %q", errInvalidParameter, params.DocumentID))
	}

	dl, err := s.prepareDownload(params.RetFormat, params.DocumentID)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: dl}
}
