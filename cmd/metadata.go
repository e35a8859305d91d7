package main

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

type contentsParams struct {
	Year   string `form:"year" binding:"omitempty,year"`
	Limit  int    `form:"limit,default=15" binding:"min=0"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}

type volumesParams struct {
	Limit  int `form:"limit,default=100" binding:"min=0"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

type sourcesParams struct {
	Limit  int `form:"limit,default=15" binding:"min=0"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

var bookCodePattern = regexp.MustCompile(`(?i)^(?P<code>[a-z]+)(?P<num>[0-9]+)$`)

// normalizeSourceType maps the source type path segment onto the stored source types
func normalizeSourceType(srcType string) string {
	srcType = strings.ToLower(strings.TrimSpace(srcType))

	switch {
	case srcType == "journal" || srcType == "book":
		return srcType
	case strings.HasPrefix(srcType, "videos"):
		return "videos"
	case strings.HasPrefix(srcType, "video"):
		return "videostream"
	case strings.HasPrefix(srcType, "boo"):
		return "book"
	}

	return "journal"
}

// bookCode converts a base code such as "ZBK075" into the dotted form "ZBK.075"
func bookCode(baseCode string) string {
	groups := namedGroups(bookCodePattern, baseCode)
	if groups == nil {
		return baseCode
	}

	return fmt.Sprintf("%s.%s", groups["code"], groups["num"])
}

func (s *searchContext) bannerURL(code string) string {
	return fmt.Sprintf("http://%s/%s/banner%s.logo.gif", s.svc.config.Service.BaseURL, s.svc.config.Service.ImagesPath, code)
}

func (s *searchContext) sourceInfoItem(srcType string, row sourceRow) sourceInfoListItem {
	item := sourceInfoListItem{
		SourceType:   srcType,
		PEPCode:      row.SrcCode,
		Authors:      row.Author,
		PubYear:      row.PubYear,
		DisplayTitle: row.Title,
		Title:        row.Title,
		SrcTitle:     row.Title,
		Abbrev:       row.BibAbbrev,
		BannerURL:    s.bannerURL(row.SrcCode),
		Language:     row.Language,
		ISSN:         row.ISSN,
		YearFirst:    row.StartYear,
		YearLast:     row.EndYear,
		EmbargoYears: row.EmbargoYears,
	}

	if srcType == "book" {
		item.BookCode = bookCode(row.BaseCode)
		item.DisplayTitle = htmlBookCiteAs(row.Author, row.PubYear, row.Title, row.Publisher)
	}

	return item
}

func (s *searchContext) contents(code, year, vol string, limit, offset int) (*documentList, error) {
	field := "art_year"
	value := year

	if value == "" {
		value = "*"
	}

	if value == "*" && vol != "" {
		field = "art_vol"
		value = vol
	}

	q := fmt.Sprintf("art_pepsrccode:%s && %s:%s", strings.ToUpper(code), field, value)

	req := s.newDocsRequest(q, "", "art_year asc, art_pgrg asc", limit, offset)
	req.json.Params.Fl = []string{
		"art_id", "art_pepsrccode", "art_vol", "art_year", "art_iss", "art_iss_title", "art_newsecnm",
		"art_pgrg", "art_title", "art_author_id", "art_citeas_xml", "score",
	}

	res, err := s.solrQuery(req)
	if err != nil {
		return nil, err
	}

	items := []documentListItem{}

	for _, doc := range res.Response.Docs {
		item := documentItemFromSolr(doc)
		item.PEPCode = strings.ToUpper(code)

		items = append(items, item)
	}

	info := newResponseInfo("documentlist", len(items), limit, offset, res.Response.NumFound)
	info.ScopeQuery = q
	info.Request = s.client.requestURL()

	return &documentList{DocumentList: documentListStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

func (s *searchContext) volumes(code string, limit, offset int) (*volumeList, error) {
	code = strings.ToUpper(code)
	q := fmt.Sprintf("art_pepsrccode:%s && art_year:*", code)

	req := s.newDocsRequest(q, "{!collapse field=art_vol}", "art_year asc", limit, offset)
	req.json.Params.Fl = []string{"art_vol", "art_year", "score"}

	res, err := s.solrQuery(req)
	if err != nil {
		return nil, err
	}

	items := []volumeListItem{}

	for _, doc := range res.Response.Docs {
		items = append(items, volumeListItem{
			PEPCode: code,
			Vol:     doc.getString("art_vol"),
			Year:    doc.getString("art_year"),
			Score:   doc.getFloat("score"),
		})
	}

	info := newResponseInfo("volumelist", len(items), limit, offset, res.Response.NumFound)
	info.ScopeQuery = q
	info.Request = s.client.requestURL()

	return &volumeList{VolumeList: volumeListStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

// videos are listed individually from the docs core, as books are
func (s *searchContext) videoSources(code string, limit, offset int) (int, []sourceInfoListItem, error) {
	q := "art_pepsourcetype:video*"
	if code != "" {
		q = fmt.Sprintf("%s AND art_pepsrccode:%s", q, strings.ToUpper(code))
	}

	req := s.newDocsRequest(q, "", "art_citeas_xml asc", limit, offset)
	req.json.Params.Fl = []string{
		"art_id", "art_issn", "art_pepsrccode", "art_authors", "title", "art_pepsourcetitlefull",
		"art_pepsourcetitleabbr", "art_vol", "art_year", "art_citeas_xml", "art_lang", "art_pgrg",
	}

	res, err := s.solrQuery(req)
	if err != nil {
		return 0, nil, err
	}

	items := []sourceInfoListItem{}

	for _, doc := range res.Response.Docs {
		language := doc.getString("art_lang")
		if language == "" {
			language = "EN"
		}

		code := doc.getString("art_pepsrccode")

		items = append(items, sourceInfoListItem{
			SourceType:   "videos",
			PEPCode:      code,
			Authors:      strings.Join(doc.getStrings("art_authors"), "; "),
			PubYear:      doc.getString("art_year"),
			DocumentID:   doc.getString("art_id"),
			DisplayTitle: doc.getString("art_citeas_xml"),
			Title:        doc.getString("title"),
			SrcTitle:     doc.getString("title"),
			Abbrev:       doc.getString("art_pepsourcetitleabbr"),
			BannerURL:    s.bannerURL(code),
			Language:     language,
			ISSN:         doc.getString("art_issn"),
		})
	}

	return res.Response.NumFound, items, nil
}

func (s *searchContext) sources(srcType, code string, limit, offset int) (*sourceInfoList, error) {
	srcType = normalizeSourceType(srcType)

	var total int
	var items []sourceInfoListItem
	var err error

	if srcType == "videos" {
		if total, items, err = s.videoSources(code, limit, offset); err != nil {
			return nil, err
		}
	} else {
		if s.svc.store == nil {
			return nil, newStatusError(http.StatusServiceUnavailable, "relational store is not available")
		}

		var rows []sourceRow

		if total, rows, err = s.svc.store.GetSources(s.requestContext(), srcType, code, limit, offset); err != nil {
			return nil, err
		}

		items = []sourceInfoListItem{}

		for _, row := range rows {
			items = append(items, s.sourceInfoItem(srcType, row))
		}
	}

	if code != "" && len(items) == 0 {
		return nil, fmt.Errorf("%w: source %s", errNotFound, code)
	}

	info := newResponseInfo("sourceinfolist", len(items), limit, offset, total)
	info.FullCountComplete = len(items) == total
	info.ListLabel = fmt.Sprintf("%s List", srcType)
	info.ScopeQuery = "*"
	info.Request = s.client.requestURL()

	return &sourceInfoList{SourceInfo: sourceInfoStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

func (s *searchContext) handleContentsRequest() serviceResponse {
	var params contentsParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	c := s.client.ginCtx

	list, err := s.contents(c.Param("sourceCode"), params.Year, c.Param("vol"), params.Limit, params.Offset)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: list}
}

func (s *searchContext) handleVolumesRequest() serviceResponse {
	var params volumesParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	list, err := s.volumes(s.client.ginCtx.Param("sourceCode"), params.Limit, params.Offset)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: list}
}

func (s *searchContext) handleSourcesRequest() serviceResponse {
	var params sourcesParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	c := s.client.ginCtx

	code := c.Param("sourceCode")
	if code == "*" {
		code = ""
	}

	list, err := s.sources(c.Param("sourceType"), code, params.Limit, params.Offset)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: list}
}
