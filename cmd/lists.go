package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

type mostCitedParams struct {
	Period string `form:"period,default=5"`
	Limit  int    `form:"limit,default=5" binding:"min=0"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}

type mostDownloadedParams struct {
	Period      string `form:"period"`
	DocType     string `form:"doctype"`
	Author      string `form:"author"`
	Title       string `form:"title"`
	JournalName string `form:"journalName"`
	Limit       int    `form:"limit,default=5" binding:"min=0"`
	Offset      int    `form:"offset,default=0" binding:"min=0"`
}

type whatsNewParams struct {
	DaysBack int `form:"days_back"`
	Limit    int `form:"limit,default=5" binding:"min=0"`
	Offset   int `form:"offset,default=0" binding:"min=0"`
}

// view period codes used by PEP-Easy, mapped to vw_stat_most_viewed columns
var mostDownloadedPeriods = map[string]string{
	"0": "lastcalyear",
	"1": "lastweek",
	"2": "lastmonth",
	"3": "last6months",
	"4": "last12months",
}

const defaultDownloadColumn = "last12months"

func mostDownloadedColumn(period string) string {
	period = strings.ToLower(strings.TrimSpace(period))

	if column, ok := mostDownloadedPeriods[period]; ok == true {
		return column
	}

	if sliceContainsString(mostDownloadedColumns, period, false) == true {
		return period
	}

	return defaultDownloadColumn
}

func citePeriod(period string) string {
	period = strings.ToLower(strings.TrimSpace(period))

	if sliceContainsString(citePeriodValues, period, false) == false {
		return "5"
	}

	return period
}

func (s *searchContext) mostCited(period string, limit, offset int) (*documentList, error) {
	period = citePeriod(period)
	citeField := fmt.Sprintf("art_cited_%s", period)

	req := s.newDocsRequest("*:*", "art_pepsourcetype:journal", fmt.Sprintf("%s desc", citeField), limit, offset)
	req.json.Params.Fl = []string{
		"art_id", "art_vol", "art_iss", "art_year", "art_pepsrccode", citeField, "art_cited_all",
		"art_pepsourcetype", "art_pepsourcetitleabbr", "art_pepsourcetitlefull", "art_pgrg",
		"art_citeas_xml", "art_authors_mast", "abstracts_xml",
	}

	res, err := s.solrQuery(req)
	if err != nil {
		return nil, err
	}

	items := []documentListItem{}

	for _, doc := range res.Response.Docs {
		item := documentItemFromSolr(doc)

		item.InstanceCount = doc.getInt(citeField)
		item.Title = doc.getString("art_pepsourcetitlefull")
		item.Score = 0

		if mast := doc.getString("art_authors_mast"); mast != "" {
			item.AuthorMast = mast
		}

		items = append(items, item)
	}

	info := newResponseInfo("mostcited", len(items), limit, offset, res.Response.NumFound)
	info.Request = s.client.requestURL()

	return &documentList{DocumentList: documentListStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

func (s *searchContext) mostDownloaded(p mostDownloadedParams) (*documentList, error) {
	filter := mostDownloadedFilter{
		column:       mostDownloadedColumn(p.Period),
		documentType: p.DocType,
		author:       p.Author,
		title:        p.Title,
		journalName:  p.JournalName,
	}

	// "journals" and "all" are the legacy client's names for no source type restriction
	switch strings.ToLower(filter.documentType) {
	case "journals":
		filter.documentType = "journal"
	case "books":
		filter.documentType = "book"
	case "videos":
		filter.documentType = "videostream"
	case "all":
		filter.documentType = ""
	}

	total, rows, err := s.svc.store.GetMostDownloaded(s.requestContext(), filter, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}

	items := []documentListItem{}

	for _, row := range rows {
		item := newDocumentListItem()

		pgStart, pgEnd := splitPageRange(row.PgRg)
		citeAs := htmlCiteAs(row.HdgAuthor, row.PubYear, row.HdgTitle, row.SrcTitleSeries, row.Vol, row.PgRg)

		item.DocumentID = row.DocumentID
		item.InstanceCount = row.Last12Months
		item.Title = row.SrcTitleSeries
		item.PEPCode = row.JrnlCode
		item.AuthorMast = row.AuthorMast
		item.Year = row.PubYear
		item.Vol = row.Vol
		item.Issue = row.Issue
		item.PgRg = row.PgRg
		item.PgStart = pgStart
		item.PgEnd = pgEnd
		item.Count1 = row.LastWeek
		item.Count2 = row.LastMonth
		item.Count3 = row.Last6Months
		item.Count4 = row.Last12Months
		item.Count5 = row.LastCalYear
		item.DocumentRefHTML = citeAs
		item.DocumentRef = stripTags(citeAs)

		items = append(items, item)
	}

	info := newResponseInfo("mostviewed", len(items), p.Limit, p.Offset, total)
	info.Request = s.client.requestURL()

	return &documentList{DocumentList: documentListStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

func (s *searchContext) whatsNew(daysBack, limit, offset int) (*whatsNewList, error) {
	if daysBack <= 0 {
		daysBack = s.svc.config.Search.WhatsNewDays
	}

	fields := []string{"art_id", "art_vol", "art_iss", "art_year", "art_pepsrccode", "timestamp", "art_pepsourcetype"}
	collapse := "{!collapse field=art_pepsrccode max=art_year_int}"

	req := s.newDocsRequest(fmt.Sprintf("timestamp:[NOW-%dDAYS TO NOW]", daysBack), collapse, "timestamp desc", limit, offset)
	req.json.Params.Fl = fields

	res, err := s.solrQuery(req)
	if err != nil {
		return nil, err
	}

	if res.Response.NumFound == 0 {
		s.log("[WHATSNEW] nothing updated in the last %d days; expanding to the most recent journals", daysBack)

		req.json.Params.Q = "art_pepsourcetype:journal"

		if res, err = s.solrQuery(req); err != nil {
			return nil, err
		}
	}

	items := []whatsNewListItem{}
	seen := make(map[string]bool)

	for _, doc := range res.Response.Docs {
		if doc.getString("art_pepsourcetype") != "journal" {
			continue
		}

		code := doc.getString("art_pepsrccode")
		volume := doc.getString("art_vol")
		issue := doc.getString("art_iss")
		year := doc.getString("art_year")

		source, _ := s.svc.sources.lookup(code)

		displayTitle := fmt.Sprintf("%s v%s.%s (%s) ", source.BibAbbrev, volume, issue, year)
		if seen[displayTitle] == true {
			continue
		}
		seen[displayTitle] = true

		items = append(items, whatsNewListItem{
			DocumentID:   doc.getString("art_id"),
			DisplayTitle: displayTitle,
			Abbrev:       source.BibAbbrev,
			Volume:       volume,
			Issue:        issue,
			Year:         year,
			PEPCode:      code,
			SrcTitle:     source.Title,
			VolumeURL:    fmt.Sprintf("/v1/Metadata/Contents/%s/%s/", code, volume),
			Updated:      updatedDate(doc.getString("timestamp")),
		})
	}

	info := newResponseInfo("newlist", len(items), limit, offset, res.Response.NumFound)
	info.Request = s.client.requestURL()

	return &whatsNewList{WhatsNew: whatsNewListStruct{ResponseInfo: info, ResponseSet: items}}, nil
}

// updatedDate returns the date part of a Solr timestamp
func updatedDate(timestamp string) string {
	if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
		return t.UTC().Format("2006-01-02")
	}

	if i := strings.IndexByte(timestamp, 'T'); i > 0 {
		return timestamp[:i]
	}

	return timestamp
}

func (s *searchContext) handleMostCitedRequest() serviceResponse {
	var params mostCitedParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	list, err := s.mostCited(params.Period, params.Limit, params.Offset)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: list}
}

func (s *searchContext) handleMostDownloadedRequest() serviceResponse {
	var params mostDownloadedParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	if s.svc.store == nil {
		return errorResponse(newStatusError(http.StatusServiceUnavailable, "relational store is not available"))
	}

	list, err := s.mostDownloaded(params)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: list}
}

func (s *searchContext) handleWhatsNewRequest() serviceResponse {
	var params whatsNewParams

	if err := s.bindQuery(&params); err != nil {
		return errorResponse(err)
	}

	list, err := s.whatsNew(params.DaysBack, params.Limit, params.Offset)
	if err != nil {
		return errorResponse(err)
	}

	return serviceResponse{status: http.StatusOK, data: list}
}
