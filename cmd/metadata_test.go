package main

import (
	"net/http"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSourceType(t *testing.T) {
	assert.Equal(t, "journal", normalizeSourceType("Journal"))
	assert.Equal(t, "book", normalizeSourceType("Books"))
	assert.Equal(t, "videos", normalizeSourceType("Videos"))
	assert.Equal(t, "videostream", normalizeSourceType("video"))
	assert.Equal(t, "journal", normalizeSourceType("magazine"))
}

func TestBookCode(t *testing.T) {
	assert.Equal(t, "ZBK.075", bookCode("ZBK075"))
	assert.Equal(t, "ipl.022", bookCode("ipl022"))
	assert.Equal(t, "SE", bookCode("SE"))
}

func TestContents(t *testing.T) {
	solr := &fakeSolr{respond: func(req fakeSolrRequest) interface{} {
		return solrDocs(2,
			map[string]interface{}{"art_id": "IJP.031.0001A", "art_vol": "31", "art_year": "1950", "art_pgrg": "1-5"},
			map[string]interface{}{"art_id": "IJP.031.0006A", "art_vol": "31", "art_year": "1950", "art_pgrg": "6-12"},
		)
	}}

	svc := newTestService(t, solr)

	s, _ := newTestSearch(svc, "/v1/Metadata/Contents/ijp/31/", nil, paramsOf("sourceCode", "ijp", "vol", "31")...)

	resp := s.handleContentsRequest()
	require.Equal(t, http.StatusOK, resp.status)

	list := resp.data.(*documentList)
	require.Len(t, list.DocumentList.ResponseSet, 2)
	assert.Equal(t, "IJP", list.DocumentList.ResponseSet[0].PEPCode)
	assert.Equal(t, "6", list.DocumentList.ResponseSet[1].PgStart)

	req := solr.recorded()[0]
	assert.Equal(t, "art_pepsrccode:IJP && art_vol:31", req.params.Q)
	assert.Equal(t, "art_year asc, art_pgrg asc", req.params.Sort)
	assert.Equal(t, 15, req.params.Rows)

	s, _ = newTestSearch(svc, "/v1/Metadata/Contents/IJP/?year=1950", nil, paramsOf("sourceCode", "IJP")...)
	require.Equal(t, http.StatusOK, s.handleContentsRequest().status)
	assert.Equal(t, "art_pepsrccode:IJP && art_year:1950", solr.recorded()[1].params.Q)

	s, _ = newTestSearch(svc, "/v1/Metadata/Contents/IJP/?year=soon", nil, paramsOf("sourceCode", "IJP")...)
	assert.Equal(t, http.StatusBadRequest, s.handleContentsRequest().status)
}

func TestVolumes(t *testing.T) {
	solr := &fakeSolr{respond: func(req fakeSolrRequest) interface{} {
		return solrDocs(2,
			map[string]interface{}{"art_vol": "1", "art_year": "1920"},
			map[string]interface{}{"art_vol": "2", "art_year": "1921"},
		)
	}}

	svc := newTestService(t, solr)
	s, _ := newTestSearch(svc, "/v1/Metadata/Volumes/ijp/", nil, paramsOf("sourceCode", "ijp")...)

	resp := s.handleVolumesRequest()
	require.Equal(t, http.StatusOK, resp.status)

	list := resp.data.(*volumeList)
	require.Len(t, list.VolumeList.ResponseSet, 2)
	assert.Equal(t, volumeListItem{PEPCode: "IJP", Vol: "2", Year: "1921"}, list.VolumeList.ResponseSet[1])
	assert.Equal(t, "volumelist", list.VolumeList.ResponseInfo.ListType)

	req := solr.recorded()[0]
	assert.Equal(t, []string{"{!collapse field=art_vol}"}, req.params.Fq)
	assert.Equal(t, 100, req.params.Rows)
}

func TestSourcesFromStore(t *testing.T) {
	svc := newTestService(t, nil)

	store, mock := newMockStore(t)
	svc.store = store

	rows := pgxmock.NewRows(sourceColumns).
		AddRow("ZBK.075", "ZBK075", "book", "The Piggle", "Winnicott, D. W.", "1977", "Hogarth Press", "Piggle", "EN", "", "", "", "", 1)

	mock.ExpectQuery("FROM api_sourceinfodb").WithArgs("book", "", 15, 0).WillReturnRows(rows)

	s, _ := newTestSearch(svc, "/v1/Metadata/Books/", nil, paramsOf("sourceType", "Books")...)

	resp := s.handleSourcesRequest()
	require.Equal(t, http.StatusOK, resp.status)

	list := resp.data.(*sourceInfoList)
	require.Len(t, list.SourceInfo.ResponseSet, 1)

	item := list.SourceInfo.ResponseSet[0]
	assert.Equal(t, "book", item.SourceType)
	assert.Equal(t, "ZBK.075", item.BookCode)
	assert.Equal(t, "http://development.org:9100/images/bannerZBK.075.logo.gif", item.BannerURL)
	assert.Contains(t, item.DisplayTitle, `<span class="publisher">Hogarth Press</span>`)
	assert.Equal(t, "book List", list.SourceInfo.ResponseInfo.ListLabel)
	assert.True(t, list.SourceInfo.ResponseInfo.FullCountComplete)
}

func TestSourceByCodeNotFound(t *testing.T) {
	svc := newTestService(t, nil)

	store, mock := newMockStore(t)
	svc.store = store

	mock.ExpectQuery("FROM api_sourceinfodb").WithArgs("journal", "XYZ", 15, 0).WillReturnRows(pgxmock.NewRows(sourceColumns))

	s, _ := newTestSearch(svc, "/v1/Metadata/Journals/XYZ/", nil, paramsOf("sourceType", "Journals", "sourceCode", "XYZ")...)

	assert.Equal(t, http.StatusNotFound, s.handleSourcesRequest().status)
}

func TestVideoSources(t *testing.T) {
	solr := &fakeSolr{respond: func(req fakeSolrRequest) interface{} {
		return solrDocs(1, map[string]interface{}{
			"art_id":                 "IPSAVS.001.0001A",
			"art_pepsrccode":         "IPSAVS",
			"title":                  "Session Recordings",
			"art_pepsourcetitleabbr": "IPSA Videos",
			"art_authors":            []interface{}{"Kernberg, O.", "Yeomans, F."},
			"art_year":               "2014",
		})
	}}

	svc := newTestService(t, solr)
	s, _ := newTestSearch(svc, "/v1/Metadata/Videos/", nil, paramsOf("sourceType", "Videos", "sourceCode", "*")...)

	resp := s.handleSourcesRequest()
	require.Equal(t, http.StatusOK, resp.status)

	item := resp.data.(*sourceInfoList).SourceInfo.ResponseSet[0]
	assert.Equal(t, "videos", item.SourceType)
	assert.Equal(t, "IPSAVS.001.0001A", item.DocumentID)
	assert.Equal(t, "Kernberg, O.; Yeomans, F.", item.Authors)
	assert.Equal(t, "EN", item.Language)

	assert.Equal(t, "art_pepsourcetype:video*", solr.recorded()[0].params.Q)
}

func TestSourcesWithoutStore(t *testing.T) {
	svc := newTestService(t, nil)
	s, _ := newTestSearch(svc, "/v1/Metadata/Journals/", nil, paramsOf("sourceType", "Journals")...)

	assert.Equal(t, http.StatusServiceUnavailable, s.handleSourcesRequest().status)
}
