package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorIndex(t *testing.T) {
	solr := &fakeSolr{respond: func(req fakeSolrRequest) interface{} {
		return map[string]interface{}{
			"responseHeader": map[string]interface{}{"status": 0},
			"terms":          map[string]interface{}{"art_author_id": []interface{}{"tuckett, david", 22, "tuckett, x", 0}},
		}
	}}

	svc := newTestService(t, solr)
	s, _ := newTestSearch(svc, "/v1/Authors/Index/Tuckett/", nil, paramsOf("authorNamePartial", "Tuckett")...)

	resp := s.handleAuthorIndexRequest()
	require.Equal(t, http.StatusOK, resp.status)

	index := resp.data.(*authorIndex)
	require.Len(t, index.AuthorIndex.ResponseSet, 1)
	assert.Equal(t, authorIndexItem{
		AuthorID:          "tuckett, david",
		PublicationsURL:   "/v1/Authors/Publications/tuckett, david/",
		PublicationsCount: 22,
	}, index.AuthorIndex.ResponseSet[0])
	assert.Equal(t, "authorindex", index.AuthorIndex.ResponseInfo.ListType)

	req := solr.recorded()[0]
	assert.Equal(t, "/"+testAuthorsCore+"/terms", req.path)
	assert.Equal(t, "art_author_id", req.params.TermsFl)
	assert.Equal(t, "tuckett", req.params.TermsPrefix)
	assert.Empty(t, req.params.TermsRegex)
	assert.Equal(t, 15, req.params.TermsLimit)
}

func TestAuthorIndexWildcard(t *testing.T) {
	solr := &fakeSolr{}
	svc := newTestService(t, solr)
	s, _ := newTestSearch(svc, "/", nil)

	_, err := s.authorIndex("Tuck.*tt", 10, 0)
	require.NoError(t, err)

	req := solr.recorded()[0]
	assert.Equal(t, "tuck.*tt.*", req.params.TermsRegex)
	assert.Empty(t, req.params.TermsPrefix)
}

func TestAuthorPublicationsTriesPatterns(t *testing.T) {
	solr := &fakeSolr{respond: func(req fakeSolrRequest) interface{} {
		if strings.Contains(req.params.Q, "[ ]?.*") == false || strings.HasPrefix(req.params.Q, "art_author_id:/(") {
			return solrDocs(0)
		}

		return solrDocs(1, map[string]interface{}{
			"art_author_id":  "Tuckett, David",
			"art_id":         "IJP.086.0031A",
			"art_year":       "2005",
			"art_citeas_xml": "<p><span class='authors'>Tuckett, D.</span> (2005)</p>",
			"score":          1.0,
		})
	}}

	svc := newTestService(t, solr)
	s, _ := newTestSearch(svc, "/v1/Authors/Publications/Tuckett,%20David/", nil, paramsOf("authorNamePartial", "Tuckett, David")...)

	resp := s.handleAuthorPublicationsRequest()
	require.Equal(t, http.StatusOK, resp.status)

	list := resp.data.(*authorPubList)
	require.Len(t, list.AuthorPubList.ResponseSet, 1)

	item := list.AuthorPubList.ResponseSet[0]
	assert.Equal(t, "IJP.086.0031A", item.DocumentID)
	assert.Equal(t, "/v1/Documents/IJP.086.0031A", item.DocumentURL)
	assert.Equal(t, "Tuckett, D. (2005)", item.DocumentRef)
	assert.Equal(t, "art_author_id:/Tuckett, David[ ]?.*/", list.AuthorPubList.ResponseInfo.ScopeQuery)

	reqs := solr.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "art_author_id:/Tuckett, David/", reqs[0].params.Q)
	assert.Equal(t, "/"+testAuthorsCore+"/select", reqs[1].path)
}

func TestAuthorRequestsNeedAName(t *testing.T) {
	svc := newTestService(t, &fakeSolr{})

	s, _ := newTestSearch(svc, "/", nil, paramsOf("authorNamePartial", " ")...)
	assert.Equal(t, http.StatusBadRequest, s.handleAuthorIndexRequest().status)
	assert.Equal(t, http.StatusBadRequest, s.handleAuthorPublicationsRequest().status)
}
