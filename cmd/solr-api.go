package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type solrRequestParams struct {
	DefType    string   `json:"defType,omitempty"`
	Sort       string   `json:"sort,omitempty"`
	Start      int      `json:"start"`
	Rows       int      `json:"rows"`
	Fl         []string `json:"fl,omitempty"`
	Fq         []string `json:"fq,omitempty"`
	Q          string   `json:"q,omitempty"`
	DebugQuery string   `json:"debugQuery,omitempty"`

	// highlighter options
	Hl                     string   `json:"hl,omitempty"`
	HlFl                   []string `json:"hl.fl,omitempty"`
	HlSnippets             int      `json:"hl.snippets,omitempty"`
	HlFragsize             int      `json:"hl.fragsize,omitempty"`
	HlMultiTermQuery       string   `json:"hl.multiTermQuery,omitempty"`
	HlUsePhraseHighlighter string   `json:"hl.usePhraseHighlighter,omitempty"`
	HlSimplePre            string   `json:"hl.simple.pre,omitempty"`
	HlSimplePost           string   `json:"hl.simple.post,omitempty"`

	// more-like-this options
	Mlt      string `json:"mlt,omitempty"`
	MltFl    string `json:"mlt.fl,omitempty"`
	MltCount int    `json:"mlt.count,omitempty"`
	MltMinwl int    `json:"mlt.minwl,omitempty"`

	// terms component options
	TermsFl     string `json:"terms.fl,omitempty"`
	TermsPrefix string `json:"terms.prefix,omitempty"`
	TermsRegex  string `json:"terms.regex,omitempty"`
	TermsSort   string `json:"terms.sort,omitempty"`
	TermsLimit  int    `json:"terms.limit,omitempty"`
}

type solrRequestJSON struct {
	Params solrRequestParams `json:"params"`
}

type solrRequest struct {
	core    string
	handler string
	json    solrRequestJSON
}

type solrResponseHeader struct {
	Status int                    `json:"status,omitempty"`
	QTime  int                    `json:"QTime,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type solrDocument map[string]interface{}

type solrResponseDocuments struct {
	NumFound int            `json:"numFound,omitempty"`
	Start    int            `json:"start,omitempty"`
	MaxScore float32        `json:"maxScore,omitempty"`
	Docs     []solrDocument `json:"docs,omitempty"`
}

type solrResponseHighlighting map[string]map[string][]string

type solrError struct {
	Metadata []string `json:"metadata,omitempty"`
	Msg      string   `json:"msg,omitempty"`
	Code     int      `json:"code,omitempty"`
}

// a catch-all for search, terms and ping responses
type solrResponse struct {
	ResponseHeader  solrResponseHeader               `json:"responseHeader,omitempty"`
	Response        solrResponseDocuments            `json:"response,omitempty"`
	Highlighting    solrResponseHighlighting         `json:"highlighting,omitempty"`
	Debug           interface{}                      `json:"debug,omitempty"`
	MoreLikeThisRaw interface{}                      `json:"moreLikeThis,omitempty"`
	MoreLikeThis    map[string]solrResponseDocuments `json:"-"` // parsed from MoreLikeThisRaw
	TermsRaw        map[string]interface{}           `json:"terms,omitempty"`
	Error           solrError                        `json:"error,omitempty"`
}

// a Solr NamedList entry.  depending on json.nl, named lists arrive either as
// objects or as flat [name1, value1, name2, value2, ...] arrays.
type namedListEntry struct {
	name  string
	value interface{}
}

func namedList(raw interface{}) ([]namedListEntry, error) {
	var entries []namedListEntry

	switch nl := raw.(type) {
	case nil:
		return nil, nil

	case map[string]interface{}:
		for key, val := range nl {
			entries = append(entries, namedListEntry{name: key, value: val})
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	case []interface{}:
		if len(nl)%2 != 0 {
			return nil, fmt.Errorf("named list has odd number of elements: %d", len(nl))
		}

		for i := 0; i < len(nl); i += 2 {
			name, ok := nl[i].(string)
			if ok == false {
				return nil, fmt.Errorf("named list key at position %d is not a string", i)
			}

			entries = append(entries, namedListEntry{name: name, value: nl[i+1]})
		}

	default:
		return nil, fmt.Errorf("unexpected named list type %T", raw)
	}

	return entries, nil
}

func (r *solrResponse) convertMoreLikeThis() error {
	entries, err := namedList(r.MoreLikeThisRaw)
	if err != nil {
		return err
	}

	r.MoreLikeThis = make(map[string]solrResponseDocuments)

	for _, entry := range entries {
		var docs solrResponseDocuments

		cfg := &mapstructure.DecoderConfig{
			Metadata:         nil,
			Result:           &docs,
			TagName:          "json",
			ZeroFields:       true,
			WeaklyTypedInput: true,
		}

		dec, _ := mapstructure.NewDecoder(cfg)

		if mapDecErr := dec.Decode(entry.value); mapDecErr != nil {
			return fmt.Errorf("failed to decode more-like-this block for %s: %w", entry.name, mapDecErr)
		}

		r.MoreLikeThis[entry.name] = docs
	}

	return nil
}

type solrTerm struct {
	Term  string
	Count int
}

// terms returns the term/count pairs for a field, in the order Solr returned them
func (r *solrResponse) terms(field string) ([]solrTerm, error) {
	entries, err := namedList(r.TermsRaw[field])
	if err != nil {
		return nil, err
	}

	var terms []solrTerm

	for _, entry := range entries {
		var count int

		if err := mapstructure.WeakDecode(entry.value, &count); err != nil {
			return nil, fmt.Errorf("failed to decode count for term %s: %w", entry.name, err)
		}

		terms = append(terms, solrTerm{Term: entry.name, Count: count})
	}

	return terms, nil
}

// document field accessors.  multivalued fields return their first
// value when read as a string.

func (d solrDocument) getStrings(field string) []string {
	var vals []string

	switch v := d[field].(type) {
	case nil:
	case []interface{}:
		for _, item := range v {
			vals = append(vals, scalarString(item))
		}
	default:
		vals = append(vals, scalarString(v))
	}

	return vals
}

func (d solrDocument) getString(field string) string {
	return firstElementOf(d.getStrings(field))
}

func (d solrDocument) getInt(field string) int {
	val, err := strconv.ParseFloat(d.getString(field), 64)
	if err != nil {
		return 0
	}

	return int(val)
}

func (d solrDocument) getFloat(field string) float64 {
	val, err := strconv.ParseFloat(d.getString(field), 64)
	if err != nil {
		return 0
	}

	return val
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
