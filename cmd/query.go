package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type searchMode int

const (
	searchModeNormal searchMode = iota
	searchModeAnalysis
	searchModeMoreLikeThese
)

// searchParams holds the query string of the database search endpoints
type searchParams struct {
	JournalName string `form:"journalName"`
	Journal     string `form:"journal" binding:"omitempty,min=2"`
	Fulltext1   string `form:"fulltext1"`
	Fulltext2   string `form:"fulltext2"`
	Vol         string `form:"vol"`
	Issue       string `form:"issue"`
	Author      string `form:"author"`
	Title       string `form:"title"`
	StartYear   string `form:"startyear"`
	EndYear     string `form:"endyear"`
	CiteCount   string `form:"citecount" binding:"omitempty,citecount"`
	Dreams      string `form:"dreams"`
	Quotes      string `form:"quotes"`
	Abstracts   string `form:"abstracts"`
	Dialogs     string `form:"dialogs"`
	References  string `form:"references"`
	SolrQ       string `form:"solrQ"`
	DisMax      string `form:"disMax"`
	EdisMax     string `form:"edisMax"`
	QuickSearch string `form:"quickSearch"`
	SortBy      string `form:"sortBy" binding:"omitempty,sortspec"`
	Limit       int    `form:"limit,default=15" binding:"min=0"`
	Offset      int    `form:"offset,default=0" binding:"min=0"`

	// accepted for compatibility; not used in query construction
	ViewCount    string `form:"viewcount"`
	ViewedWithin string `form:"viewedWithin"`
}

type solrQueryParts struct {
	searchQ  string
	filterQ  string
	defType  string
	sort     string
	warnings []string // parameters that were ignored
}

// sourceLookup reports whether a value is a known source code
type sourceLookup interface {
	isSourceCode(code string) bool
}

var (
	yearPattern      = regexp.MustCompile(`^[12][0-9]{3}$`)
	yearArgPattern   = regexp.MustCompile(`(?i)^[ ]*(?P<option>[><^=])?[ ]*(?P<start>[12][0-9]{3})?[ ]*(?P<separator>-|TO)?[ ]*(?P<end>[12][0-9]{3})?[ ]*$`)
	citeCountPattern = regexp.MustCompile(`(?i)^\s*(?P<nbr>[0-9]+)(\s+IN\s+(?P<period>5|10|20|ALL))?\s*$`)
	journalWildcard  = regexp.MustCompile(`^.*\*[ ]*$`)
	journalListSep   = regexp.MustCompile(`(?i)\s*\+or\+\s*`) // clients send the separator encoded as %2Bor%2B
	citePeriodValues = []string{"5", "10", "20", "all"}
	documentFormats  = []string{"HTML", "XML", "TEXTONLY"}
	downloadFormats  = []string{"HTML", "PDF", "PDFORIG", "EPUB", "XML"}
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := registerValidators(v); err != nil {
			panic(err)
		}
	}
}

func registerValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"year": func(fl validator.FieldLevel) bool {
			return yearPattern.MatchString(strings.TrimSpace(fl.Field().String()))
		},
		"citecount": func(fl validator.FieldLevel) bool {
			return citeCountPattern.MatchString(fl.Field().String())
		},
		"docformat": func(fl validator.FieldLevel) bool {
			return sliceContainsString(documentFormats, fl.Field().String(), true)
		},
		"downloadformat": func(fl validator.FieldLevel) bool {
			return sliceContainsString(downloadFormats, fl.Field().String(), true)
		},
		"sortspec": func(fl validator.FieldLevel) bool {
			return validSortSpec(fl.Field().String())
		},
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	return nil
}

// validSortSpec accepts Solr sort clauses such as "art_year_int desc, score desc"
func validSortSpec(spec string) bool {
	for _, clause := range strings.Split(spec, ",") {
		fields := strings.Fields(clause)

		if len(fields) != 2 || isValidSortOrder(strings.ToLower(fields[1])) == false {
			return false
		}
	}

	return true
}

func searchModeForPath(path string) searchMode {
	switch {
	case strings.Contains(path, "/SearchAnalyses/"):
		return searchModeAnalysis
	case strings.Contains(path, "/MoreLikeThese/"):
		return searchModeMoreLikeThese
	default:
		return searchModeNormal
	}
}

func namedGroups(re *regexp.Regexp, s string) map[string]string {
	match := re.FindStringSubmatch(s)
	if match == nil {
		return nil
	}

	groups := make(map[string]string)

	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = match[i]
		}
	}

	return groups
}

// parseYearArg converts the startyear syntax into a Solr year value:
//
//	^1990-2000 or 1990-2000 or 1990 TO 2000 => [1990 TO 2000]
//	>1990 or 1990-                          => [1990 TO *]
//	<1990 or -1990                          => [* TO 1990]
//	1990                                    => 1990
func parseYearArg(arg string) (string, bool) {
	groups := namedGroups(yearArgPattern, arg)
	if groups == nil {
		return "", false
	}

	option := groups["option"]
	start := groups["start"]
	end := groups["end"]
	separator := groups["separator"] != ""

	if start == "" && end == "" {
		return "", false
	}

	switch option {
	case "^":
		if start == "" {
			start = end
		}
		if end == "" {
			end = start
		}
		return fmt.Sprintf("[%s TO %s]", start, end), true

	case ">":
		if start == "" {
			start = end
		}
		return fmt.Sprintf("[%s TO *]", start), true

	case "<":
		if end == "" {
			end = start
		}
		return fmt.Sprintf("[* TO %s]", end), true
	}

	switch {
	case start != "" && end != "":
		return fmt.Sprintf("[%s TO %s]", start, end), true
	case end != "":
		return fmt.Sprintf("[* TO %s]", end), true
	case separator:
		return fmt.Sprintf("[%s TO *]", start), true
	default:
		return start, true
	}
}

// yearClause builds the art_year_int filter from the startyear/endyear parameters
func yearClause(startYear, endYear string) (string, error) {
	startYear = strings.TrimSpace(startYear)
	endYear = strings.TrimSpace(endYear)

	switch {
	case startYear != "" && endYear == "":
		val, ok := parseYearArg(startYear)
		if ok == false {
			return "", fmt.Errorf("%w: startyear %q", errInvalidParameter, startYear)
		}
		return fmt.Sprintf("&& art_year_int:%s ", val), nil

	case startYear != "" && endYear != "":
		if yearPattern.MatchString(startYear) == false || yearPattern.MatchString(endYear) == false {
			return "", fmt.Errorf("%w: startyear %q / endyear %q", errInvalidParameter, startYear, endYear)
		}
		return fmt.Sprintf("&& art_year_int:[%s TO %s] ", startYear, endYear), nil

	case endYear != "":
		if yearPattern.MatchString(endYear) == false {
			return "", fmt.Errorf("%w: endyear %q", errInvalidParameter, endYear)
		}
		return fmt.Sprintf("&& art_year_int:[* TO %s] ", endYear), nil
	}

	return "", nil
}

// citeCountClause converts "N [IN 5|10|20|ALL]" into an art_cited_* range filter
func citeCountClause(citeCount string) (string, error) {
	groups := namedGroups(citeCountPattern, citeCount)
	if groups == nil {
		return "", fmt.Errorf("%w: citecount %q", errInvalidParameter, citeCount)
	}

	val := groups["nbr"]
	if val == "" {
		val = "1"
	}

	period := strings.ToLower(groups["period"])
	if period == "" {
		period = "5"
	}

	return fmt.Sprintf("&& art_cited_%s:[%s TO *] ", period, val), nil
}

// journalClause resolves the overloaded journal parameter: a wildcard title
// pattern, a "+or+" list of titles, a source code, or a plain title
func journalClause(journal string, sources sourceLookup) string {
	switch {
	case journalWildcard.MatchString(journal):
		return fmt.Sprintf("&& art_pepsourcetitlefull:%s ", journal)

	case journalListSep.MatchString(journal):
		names := nonemptyValues(journalListSep.Split(journal, -1))
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		return fmt.Sprintf("&& art_pepsourcetitlefull:(%s) ", strings.Join(names, " OR "))

	case sources != nil && sources.isSourceCode(journal):
		return fmt.Sprintf("&& art_pepsrccode:%s ", strings.ToUpper(journal))
	}

	return fmt.Sprintf("&& art_pepsourcetitlefull:%s ", journal)
}

// buildSolrQuery translates search parameters into Solr query and filter strings
func buildSolrQuery(p searchParams, sources sourceLookup) (solrQueryParts, error) {
	parts := solrQueryParts{
		searchQ: "*:* ",
		filterQ: "*:* ",
		sort:    "score desc",
	}

	addSearch := func(field, val string) {
		if val != "" {
			parts.searchQ += fmt.Sprintf("&& %s:%s ", field, val)
		}
	}

	addFilter := func(field, val string) {
		if val != "" {
			parts.filterQ += fmt.Sprintf("&& %s:%s ", field, val)
		}
	}

	addSearch("art_title_xml", p.Title)
	addSearch("art_pepsourcetitle_fulltext", p.JournalName)

	if p.Journal != "" {
		parts.filterQ += journalClause(p.Journal, sources)
	}

	addFilter("art_vol", p.Vol)
	addFilter("art_iss", p.Issue)

	addSearch("art_authors_xml", p.Author)

	// unusable years are dropped from the filter rather than failing the search
	years, err := yearClause(p.StartYear, p.EndYear)
	if err != nil {
		parts.warnings = append(parts.warnings, err.Error())
	}
	parts.filterQ += years

	if p.CiteCount != "" {
		cites, err := citeCountClause(p.CiteCount)
		if err != nil {
			return parts, err
		}
		parts.filterQ += cites
	}

	addSearch("text", p.Fulltext1)
	addSearch("text", p.Fulltext2)
	addSearch("dreams_xml", p.Dreams)
	addSearch("quotes_xml", p.Quotes)
	addSearch("abstracts_xml", p.Abstracts)
	addSearch("dialogs_xml", p.Dialogs)
	addSearch("references_xml", p.References)

	// direct queries override the field-based query
	if p.SolrQ != "" {
		parts.searchQ = p.SolrQ
	}

	if p.DisMax != "" {
		parts.searchQ = p.DisMax
		parts.defType = "dismax"
	}

	if p.EdisMax != "" {
		parts.searchQ = p.EdisMax
		parts.defType = "edismax"
	}

	if p.QuickSearch != "" {
		parts.searchQ = p.QuickSearch
		parts.defType = "edismax"
	}

	if p.SortBy != "" {
		parts.sort = p.SortBy
	}

	return parts, nil
}

// queryClauses splits a composed query into its individual field clauses
func queryClauses(query string) []string {
	var clauses []string

	for _, clause := range strings.Split(query, "&&") {
		clause = strings.TrimSpace(clause)

		if clause == "" || clause == "*:*" {
			continue
		}

		clauses = append(clauses, clause)
	}

	return clauses
}
