package main

import "time"

// response schema shared with the PEP-Easy client

type responseInfo struct {
	Count             int                    `json:"count"`
	Limit             int                    `json:"limit"`
	Offset            int                    `json:"offset"`
	FullCount         int                    `json:"fullCount"`
	TotalMatchCount   int                    `json:"totalMatchCount,omitempty"`
	FullCountComplete bool                   `json:"fullCountComplete"`
	ListType          string                 `json:"listType"`
	ListLabel         string                 `json:"listLabel,omitempty"`
	ScopeQuery        string                 `json:"scopeQuery,omitempty"`
	Request           string                 `json:"request,omitempty"`
	SolrParams        map[string]interface{} `json:"solrParams,omitempty"`
	TimeStamp         string                 `json:"timeStamp"`
}

func newResponseInfo(listType string, count, limit, offset, fullCount int) responseInfo {
	return responseInfo{
		Count:             count,
		Limit:             limit,
		Offset:            offset,
		FullCount:         fullCount,
		FullCountComplete: limit >= fullCount,
		ListType:          listType,
		TimeStamp:         formatTimeStamp(time.Now()),
	}
}

type documentListItem struct {
	PEPCode         string         `json:"PEPCode,omitempty"`
	AuthorMast      string         `json:"authorMast,omitempty"`
	DocumentID      string         `json:"documentID,omitempty"`
	DocumentRef     string         `json:"documentRef,omitempty"`
	DocumentRefHTML string         `json:"documentRefHTML,omitempty"`
	DocumentURL     string         `json:"documentURL,omitempty"`
	Title           string         `json:"title,omitempty"`
	Abstract        string         `json:"abstract,omitempty"`
	Document        string         `json:"document,omitempty"`
	Year            string         `json:"year,omitempty"`
	Vol             string         `json:"vol,omitempty"`
	Issue           string         `json:"issue,omitempty"`
	IssueTitle      string         `json:"issueTitle,omitempty"`
	NewSectionName  string         `json:"newSectionName,omitempty"`
	PgRg            string         `json:"pgRg,omitempty"`
	PgStart         string         `json:"pgStart,omitempty"`
	PgEnd           string         `json:"pgEnd,omitempty"`
	Kwic            string         `json:"kwic"`
	KwicList        []string       `json:"kwicList"`
	Score           float64        `json:"score,omitempty"`
	Rank            int            `json:"rank,omitempty"`
	InstanceCount   int            `json:"instanceCount,omitempty"`
	Count1          int            `json:"count1,omitempty"`
	Count2          int            `json:"count2,omitempty"`
	Count3          int            `json:"count3,omitempty"`
	Count4          int            `json:"count4,omitempty"`
	Count5          int            `json:"count5,omitempty"`
	Term            string         `json:"term,omitempty"`
	TermCount       *int           `json:"termCount,omitempty"`
	SimilarDocs     []solrDocument `json:"similarDocs,omitempty"`
	SimilarMaxScore float32        `json:"similarMaxScore,omitempty"`
	SimilarNumFound int            `json:"similarNumFound,omitempty"`
	AccessLimited   *bool          `json:"accessLimited,omitempty"`
	UpdateDate      string         `json:"updateDate,omitempty"`
}

func newDocumentListItem() documentListItem {
	return documentListItem{KwicList: []string{}}
}

type documentListStruct struct {
	ResponseInfo responseInfo       `json:"responseInfo"`
	ResponseSet  []documentListItem `json:"responseSet"`
}

type documentList struct {
	DocumentList documentListStruct `json:"documentList"`
}

type documents struct {
	Documents documentListStruct `json:"documents"`
}

type whatsNewListItem struct {
	DocumentID   string `json:"documentID,omitempty"`
	DisplayTitle string `json:"displayTitle,omitempty"`
	Abbrev       string `json:"abbrev,omitempty"`
	Volume       string `json:"volume,omitempty"`
	Issue        string `json:"issue,omitempty"`
	Year         string `json:"year,omitempty"`
	PEPCode      string `json:"PEPCode,omitempty"`
	SrcTitle     string `json:"srcTitle,omitempty"`
	VolumeURL    string `json:"volumeURL,omitempty"`
	Updated      string `json:"updated,omitempty"`
}

type whatsNewListStruct struct {
	ResponseInfo responseInfo       `json:"responseInfo"`
	ResponseSet  []whatsNewListItem `json:"responseSet"`
}

type whatsNewList struct {
	WhatsNew whatsNewListStruct `json:"whatsNew"`
}

type volumeListItem struct {
	PEPCode string  `json:"PEPCode"`
	Vol     string  `json:"vol"`
	Year    string  `json:"year,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

type volumeListStruct struct {
	ResponseInfo responseInfo     `json:"responseInfo"`
	ResponseSet  []volumeListItem `json:"responseSet"`
}

type volumeList struct {
	VolumeList volumeListStruct `json:"volumeList"`
}

type sourceInfoListItem struct {
	SourceType   string `json:"sourceType"`
	PEPCode      string `json:"PEPCode"`
	Authors      string `json:"authors,omitempty"`
	PubYear      string `json:"pub_year,omitempty"`
	DocumentID   string `json:"documentID,omitempty"`
	DisplayTitle string `json:"displayTitle,omitempty"`
	Title        string `json:"title,omitempty"`
	SrcTitle     string `json:"srcTitle,omitempty"`
	BookCode     string `json:"bookCode,omitempty"`
	Abbrev       string `json:"abbrev,omitempty"`
	BannerURL    string `json:"bannerURL,omitempty"`
	Language     string `json:"language,omitempty"`
	ISSN         string `json:"ISSN,omitempty"`
	YearFirst    string `json:"yearFirst,omitempty"`
	YearLast     string `json:"yearLast,omitempty"`
	EmbargoYears string `json:"embargoYears,omitempty"`
}

type sourceInfoStruct struct {
	ResponseInfo responseInfo         `json:"responseInfo"`
	ResponseSet  []sourceInfoListItem `json:"responseSet"`
}

type sourceInfoList struct {
	SourceInfo sourceInfoStruct `json:"sourceInfo"`
}

type authorIndexItem struct {
	AuthorID          string `json:"authorID"`
	PublicationsURL   string `json:"publicationsURL"`
	PublicationsCount int    `json:"publicationsCount"`
}

type authorIndexStruct struct {
	ResponseInfo responseInfo      `json:"responseInfo"`
	ResponseSet  []authorIndexItem `json:"responseSet"`
}

type authorIndex struct {
	AuthorIndex authorIndexStruct `json:"authorIndex"`
}

type authorPubListItem struct {
	AuthorID        string  `json:"authorID"`
	DocumentID      string  `json:"documentID"`
	DocumentRefHTML string  `json:"documentRefHTML,omitempty"`
	DocumentRef     string  `json:"documentRef,omitempty"`
	DocumentURL     string  `json:"documentURL,omitempty"`
	Year            string  `json:"year,omitempty"`
	Score           float64 `json:"score,omitempty"`
}

type authorPubListStruct struct {
	ResponseInfo responseInfo        `json:"responseInfo"`
	ResponseSet  []authorPubListItem `json:"responseSet"`
}

type authorPubList struct {
	AuthorPubList authorPubListStruct `json:"authorPubList"`
}

type serverStatusItem struct {
	TextServerOK bool   `json:"text_server_ok"`
	DBServerOK   bool   `json:"db_server_ok"`
	UserIP       string `json:"user_ip,omitempty"`
	TimeStamp    string `json:"timeStamp"`
}

type loginReturnItem struct {
	TokenType          string `json:"token_type"`
	SessionID          string `json:"session_id"`
	AccessToken        string `json:"access_token,omitempty"`
	Authenticated      bool   `json:"authenticated"`
	SessionExpiresTime string `json:"session_expires_time"`
	Scope              string `json:"scope,omitempty"`
}

type licenseInfoResponse struct {
	LoggedIn bool `json:"loggedIn"`
}

type licenseInfoStruct struct {
	ResponseInfo licenseInfoResponse `json:"responseInfo"`
	ResponseSet  []interface{}       `json:"responseSet"`
}

type licenseStatusInfo struct {
	LicenseInfo licenseInfoStruct `json:"licenseInfo"`
}
