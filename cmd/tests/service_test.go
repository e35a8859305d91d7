package tests

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type testConfig struct {
	Endpoint string
	Token    string
}

var cfg = loadConfig()

var client = &http.Client{Timeout: 30 * time.Second}

func emptyField(field string) bool {
	return len(strings.TrimSpace(field)) == 0
}

func loadConfig() testConfig {

	data, err := os.ReadFile("service_test.yml")
	if err != nil {
		log.Fatal(err)
	}

	var c testConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		log.Fatal(err)
	}

	// allow environment variables to override the configuration file
	if len(os.Getenv("TC_ENDPOINT")) != 0 {
		c.Endpoint = os.Getenv("TC_ENDPOINT")
	}

	if len(os.Getenv("TC_TOKEN")) != 0 {
		c.Token = os.Getenv("TC_TOKEN")
	}

	log.Printf("endpoint [%s]\n", c.Endpoint)

	return c
}

// get issues a GET against the service and returns the status and raw body
func get(endpoint string, path string, params url.Values, token string) (int, []byte) {
	target := fmt.Sprintf("%s%s", strings.TrimSuffix(endpoint, "/"), path)
	if len(params) > 0 {
		target = fmt.Sprintf("%s?%s", target, params.Encode())
	}

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		log.Printf("bad request: %s", err.Error())
		return http.StatusInternalServerError, nil
	}

	if emptyField(token) == false {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("request failed: %s", err.Error())
		return http.StatusServiceUnavailable, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	return resp.StatusCode, body
}

type serviceVersion struct {
	Build     string `json:"build"`
	GoVersion string `json:"go_version"`
	GitCommit string `json:"git_commit"`
}

// VersionCheck returns the service status and reported version details
func VersionCheck(endpoint string) (int, serviceVersion) {
	var version serviceVersion

	status, body := get(endpoint, "/version", nil, "")
	if status != http.StatusOK {
		return status, version
	}

	if err := json.Unmarshal(body, &version); err != nil {
		return http.StatusInternalServerError, version
	}

	return status, version
}

// HealthCheck returns the service status and per-dependency health
func HealthCheck(endpoint string) (int, map[string]bool) {
	status, body := get(endpoint, "/healthcheck", nil, "")

	var health map[string]struct {
		Healthy bool `json:"healthy"`
	}

	res := make(map[string]bool)
	if err := json.Unmarshal(body, &health); err != nil {
		return status, res
	}

	for name, h := range health {
		res[name] = h.Healthy
	}

	return status, res
}

type serverStatus struct {
	TextServerOK bool   `json:"text_server_ok"`
	DBServerOK   bool   `json:"db_server_ok"`
	TimeStamp    string `json:"timeStamp"`
}

// Status returns the reported server status
func Status(endpoint string) (int, *serverStatus) {
	status, body := get(endpoint, "/v1/Status/", nil, "")
	if status != http.StatusOK {
		return status, nil
	}

	var s serverStatus
	if err := json.Unmarshal(body, &s); err != nil {
		return http.StatusInternalServerError, nil
	}

	return status, &s
}

type documentListItem struct {
	DocumentID string   `json:"documentID"`
	Kwic       string   `json:"kwic"`
	KwicList   []string `json:"kwicList"`
}

type documentList struct {
	DocumentList struct {
		ResponseInfo struct {
			Count     int `json:"count"`
			FullCount int `json:"fullCount"`
		} `json:"responseInfo"`
		ResponseSet []documentListItem `json:"responseSet"`
	} `json:"documentList"`
}

// Search runs a database search and returns the decoded document list
func Search(endpoint string, params url.Values, token string) (int, *documentList) {
	status, body := get(endpoint, "/v1/Database/Search/", params, token)
	if status != http.StatusOK {
		return status, nil
	}

	var list documentList
	if err := json.Unmarshal(body, &list); err != nil {
		return http.StatusInternalServerError, nil
	}

	return status, &list
}

//
// end of file
//
