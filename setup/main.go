package main

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
)

func main() {
	type cfgData struct {
		File   string
		EnvVar string
	}

	var configBase string
	var tgtEnv string
	var port string
	var solrHost string
	var dbURL string
	flag.StringVar(&configBase, "dir", "", "local directory holding the opas deployment configuration")
	flag.StringVar(&tgtEnv, "env", "staging", "production or staging")
	flag.StringVar(&port, "port", "9100", "port to run the service on")
	flag.StringVar(&solrHost, "solr", "", "solr host (defaults to the environment replica)")
	flag.StringVar(&dbURL, "db", "", "postgres connection url")
	flag.Parse()

	if configBase == "" {
		log.Fatal("dir is required")
	}
	if tgtEnv != "staging" && tgtEnv != "production" {
		log.Fatal("env must be staging or production")
	}

	if solrHost == "" {
		solrHost = fmt.Sprintf("http://opas-solr-%s.internal:8983/solr", tgtEnv)
	}

	cfgBase := path.Join(configBase, tgtEnv, "opas-solr-ws/environment")

	log.Printf("Generate service config for %s from %s", tgtEnv, cfgBase)
	cfgFiles := []cfgData{
		{File: "service.json", EnvVar: "OPAS_SOLR_WS_JSON_01"},
		{File: "logging.json", EnvVar: "OPAS_SOLR_WS_JSON_02"},
		{File: "solr.json", EnvVar: "OPAS_SOLR_WS_JSON_03"},
		{File: "database.json", EnvVar: "OPAS_SOLR_WS_JSON_04"},
		{File: "search.json", EnvVar: "OPAS_SOLR_WS_JSON_05"},
	}

	out := make([]string, 0)
	for _, cf := range cfgFiles {
		tgtFile := path.Join(cfgBase, cf.File)
		jsonBytes, err := os.ReadFile(tgtFile)
		if err != nil {
			if os.IsNotExist(err) {
				log.Printf("skipping missing %s", tgtFile)
				continue
			}
			log.Fatal(err.Error())
		}

		var gzBuf bytes.Buffer
		gz := gzip.NewWriter(&gzBuf)
		if _, zErr := gz.Write(jsonBytes); zErr != nil {
			log.Fatal(zErr.Error())
		}
		gz.Close()
		sEnc := base64.StdEncoding.EncodeToString(gzBuf.Bytes())
		out = append(out, fmt.Sprintf("export %s=%s", cf.EnvVar, sEnc))
	}

	outF, err := os.Create("setup_env.sh")
	if err != nil {
		log.Fatal(err.Error())
	}
	defer outF.Close()

	outF.WriteString("#!/bin/bash\n\n")
	outF.WriteString(fmt.Sprintf("export OPAS_SOLR_WS_SOLR_HOST=%s\n", solrHost))
	outF.WriteString(fmt.Sprintf("export OPAS_SOLR_WS_PORT=%s\n", port))
	if dbURL != "" {
		outF.WriteString(fmt.Sprintf("export OPAS_SOLR_WS_DB_URL=%s\n", dbURL))
	}
	outF.WriteString(strings.Join(out, "\n"))
	outF.WriteString("\n")
	os.Chmod("setup_env.sh", 0777)
}
