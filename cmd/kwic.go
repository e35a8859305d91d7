package main

import "strings"

// kwic separator used by the GVPi server, which PEP-Easy splits on
const kwicSeparator = " . . . "

// kwicFromHighlights converts Solr highlight snippets into display excerpts:
// markup is removed and the Solr hit markers become the output markers
func kwicFromHighlights(snippets []string, cfg serviceConfigSearch) []string {
	kwic := []string{}

	for _, snippet := range snippets {
		if len(kwic) >= cfg.MaxKwicReturns {
			break
		}

		match := stripTags(snippet)
		if match == "" {
			continue
		}

		kwic = append(kwic, markHits(match, cfg))
	}

	return kwic
}

func markHits(text string, cfg serviceConfigSearch) string {
	text = strings.ReplaceAll(text, cfg.HitMarkerStart, cfg.OutputMarkerStart)
	text = strings.ReplaceAll(text, cfg.HitMarkerEnd, cfg.OutputMarkerEnd)

	return text
}

func joinKwic(kwic []string) string {
	return strings.Join(kwic, kwicSeparator)
}
