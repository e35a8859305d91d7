package main

import (
	"strconv"
	"strings"
	"time"
)

// miscellaneous utility functions

const timeStampFormat = "2006-01-02T15:04:05Z"

func firstElementOf(s []string) string {
	// return first element of slice, or blank string if empty
	val := ""

	if len(s) > 0 {
		val = s[0]
	}

	return val
}

func sliceContainsString(haystack []string, needle string, insensitive bool) bool {
	if len(haystack) == 0 {
		return false
	}

	for _, item := range haystack {
		a := item
		b := needle

		if insensitive == true {
			a = strings.ToLower(item)
			b = strings.ToLower(needle)
		}

		if a == b {
			return true
		}
	}

	return false
}

func nonemptyValues(val []string) []string {
	res := []string{}

	for _, s := range val {
		if strings.TrimSpace(s) != "" {
			res = append(res, s)
		}
	}

	return res
}

func integerWithMinimum(str string, min int) int {
	val, err := strconv.Atoi(str)

	// fallback for invalid or nonsensical values
	if err != nil || val < min {
		val = min
	}

	return val
}

func timeoutWithMinimum(str string, min int) time.Duration {
	return time.Duration(integerWithMinimum(str, min)) * time.Second
}

func isValidSortOrder(s string) bool {
	switch s {
	case "asc":
	case "desc":
	default:
		return false
	}

	return true
}

func uniqueStrings(s []string) []string {
	var uniq []string

	seen := make(map[string]bool)

	for _, val := range s {
		key := strings.ToLower(val)

		if seen[key] == false {
			uniq = append(uniq, val)
			seen[key] = true
		}
	}

	return uniq
}

// splitPageRange splits a page range such as "223-245" into its start and end pages.
// a single page is both the start and the end.
func splitPageRange(pgrg string) (string, string) {
	pgrg = strings.TrimSpace(pgrg)
	if pgrg == "" {
		return "", ""
	}

	parts := strings.SplitN(pgrg, "-", 2)

	start := strings.TrimSpace(parts[0])
	end := start

	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		end = strings.TrimSpace(parts[1])
	}

	return start, end
}

func formatTimeStamp(t time.Time) string {
	return t.UTC().Format(timeStampFormat)
}
