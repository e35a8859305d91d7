package main

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// helpers for the document markup stored in Solr.  stored fragments are
// frequently cut mid-element (highlight snippets, excerpts), so everything
// here works on a token stream instead of a parsed tree.

var excerptElements = map[string]bool{"h1": true, "p": true, "p2": true}

const maxExcerptElements = 10

// nextToken advances z, keeping the content of title, textarea, script and
// style elements tokenized as markup instead of raw text
func nextToken(z *html.Tokenizer) html.TokenType {
	tt := z.Next()
	if tt == html.StartTagToken {
		z.NextIsNotRawText()
	}

	return tt
}

// stripTags returns the text content of a markup fragment with whitespace collapsed
func stripTags(fragment string) string {
	if strings.IndexByte(fragment, '<') < 0 && strings.IndexByte(fragment, '&') < 0 {
		return strings.Join(strings.Fields(fragment), " ")
	}

	var sb strings.Builder

	z := html.NewTokenizer(strings.NewReader(fragment))

	for {
		tt := nextToken(z)

		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// keep words in adjacent elements apart
			sb.WriteString(" ")
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

// joinAuthorNames renders names the way article masts list them: "A, B &amp; C"
func joinAuthorNames(names []string) string {
	names = nonemptyValues(names)

	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}

	return strings.Join(names[:len(names)-1], ", ") + " &amp; " + names[len(names)-1]
}

// authorMastFromXML builds the author mast from the listed "aut" elements of an article header
func authorMastFromXML(fragment string) (string, []string) {
	var names []string

	z := html.NewTokenizer(strings.NewReader(fragment))

	inAuthor := false
	listed := false
	field := ""
	parts := map[string]string{}

	for {
		tt := nextToken(z)

		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)

			switch {
			case tag == "aut":
				inAuthor = true
				listed = false
				parts = map[string]string{}

				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "listed" && string(val) == "true" {
						listed = true
					}
				}

			case inAuthor && (tag == "nfirst" || tag == "nmid" || tag == "nlast"):
				field = tag
			}

		case html.TextToken:
			if inAuthor && field != "" {
				parts[field] += string(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)

			switch {
			case tag == "aut":
				if listed == true {
					nameParts := nonemptyValues([]string{
						strings.TrimSpace(parts["nfirst"]),
						strings.TrimSpace(parts["nmid"]),
						strings.TrimSpace(parts["nlast"]),
					})

					if len(nameParts) > 0 {
						names = append(names, strings.Join(nameParts, " "))
					}
				}

				inAuthor = false
				field = ""

			case tag == field:
				field = ""
			}
		}
	}

	return joinAuthorNames(names), names
}

// authorMastFromIDs builds the author mast from author index ids
func authorMastFromIDs(ids []string) string {
	var names []string

	for _, id := range ids {
		names = append(names, strings.TrimSpace(id))
	}

	return joinAuthorNames(uniqueStrings(names))
}

func htmlCiteAs(authorsBib, year, title, sourceTitle, vol, pgrg string) string {
	return fmt.Sprintf(`<p class="citeas"><span class="authors">%s</span> (<span class="year">%s</span>) <span class="title">%s</span>. <span class="sourcetitle">%s</span> <span class="pgrg">%s</span>:<span class="pgrg">%s</span></p>`,
		authorsBib, year, title, sourceTitle, vol, pgrg)
}

func htmlBookCiteAs(authors, year, title, publisher string) string {
	return fmt.Sprintf(`<p class="citeas"><span class="authors">%s</span> (<span class="year">%s</span>) <span class="title">%s</span>. <span class="publisher">%s</span>.`,
		authors, year, title, publisher)
}

func runningHead(sourceTitle, year, vol, issue, pgrg string) string {
	if issue != "" {
		issue = fmt.Sprintf("(%s)", issue)
	}

	return fmt.Sprintf("(%s). %s, %s%s:%s", year, sourceTitle, vol, issue, pgrg)
}

type abstractHeading struct {
	sourceTitle string
	year        string
	vol         string
	issue       string
	pgrg        string
	title       string
	authorMast  string
}

func abstractWithHeadings(abstract string, h abstractHeading, retFormat string) string {
	heading := runningHead(h.sourceTitle, h.year, h.vol, h.issue, h.pgrg)

	if retFormat == "TEXTONLY" {
		return fmt.Sprintf("%s\n%s\n%s\n\n%s", heading, stripTags(h.title), stripTags(h.authorMast), stripTags(abstract))
	}

	return fmt.Sprintf(`<p class="heading">%s</p><p class="title">%s</p><p class="title_author">%s</p><div class="abstract">%s</div>`,
		heading, h.title, h.authorMast, abstract)
}

// excerptFromDocument returns the leading heading and paragraph elements of a
// document, up to the first page break, wrapped as an excerpt abstract
func excerptFromDocument(document string) string {
	var sb strings.Builder

	z := html.NewTokenizer(strings.NewReader(document))

	captureTag := ""
	depth := 0
	count := 0

loop:
	for count < maxExcerptElements {
		tt := nextToken(z)

		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return ""
			}
			break
		}

		raw := string(z.Raw())

		if depth > 0 {
			sb.WriteString(raw)

			name, _ := z.TagName()

			switch {
			case tt == html.StartTagToken && string(name) == captureTag:
				depth++
			case tt == html.EndTagToken && string(name) == captureTag:
				depth--
				if depth == 0 {
					count++
				}
			}

			continue
		}

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, _ := z.TagName()
		tag := string(name)

		switch {
		case tag == "pb":
			break loop

		case excerptElements[tag] && tt == html.SelfClosingTagToken:
			sb.WriteString(raw)
			count++

		case excerptElements[tag]:
			sb.WriteString(raw)
			captureTag = tag
			depth = 1
		}
	}

	if sb.Len() == 0 {
		return ""
	}

	return fmt.Sprintf("<abs><unit type='excerpt'>%s</unit></abs>", sb.String())
}

// excerpt picks the abstract, then the summary, then a generated document excerpt
func excerpt(abstract, summary, document string) string {
	if strings.TrimSpace(abstract) != "" {
		return abstract
	}

	if strings.TrimSpace(summary) != "" {
		return summary
	}

	return excerptFromDocument(document)
}
