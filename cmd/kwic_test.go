package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKwicFromHighlights(t *testing.T) {
	cfg := testConfig().Search
	cfg.MaxKwicReturns = 2

	snippets := []string{
		"<p>the %##dream##% of <i>Irma's</i> injection</p>",
		"<p></p>",
		"a second %##dream##%",
		"a third %##dream##%",
	}

	kwic := kwicFromHighlights(snippets, cfg)

	assert.Equal(t, []string{
		"the <span class='searchhit'>dream</span> of Irma's injection",
		"a second <span class='searchhit'>dream</span>",
	}, kwic)

	assert.Equal(t, "the <span class='searchhit'>dream</span> of Irma's injection . . . a second <span class='searchhit'>dream</span>", joinKwic(kwic))
}

func TestKwicFromNoHighlights(t *testing.T) {
	kwic := kwicFromHighlights(nil, testConfig().Search)

	assert.NotNil(t, kwic)
	assert.Empty(t, kwic)
	assert.Equal(t, "", joinKwic(kwic))
}
