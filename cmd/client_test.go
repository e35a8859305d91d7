package main

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogResponseKeepsPercentSigns(t *testing.T) {
	var buf bytes.Buffer

	cl := clientContext{
		start:  time.Now(),
		logger: zerolog.New(&buf),
	}

	cl.logResponse(serviceResponse{
		status: http.StatusBadRequest,
		err:    errors.New("undefined field %##foo"),
	})

	assert.Contains(t, buf.String(), "undefined field %##foo")
	assert.NotContains(t, buf.String(), "MISSING")
}

func TestBoolOptionWithFallback(t *testing.T) {
	assert.True(t, boolOptionWithFallback("true", false))
	assert.False(t, boolOptionWithFallback("0", true))
	assert.True(t, boolOptionWithFallback("", true))
	assert.False(t, boolOptionWithFallback("maybe", false))
}
