package main

import (
	"strings"

	"github.com/rs/zerolog"
)

// configValidator accumulates missing or out-of-range config values so
// every problem is logged before the service gives up
type configValidator struct {
	logger  zerolog.Logger
	section string
	missing []string
}

func newConfigValidator(logger zerolog.Logger, section string) *configValidator {
	return &configValidator{logger: logger, section: section}
}

func (v *configValidator) fail(label string, problem string) {
	v.logger.Error().Str("section", v.section).Msgf("[VALIDATE] %s %s", label, problem)
	v.missing = append(v.missing, label)
}

func (v *configValidator) requireValue(value string, label string) {
	if strings.TrimSpace(value) == "" {
		v.fail(label, "is missing")
	}
}

func (v *configValidator) requirePositive(value int, label string) {
	if value <= 0 {
		v.fail(label, "must be positive")
	}
}

func (v *configValidator) invalid() bool {
	return len(v.missing) > 0
}
