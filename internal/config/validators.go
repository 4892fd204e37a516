package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/colors"
)

// normalizer returns the canonical form of value, or ok=false when value is invalid.
// expected describes valid values for the warning.
type normalizer struct {
	normalize func(value string) (string, bool)
	expected  string
}

var (
	positiveInt = normalizer{
		normalize: func(v string) (string, bool) {
			n, err := strconv.Atoi(v)
			return v, err == nil && n > 0
		},
		expected: "a positive integer",
	}
	duration = normalizer{
		normalize: func(v string) (string, bool) {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				return "", false
			}
			return d.String(), true
		},
		expected: "a Go-style duration (e.g. 30s, 5m)",
	}
	boolean = normalizer{
		normalize: func(v string) (string, bool) {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				return "true", true
			case "0", "false", "no", "off":
				return "false", true
			}
			return "", false
		},
		expected: "one of 1, true, yes, on, 0, false, no, off",
	}
)

func oneOf(allowed ...string) normalizer {
	return normalizer{
		normalize: func(v string) (string, bool) {
			lower := strings.ToLower(v)
			return lower, slices.Contains(allowed, lower)
		},
		expected: "one of " + strings.Join(allowed, ", "),
	}
}

// normalizers lists the checked keys. Other keys accept any string.
var normalizers = map[string]normalizer{
	"imap_page_size":         positiveInt,
	"journal_retention_days": positiveInt,
	"logging_max_files":      positiveInt,

	"consumer_timeout":    duration,
	"poll_interval":       duration,
	"startup_retry_delay": duration,

	"junk_on_arrival": oneOf("notify", "skip"),
	"keyring_backend": oneOf("auto", "file", "none"),
	"logging_level":   oneOf("debug", "info", "warn", "error"),

	"debug":           boolean,
	"quiet":           boolean,
	"logging_enabled": boolean,
}

// normalizeValue checks value for key. Empty and invalid values fall back to defaultValue;
// invalid ones also print a warning.
func normalizeValue(key, value, defaultValue string) string {
	n, ok := normalizers[key]
	if !ok {
		return value
	}
	if value == "" {
		return defaultValue
	}
	normalized, valid := n.normalize(value)
	if !valid {
		colors.Warning(fmt.Sprintf("invalid %s value '%s': must be %s; using default: %s", key, value, n.expected, defaultValue))
		return defaultValue
	}
	return normalized
}
