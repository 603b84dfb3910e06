package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/labels"
)

// TTL bounds accepted by the managed zone, in seconds.
const (
	MinTTL = 1
	MaxTTL = 86400
)

// Defaults for the optional environment variables.
const (
	DefaultLocation      = "us"
	DefaultLabelSelector = "watch=true"
	DefaultTTL           = 300
)

// RecordType is the only record type this agent manages. The merge protocol
// assumes a geo routing policy, which Cloud DNS supports for address records.
const RecordType = "A"

// Config is the validated agent configuration, derived from environment
// variables once at startup. An agent only ever authors the geo item whose
// location matches Location; everything else in the shared record is owned
// by other agents.
type Config struct {
	// Project is the GCP project that owns the managed zone.
	Project string

	// Zone is the managed zone name within the project.
	Zone string

	// RecordName is the FQDN of the shared record, normalized to carry a
	// trailing dot.
	RecordName string

	// Location is the geo location code this agent contributes under.
	Location string

	// LabelSelector filters which ingresses are watched.
	LabelSelector string

	// TTL is the record TTL in seconds this agent writes. Last writer wins
	// across agents for this field.
	TTL int64
}

// Error is a fatal configuration problem. It is only ever produced at
// startup; nothing at steady state returns it.
type Error struct {
	Variable string
	Message  string
}

func (e *Error) Error() string {
	if e.Variable == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Variable, e.Message)
}

// FromEnv builds and validates the configuration from the process
// environment. Any returned error is an *Error and must be treated as fatal.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Project:       os.Getenv("GCP_PROJECT"),
		Zone:          os.Getenv("DNS_ZONE_NAME"),
		RecordName:    os.Getenv("DNS_RECORD_NAME"),
		Location:      envOrDefault("GEO_LOCATION", DefaultLocation),
		LabelSelector: envOrDefault("LABEL_SELECTOR", DefaultLabelSelector),
		TTL:           DefaultTTL,
	}

	for _, required := range []struct {
		name  string
		value string
	}{
		{"GCP_PROJECT", cfg.Project},
		{"DNS_ZONE_NAME", cfg.Zone},
		{"DNS_RECORD_NAME", cfg.RecordName},
	} {
		if required.value == "" {
			return nil, &Error{Variable: required.name, Message: "required environment variable is not set"}
		}
	}

	if raw := os.Getenv("TTL"); raw != "" {
		ttl, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &Error{Variable: "TTL", Message: fmt.Sprintf("invalid value %q: must be an integer", raw)}
		}
		cfg.TTL = ttl
	}
	if cfg.TTL < MinTTL || cfg.TTL > MaxTTL {
		return nil, &Error{Variable: "TTL", Message: fmt.Sprintf("value %d out of range [%d, %d]", cfg.TTL, MinTTL, MaxTTL)}
	}

	if _, err := labels.Parse(cfg.LabelSelector); err != nil {
		return nil, &Error{Variable: "LABEL_SELECTOR", Message: fmt.Sprintf("invalid selector %q: %v", cfg.LabelSelector, err)}
	}

	// Cloud DNS record names are absolute.
	if !strings.HasSuffix(cfg.RecordName, ".") {
		cfg.RecordName += "."
	}

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
