package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv populates the three required variables with valid values.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GCP_PROJECT", "test-project")
	t.Setenv("DNS_ZONE_NAME", "test-zone")
	t.Setenv("DNS_RECORD_NAME", "api.example.com.")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEO_LOCATION", "")
	t.Setenv("LABEL_SELECTOR", "")
	t.Setenv("TTL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "test-project", cfg.Project)
	assert.Equal(t, "test-zone", cfg.Zone)
	assert.Equal(t, "api.example.com.", cfg.RecordName)
	assert.Equal(t, "us", cfg.Location)
	assert.Equal(t, "watch=true", cfg.LabelSelector)
	assert.Equal(t, int64(300), cfg.TTL)
}

func TestFromEnv_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
	}{
		{"missing project", "GCP_PROJECT"},
		{"missing zone", "DNS_ZONE_NAME"},
		{"missing record name", "DNS_RECORD_NAME"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(test.unset, "")

			_, err := FromEnv()
			require.Error(t, err)

			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, test.unset, cfgErr.Variable)
		})
	}
}

func TestFromEnv_TTLValidation(t *testing.T) {
	tests := []struct {
		name    string
		ttl     string
		want    int64
		wantErr bool
	}{
		{"explicit valid", "600", 600, false},
		{"lower bound", "1", 1, false},
		{"upper bound", "86400", 86400, false},
		{"zero", "0", 0, true},
		{"too large", "86401", 0, true},
		{"negative", "-1", 0, true},
		{"not a number", "5m", 0, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("TTL", test.ttl)

			cfg, err := FromEnv()
			if test.wantErr {
				var cfgErr *Error
				require.True(t, errors.As(err, &cfgErr))
				assert.Equal(t, "TTL", cfgErr.Variable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, cfg.TTL)
		})
	}
}

func TestFromEnv_InvalidSelector(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LABEL_SELECTOR", "watch===true")

	_, err := FromEnv()
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "LABEL_SELECTOR", cfgErr.Variable)
}

func TestFromEnv_NormalizesRecordName(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DNS_RECORD_NAME", "api.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "api.example.com.", cfg.RecordName)
}
