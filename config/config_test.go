package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(m map[string]string) func(key, def string) string {
	return func(key, def string) string {
		if v, ok := m[key]; ok {
			return v
		}
		return def
	}
}

func TestBuildDefaults(t *testing.T) {
	cfg, err := build(lookup(nil))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Equal(t, 2, cfg.APIReadRetries)
	assert.Equal(t, 25, cfg.DefaultPageSize)
	assert.Equal(t, "memory", cfg.DocumentStore)
	assert.Equal(t, []string{"jpg", "jpeg", "png", "pdf", "doc", "docx"}, cfg.AllowedExtensionList())
}

func TestBuildOverrides(t *testing.T) {
	cfg, err := build(lookup(map[string]string{
		"API_BASE_URL":    "https://api.example.edu/v1/",
		"API_TIMEOUT":     "2d",
		"SUBMIT_LOCK_TTL": "1w",
		"DOCUMENT_STORE":  "S3",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.edu/v1", cfg.APIBaseURL)
	assert.Equal(t, 48*time.Hour, cfg.APITimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.SubmitLockTTL)
	assert.Equal(t, "s3", cfg.DocumentStore)
}

func TestBuildRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"timeout", "API_TIMEOUT", "soon"},
		{"file size", "MAX_FILE_SIZE", "ten"},
		{"retries", "API_READ_RETRIES", "-1"},
		{"page size", "DEFAULT_PAGE_SIZE", "0"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := build(lookup(map[string]string{tc.key: tc.val}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestGetDSN(t *testing.T) {
	c := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "d"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local", c.GetDSN())
}
