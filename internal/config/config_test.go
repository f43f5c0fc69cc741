package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		APIBaseURL:     "https://api.vibecheck.ai",
		APIToken:       "vc_secret_token_value",
		PageSize:       20,
		RequestTimeout: 15 * time.Second,
		StreamTimeout:  5 * time.Minute,
		MaxRetries:     2,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateNil(t *testing.T) {
	var c *Config
	assert.ErrorIs(t, c.Validate(), ErrConfigNil)
}

func TestValidateBaseURL(t *testing.T) {
	for _, bad := range []string{"", "not a url", "api.vibecheck.ai", "https://"} {
		c := validConfig()
		c.APIBaseURL = bad
		assert.ErrorIs(t, c.Validate(), ErrInvalidBaseURL, "url %q", bad)
	}
}

func TestValidatePageSize(t *testing.T) {
	c := validConfig()
	c.PageSize = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidPageSize)

	c.PageSize = MaxPageSize + 1
	assert.ErrorIs(t, c.Validate(), ErrInvalidPageSize)
}

func TestValidateTimeouts(t *testing.T) {
	c := validConfig()
	c.RequestTimeout = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidTimeout)

	c = validConfig()
	c.StreamTimeout = -time.Second
	assert.ErrorIs(t, c.Validate(), ErrInvalidTimeout)
}

func TestValidateMaxRetries(t *testing.T) {
	c := validConfig()
	c.MaxRetries = -1
	assert.ErrorIs(t, c.Validate(), ErrInvalidMaxRetries)

	c.MaxRetries = MaxRetriesCeiling + 1
	assert.ErrorIs(t, c.Validate(), ErrInvalidMaxRetries)
}

func TestMarshalJSONMasksToken(t *testing.T) {
	data, err := json.Marshal(*validConfig())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "vc_s****", out["api_token"])
	assert.NotContains(t, string(data), "vc_secret_token_value")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "abcd****", maskSecret("abcdefgh"))
}
