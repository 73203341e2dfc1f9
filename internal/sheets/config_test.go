package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/household-ledger/internal/common"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := DefaultConfig()
		c.ServiceAccountPath = "/path/to/key.json"
		return c
	}

	tests := []struct {
		target error
		mutate func(*Config)
		name   string
		errMsg string
	}{
		{name: "service account", mutate: func(*Config) {}},
		{
			name: "oauth",
			mutate: func(c *Config) {
				c.ServiceAccountPath = ""
				c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "token"
			},
		},
		{
			name: "partial oauth credentials",
			mutate: func(c *Config) {
				c.ServiceAccountPath = ""
				c.ClientID, c.RefreshToken = "id", "token"
			},
			target: common.ErrMissingConfig,
			errMsg: "no Google Sheets authentication",
		},
		{
			name: "multiple auth methods",
			mutate: func(c *Config) {
				c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "token"
			},
			target: common.ErrInvalidConfig,
			errMsg: "multiple authentication methods",
		},
		{
			name:   "no spreadsheet",
			mutate: func(c *Config) { c.SpreadsheetName = "" },
			target: common.ErrMissingConfig,
		},
		{
			name:   "invalid batch size",
			mutate: func(c *Config) { c.BatchSize = 0 },
			target: common.ErrInvalidConfig,
			errMsg: "batch size must be positive",
		},
		{
			name:   "zero retries",
			mutate: func(c *Config) { c.RetryAttempts, c.RetryDelay = 0, 0 },
		},
		{
			name:   "negative retry delay",
			mutate: func(c *Config) { c.RetryDelay = -time.Second },
			target: common.ErrInvalidConfig,
			errMsg: "retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.target == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.target)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}
