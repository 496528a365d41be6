package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks cross-field rules; Load calls it.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range (got %d)", c.Server.Port)
	}
	if strings.TrimSpace(c.Vars.Path) == "" {
		return fmt.Errorf("vars.path is required")
	}
	if err := c.Twilio.validate(); err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if err := c.Records.validate(); err != nil {
		return fmt.Errorf("records: %w", err)
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		return fmt.Errorf("otel.sample_ratio must be within [0,1] (got %v)", c.Otel.SampleRatio)
	}
	if s := c.Admin.JWTSecret; s != "" && len(s) < 32 {
		return fmt.Errorf("admin.jwt_secret must be at least 32 characters (got %d)", len(s))
	}
	return nil
}

func (t *TwilioConfig) validate() error {
	if strings.TrimSpace(t.AccountSID) == "" {
		return fmt.Errorf("account_sid is required")
	}
	hasToken := strings.TrimSpace(t.AuthToken) != ""
	hasKey := strings.TrimSpace(t.APIKey) != "" && strings.TrimSpace(t.APIKeySecret) != ""
	if !hasToken && !hasKey {
		return fmt.Errorf("auth_token or api_key/api_key_secret is required")
	}
	if t.ValidateSignature {
		if !hasToken {
			return fmt.Errorf("validate_signature needs auth_token")
		}
		u, err := url.Parse(strings.TrimSpace(t.PublicURL))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("validate_signature needs an absolute public_url (got %q)", t.PublicURL)
		}
	}
	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", t.MaxRetries)
	}
	return nil
}

func (r *RecordsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(r.Backend)) {
	case RecordsSheets, RecordsMemory:
		return nil
	case RecordsSQL:
		switch r.SQLDriver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("sql_driver must be postgres or sqlite (got %q)", r.SQLDriver)
		}
		if strings.TrimSpace(r.SQLDSN) == "" {
			return fmt.Errorf("sql_dsn is required for the sql backend")
		}
		return nil
	default:
		return fmt.Errorf("backend must be one of sheets, sql, memory (got %q)", r.Backend)
	}
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
