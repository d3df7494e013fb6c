package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the public URL of the portal.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for visitor and relayed backend cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure marks every cookie the gateway sets as Secure.
	CookieSecure bool `env:"APP_COOKIE_SECURE" envDefault:"true"`

	// VisitorHashKey and VisitorBlockKey sign and encrypt the visitor cookie.
	// Hex encoded; the hash key needs 32 or 64 bytes, the block key 16, 24, or 32 (or empty).
	VisitorHashKey  string `env:"VISITOR_COOKIE_HASH_KEY"`
	VisitorBlockKey string `env:"VISITOR_COOKIE_BLOCK_KEY"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.CookieDomain = strings.TrimSpace(h.CookieDomain)
	h.VisitorHashKey = strings.TrimSpace(h.VisitorHashKey)
	h.VisitorBlockKey = strings.TrimSpace(h.VisitorBlockKey)
}

// VisitorKeys decodes the visitor cookie keys. Empty keys yield nil slices.
func (h HTTPConfig) VisitorKeys() (hashKey, blockKey []byte, err error) {
	if h.VisitorHashKey != "" {
		if hashKey, err = hex.DecodeString(h.VisitorHashKey); err != nil {
			return nil, nil, fmt.Errorf("decode VISITOR_COOKIE_HASH_KEY: %w", err)
		}
	}
	if h.VisitorBlockKey != "" {
		if blockKey, err = hex.DecodeString(h.VisitorBlockKey); err != nil {
			return nil, nil, fmt.Errorf("decode VISITOR_COOKIE_BLOCK_KEY: %w", err)
		}
	}
	return hashKey, blockKey, nil
}

func (h HTTPConfig) validateKeys(isDev bool) error {
	hashKey, blockKey, err := h.VisitorKeys()
	if err != nil {
		return err
	}
	if len(hashKey) == 0 {
		if isDev {
			return nil
		}
		return errors.New("VISITOR_COOKIE_HASH_KEY is required outside development")
	}
	if len(hashKey) != 32 && len(hashKey) != 64 {
		return fmt.Errorf("VISITOR_COOKIE_HASH_KEY must decode to 32 or 64 bytes, got %d", len(hashKey))
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("VISITOR_COOKIE_BLOCK_KEY must decode to 16, 24, or 32 bytes, got %d", len(blockKey))
	}
}
