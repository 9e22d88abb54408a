package dbmigrate

import (
	"errors"

	"github.com/fdg312/meal-hub/internal/config"
)

var (
	ErrNoDatabaseURL     = errors.New("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")
	ErrDirectURLRequired = errors.New("DATABASE_URL_DIRECT is required for startup migrations")
)

// Target is the database a migration command runs against.
type Target struct {
	URL     string
	Source  string // env var the URL came from
	Warning string
}

// SelectTarget picks the migration database: DATABASE_URL_DIRECT, then
// DATABASE_URL, then DATABASE_URL_POOLED with a warning. requireDirect
// accepts only the direct URL.
func SelectTarget(cfg *config.Config, requireDirect bool) (Target, error) {
	candidates := []Target{
		{URL: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"},
		{URL: cfg.DatabaseURLRaw, Source: "DATABASE_URL"},
		{
			URL:     cfg.DatabaseURLPooled,
			Source:  "DATABASE_URL_POOLED",
			Warning: "using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT",
		},
	}
	if requireDirect {
		candidates = candidates[:1]
	}

	for _, c := range candidates {
		if c.URL != "" {
			return c, nil
		}
	}
	if requireDirect {
		return Target{}, ErrDirectURLRequired
	}
	return Target{}, ErrNoDatabaseURL
}
