package versioning

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpattn/verledger/internal/auth"
	"github.com/rpattn/verledger/internal/domain"
)

// Default result keys for the record and version steps.
const (
	DefaultModelKey   = "model"
	DefaultVersionKey = "version"
)

// Config controls how the engine composes and reports a versioned mutation.
// A client carries a base config; per-call options override a copy of it, so
// configuration is always explicit and never ambient.
type Config struct {
	// Strict enables the sequence-linked mode that maintains
	// first_version_id/current_version_id on tracked records.
	Strict bool
	// ModelKey and VersionKey name the record and version steps in results.
	ModelKey   string
	VersionKey string
	// ReturnKey selects a single named step to surface from a result.
	ReturnKey string
	// Provenance copied verbatim onto captured versions.
	OriginatorID *uuid.UUID
	Origin       *string
	Meta         map[string]any
	// ReturnInserted makes bulk version projections return the inserted
	// version rows instead of only their count.
	ReturnInserted bool
}

// Option overrides one call's configuration.
type Option func(*Config)

// WithStrict toggles strict mode for one call.
func WithStrict(strict bool) Option {
	return func(c *Config) { c.Strict = strict }
}

// WithModelKey overrides the record step's result key.
func WithModelKey(key string) Option {
	return func(c *Config) { c.ModelKey = key }
}

// WithVersionKey overrides the version step's result key.
func WithVersionKey(key string) Option {
	return func(c *Config) { c.VersionKey = key }
}

// WithReturn selects a single step's result to surface.
func WithReturn(key string) Option {
	return func(c *Config) { c.ReturnKey = key }
}

// WithOriginator records the acting actor on captured versions.
func WithOriginator(id uuid.UUID) Option {
	return func(c *Config) { c.OriginatorID = &id }
}

// WithOrigin tags captured versions with a free-text source.
func WithOrigin(origin string) Option {
	return func(c *Config) { c.Origin = &origin }
}

// WithMeta attaches an arbitrary structured annotation to captured versions.
func WithMeta(meta map[string]any) Option {
	return func(c *Config) { c.Meta = meta }
}

// WithReturnInserted makes bulk projections return their version rows.
func WithReturnInserted() Option {
	return func(c *Config) { c.ReturnInserted = true }
}

// resolve merges the client config with per-call options and fills defaults.
// When no originator was chosen explicitly, the authenticated actor on the
// context is used.
func resolve(ctx context.Context, base Config, opts []Option) Config {
	cfg := base
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ModelKey == "" {
		cfg.ModelKey = DefaultModelKey
	}
	if cfg.VersionKey == "" {
		cfg.VersionKey = DefaultVersionKey
	}
	if cfg.OriginatorID == nil {
		if id, ok := auth.OriginatorFromContext(ctx); ok {
			cfg.OriginatorID = &id
		}
	}
	return cfg
}

func (c Config) captureOptions() domain.CaptureOptions {
	return domain.CaptureOptions{
		OriginatorID: c.OriginatorID,
		Origin:       c.Origin,
		Meta:         c.Meta,
	}
}
