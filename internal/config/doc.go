// Package config loads, normalizes, and validates annofuse configuration.
//
// It supplies defaults for every section, expands user paths (including
// tilde shortcuts), reads TOML files, and honours the ANNOFUSE_DATASET_DIR
// environment fallback. Batch drivers and CLI commands receive one Config
// value instead of reading process-wide settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
