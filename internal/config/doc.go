// Package config loads, normalizes, and validates goldcheck configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the GOLDCHECK_GENERATE_ANSWERS
// environment toggle. Always obtain settings through this package so
// downstream code receives absolute paths, canonical log formats and a
// validated encoding policy.
package config
