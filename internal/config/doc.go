// Package config loads, normalizes, and validates vidresume configuration.
//
// Configuration is read from TOML (default ~/.config/vidresume/config.toml,
// falling back to ./vidresume.toml), merged over repository defaults, and
// expanded so every path is absolute. Validation rejects unknown vectoring
// schemes, unsupported stopword languages and out-of-range thresholds before
// any stage starts.
package config
