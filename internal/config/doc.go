// Package config loads livecut configuration from a TOML file, applies
// environment overrides and validates the result.
//
// Lookup order for the file is the --config path, then ./livecut.toml.
// A missing file is not an error; defaults apply.
package config
