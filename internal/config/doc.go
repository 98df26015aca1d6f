// Package config loads, validates, and normalizes clearvoice configuration
// from TOML files, applying repository defaults for anything unset.
package config
