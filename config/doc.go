// Package config loads and validates the hashdrop server configuration
// from defaults, config files, environment variables, and CLI flags.
package config
