// Package config loads and validates the YAML service configuration.
package config
