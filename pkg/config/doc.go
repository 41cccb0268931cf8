// Package config loads and validates the launchforge configuration file.
// Configuration is a single YAML document with defaults applied before
// validation, so an empty file yields a usable config for every provider
// that does not require an explicit value.
package config
