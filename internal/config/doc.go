// Package config loads, parses and validates the taskboard settings from
// environment variables, an optional config.yaml and an optional .env file.
// Components receive only the typed sub-struct they need.
package config
