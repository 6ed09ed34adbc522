// Package config provides configuration loading and validation for the
// flowkit CLI.
//
// It uses Viper to load configuration from files and environment variables.
// The loader searches for flowkit.yml in the working directory, ./configs,
// the user's ~/.flowkit directory, and /etc/flowkit, in that order.
//
// # Usage
//
//	cfg, err := config.Load()
//
// Environment variables override file values using underscore-separated
// paths (e.g., GENERAL_TARGET, STORE_PATH).
package config
