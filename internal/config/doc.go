// Package config loads piiscan configuration from local and global YAML files
// with precedence rules, then applies PIISCAN_ environment overrides (a .env
// file is read when present). It is internal; CLI code maps flags and files
// into analyzer configuration.
package config
