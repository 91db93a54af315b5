// Package piiscan provides the command-line interface for piiscan. It wires
// configuration, logging and the analysis orchestrator into subcommands
// (analyze, scan, redact, serve, etc.), parses flags, and executes the
// selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/redactyl/piiscan/cmd/piiscan"
//	func main() { piiscan.Execute() }
package piiscan
