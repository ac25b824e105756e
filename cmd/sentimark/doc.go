// Package main hosts the sentimark CLI entrypoint and command graph.
//
// The Cobra-based command tree covers single-review classification, batch
// dataset runs, run history, result cache maintenance, balanced dataset
// sampling, and preflight health checks. It centralizes configuration
// resolution, provider construction, and logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
