// Package services defines shared utilities consumed by the classification
// pipeline and the provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, item positions, and provider names
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (remote vs parse vs validation) uniform across packages.
package services
