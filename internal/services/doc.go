// Package services defines shared utilities consumed by the pipeline stages and
// their external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp stage names and per-pass run identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper so stage failures can be
//     classified (detector unavailable, configuration, transient sample
//     failure) without string matching.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
