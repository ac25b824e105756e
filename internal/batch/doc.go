// Package batch runs classification over many reviews sequentially, spacing
// provider calls to respect the remote rate limit and recording per-item
// outcomes so one bad review never sinks the rest of the run.
package batch
