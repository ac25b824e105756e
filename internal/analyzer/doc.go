// Package analyzer coordinates single-review classification: prompt
// construction, cache consultation, paced provider calls, and reply
// normalization. The batch scheduler drives it once per review.
package analyzer
