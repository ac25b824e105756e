// Package resultcache stores normalized classification results keyed by
// review text, mode, and temperature. It deduplicates concurrent requests
// for the same key and can persist entries to a JSON file between runs.
package resultcache
