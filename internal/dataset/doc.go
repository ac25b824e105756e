// Package dataset reads review CSV files, writes prediction-enriched result
// files, and draws balanced samples for evaluation runs.
package dataset
