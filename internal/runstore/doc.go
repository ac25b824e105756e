// Package runstore persists batch run history in SQLite: one row per run
// plus one row per item, so past verdicts stay inspectable after the
// process exits.
package runstore
