// Package preflight provides readiness checks for the provider endpoint and
// filesystem paths that sentimark depends on.
//
// The CLI "sentimark health" command assembles the individual check
// functions (CheckProvider, CheckDirectoryAccess) into a pass/fail table so
// a doomed batch run fails in seconds instead of minutes.
package preflight
