package importresolver

import "github.com/mlld-lang/mlld-core/pkg/pathtypes"

// toValidated wraps an already-policy-checked absolute path for FS
// calls. Import-side paths are checked by checkAbsolutePolicy/the
// resolver chain before reaching here, not by pkg/pathtypes.Validator —
// that validator guards directive-authored `/path` references (§6),
// a distinct call site from the importer's own directory probing.
func toValidated(p string) pathtypes.ValidatedResourcePath {
	return pathtypes.ValidatedResourcePath(p)
}
