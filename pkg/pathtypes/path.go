// Package pathtypes provides the path types the filesystem contract uses
// and the Validator that checks raw paths against policy (§6).
package pathtypes

// RawPath is an unvalidated path as it appeared in source — a literal,
// an interpolated string, or a CLI argument. It carries no guarantees.
type RawPath string

// NormalizedAbsolutePath is a RawPath that has been made absolute and
// cleaned (no "..", no trailing slash) but not yet checked against policy.
type NormalizedAbsolutePath string

// ValidatedResourcePath is the only path type the filesystem contract
// (pkg/fsiface) accepts. Validator.Validate (validator.go) returns one
// after its policy checks; it is a plain string type, and the resolvers
// and the importer also convert paths to it directly without the
// Validator.
type ValidatedResourcePath string

// ContentKind distinguishes a MeldPath's underlying resource type.
type ContentKind string

const (
	ContentKindFilesystem ContentKind = "filesystem"
	ContentKindURL        ContentKind = "url"
)

// MeldPath is the record returned by the path service contract (§6).
type MeldPath struct {
	OriginalValue  RawPath
	ValidatedPath  ValidatedResourcePath
	IsAbsolute     bool
	ContentKind    ContentKind
}
