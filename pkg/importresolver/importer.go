package importresolver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mlld-lang/mlld-core/pkg/cache"
	"github.com/mlld-lang/mlld-core/pkg/fsiface"
	"github.com/mlld-lang/mlld-core/pkg/resolver"
)

// LoadContentResult is the view spec.md §4.J/§4.E hands to the
// interpolation layer for file and URL content.
type LoadContentResult struct {
	Content string
	Source  string
	Status  int
	Headers map[string]string
}

// InterpolationContent satisfies pkg/interpolation's duck-typed
// "contentful" interface so arrays of LoadContentResult concatenate by
// content with blank-line separators (spec.md §4.J).
func (r LoadContentResult) InterpolationContent() string { return r.Content }

// Importer wraps a resolver.Manager with the import stack, approval
// gate, fuzzy matching, and hash-keyed caching spec.md §4.E requires.
type Importer struct {
	Manager            *resolver.Manager
	Stack              *Stack
	Gate               *Gate
	Caches             *cache.Caches
	FS                 fsiface.FS
	ProjectRoot        string
	AllowAbsolutePaths bool
	FuzzyMatching      bool
}

// New creates an Importer with fuzzy matching enabled by default
// (spec.md §4.E: "enabled by default").
func New(mgr *resolver.Manager, fs fsiface.FS, projectRoot string, allowAbsolute bool, caches *cache.Caches) *Importer {
	return &Importer{
		Manager:            mgr,
		Stack:              NewStack(),
		Gate:               NewGate(false, nil),
		Caches:             caches,
		FS:                 fs,
		ProjectRoot:        projectRoot,
		AllowAbsolutePaths: allowAbsolute,
		FuzzyMatching:      true,
	}
}

// Import resolves ref to content, enforcing the circular-import stack,
// absolute-path policy, fuzzy local matching, the approval gate, and
// hash-keyed caching, in that order (spec.md §4.E).
func (im *Importer) Import(ctx context.Context, ref string) (LoadContentResult, error) {
	normalized := im.normalize(ref)

	if err := im.Stack.BeginImport(normalized); err != nil {
		return LoadContentResult{}, err
	}
	defer im.Stack.EndImport(normalized)

	if err := im.checkAbsolutePolicy(normalized); err != nil {
		return LoadContentResult{}, err
	}

	resolvedRef, err := im.applyFuzzyMatch(ref)
	if err != nil {
		return LoadContentResult{}, err
	}

	needsApproval := im.needsApproval(resolvedRef)

	cacheKey := cache.HashKey(resolvedRef)
	raw, err := im.Caches.Content.Fetch(cacheKey, func() (interface{}, error) {
		content, err := im.Manager.Resolve(ctx, resolvedRef, resolver.ResolveOpts{Context: resolver.ContextImport})
		if err != nil {
			return nil, err
		}

		hash := content.Metadata.Hash
		if hash == "" {
			hash = cache.HashKey(content.Content)
		}

		if needsApproval && !im.Gate.IsApproved(hash) {
			if err := im.Gate.Approve(resolvedRef, hash); err != nil {
				return nil, err
			}
		}

		return LoadContentResult{
			Content: content.Content,
			Source:  content.Metadata.Source,
			Status:  content.Metadata.Status,
			Headers: content.Metadata.Headers,
		}, nil
	})
	if err != nil {
		return LoadContentResult{}, err
	}
	return raw.(LoadContentResult), nil
}

func (im *Importer) normalize(ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "@") || strings.HasPrefix(ref, "github:") {
		return ref
	}
	return filepath.Clean(filepath.Join(im.ProjectRoot, ref))
}

func (im *Importer) checkAbsolutePolicy(normalized string) error {
	if !filepath.IsAbs(normalized) {
		return nil
	}
	if im.AllowAbsolutePaths {
		return nil
	}
	rel, err := filepath.Rel(im.ProjectRoot, normalized)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("absolute path %q is outside the project root and allowAbsolutePaths is false", normalized)
	}
	return nil
}

func (im *Importer) needsApproval(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "@") || strings.HasPrefix(ref, "github:")
}

// applyFuzzyMatch resolves a local relative reference against its sibling
// directory listing when the literal path doesn't exist, per spec.md
// §4.E. Non-local references pass through unchanged.
func (im *Importer) applyFuzzyMatch(ref string) (string, error) {
	if !im.FuzzyMatching {
		return ref, nil
	}
	if !strings.HasPrefix(ref, "./") && !strings.HasPrefix(ref, "../") {
		return ref, nil
	}

	full := filepath.Join(im.ProjectRoot, ref)
	exists, err := im.FS.Exists(context.Background(), toValidated(full))
	if err == nil && exists {
		return ref, nil
	}

	dir := filepath.Dir(full)
	entries, err := im.FS.ReadDir(context.Background(), toValidated(dir))
	if err != nil {
		return ref, nil // let the resolver chain produce the real not-found error
	}

	var siblings []string
	for _, e := range entries {
		siblings = append(siblings, e.Name())
	}

	matched, err := FuzzyMatch(filepath.Base(ref), siblings)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(ref), matched), nil
}
