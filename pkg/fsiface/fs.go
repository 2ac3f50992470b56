// Package fsiface defines the filesystem contract the evaluation runtime
// consumes (spec.md §6). The interpreter never calls os.* directly —
// everything routes through FS so tests can swap in an in-memory
// filesystem, the way upbound-up swaps afero.NewMemMapFs() for
// afero.NewOsFs() in its project build pipeline.
package fsiface

import (
	"context"
	"io/fs"
	"time"

	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
)

// WatchEvent mirrors a single filesystem change notification.
type WatchEvent struct {
	Path string
	Op   string // fsnotify's Op.String() form, e.g. "CREATE", "WRITE", "REMOVE|RENAME"
}

// FS is the filesystem contract every I/O call in the runtime goes
// through. Paths passed in MUST be a pathtypes.ValidatedResourcePath; the
// type is a plain string type, so holding one does not by itself show
// that pathtypes.Validator checked the path.
type FS interface {
	ReadFile(ctx context.Context, path pathtypes.ValidatedResourcePath) ([]byte, error)
	WriteFile(ctx context.Context, path pathtypes.ValidatedResourcePath, content []byte, perm fs.FileMode) error
	Exists(ctx context.Context, path pathtypes.ValidatedResourcePath) (bool, error)
	Stat(ctx context.Context, path pathtypes.ValidatedResourcePath) (fs.FileInfo, error)
	IsFile(ctx context.Context, path pathtypes.ValidatedResourcePath) (bool, error)
	IsDirectory(ctx context.Context, path pathtypes.ValidatedResourcePath) (bool, error)
	ReadDir(ctx context.Context, path pathtypes.ValidatedResourcePath) ([]fs.DirEntry, error)
	Mkdir(ctx context.Context, path pathtypes.ValidatedResourcePath, perm fs.FileMode) error
	ExecuteCommand(ctx context.Context, workdir string, shell, command string, timeout time.Duration) (stdout, stderr string, exitCode int, err error)
	Watch(ctx context.Context, path pathtypes.ValidatedResourcePath) (<-chan WatchEvent, func() error, error)
}
