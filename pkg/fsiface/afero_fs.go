package fsiface

import (
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/mlld-lang/mlld-core/pkg/pathtypes"
)

// AferoFS is the default FS implementation. Swapping its afero.Fs for
// afero.NewMemMapFs() gives tests an isolated, disk-free filesystem — the
// same pattern upbound-up uses for its project build pipeline.
type AferoFS struct {
	fs afero.Fs
}

// NewOSFilesystem returns an AferoFS backed by the real disk.
func NewOSFilesystem() *AferoFS {
	return &AferoFS{fs: afero.NewOsFs()}
}

// NewMemFilesystem returns an AferoFS backed by an in-memory map, useful
// for tests that must not touch the real disk.
func NewMemFilesystem() *AferoFS {
	return &AferoFS{fs: afero.NewMemMapFs()}
}

func (a *AferoFS) ReadFile(_ context.Context, path pathtypes.ValidatedResourcePath) ([]byte, error) {
	return afero.ReadFile(a.fs, string(path))
}

func (a *AferoFS) WriteFile(_ context.Context, path pathtypes.ValidatedResourcePath, content []byte, perm fs.FileMode) error {
	return afero.WriteFile(a.fs, string(path), content, perm)
}

func (a *AferoFS) Exists(_ context.Context, path pathtypes.ValidatedResourcePath) (bool, error) {
	return afero.Exists(a.fs, string(path))
}

func (a *AferoFS) Stat(_ context.Context, path pathtypes.ValidatedResourcePath) (fs.FileInfo, error) {
	return a.fs.Stat(string(path))
}

func (a *AferoFS) IsFile(ctx context.Context, path pathtypes.ValidatedResourcePath) (bool, error) {
	info, err := a.Stat(ctx, path)
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (a *AferoFS) IsDirectory(ctx context.Context, path pathtypes.ValidatedResourcePath) (bool, error) {
	info, err := a.Stat(ctx, path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (a *AferoFS) ReadDir(_ context.Context, path pathtypes.ValidatedResourcePath) ([]fs.DirEntry, error) {
	infos, err := afero.ReadDir(a.fs, string(path))
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

func (a *AferoFS) Mkdir(_ context.Context, path pathtypes.ValidatedResourcePath, perm fs.FileMode) error {
	return a.fs.MkdirAll(string(path), perm)
}

// ExecuteCommand spawns `shell -c command` with the given timeout. This is
// the one place os/exec appears — the shell spawning mechanics themselves
// are an external collaborator per spec.md §1, but the contract (§6) still
// lives here so Environment.executeCommand has something concrete to call.
func (a *AferoFS) ExecuteCommand(ctx context.Context, workdir, shell, command string, timeout time.Duration) (string, string, int, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, shell, "-c", command)
	if workdir != "" {
		cmd.Dir = workdir
	}
	var stdout, stderr stringBuilder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if runCtx.Err() != nil {
			return stdout.String(), stderr.String(), -1, fmt.Errorf("command timed out: %w", runCtx.Err())
		} else {
			return stdout.String(), stderr.String(), -1, err
		}
	}
	return stdout.String(), stderr.String(), exitCode, nil
}

// Watch subscribes to filesystem change notifications using fsnotify on
// the OS path, whichever afero filesystem backs a. A path that exists
// only in an in-memory filesystem makes the fsnotify watch fail, and that
// error is returned.
func (a *AferoFS) Watch(ctx context.Context, path pathtypes.ValidatedResourcePath) (<-chan WatchEvent, func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Add(string(path)); err != nil {
		_ = watcher.Close()
		return nil, nil, err
	}

	events := make(chan WatchEvent)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				events <- WatchEvent{Path: ev.Name, Op: ev.Op.String()}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, watcher.Close, nil
}

type stringBuilder struct {
	buf []byte
}

func (s *stringBuilder) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *stringBuilder) String() string {
	return string(s.buf)
}

var _ FS = (*AferoFS)(nil)
