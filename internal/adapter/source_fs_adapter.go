// Package adapter contains the infrastructure adapters used by the srclens CLI.
package adapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	m "srclens.dev/pkg/srclens/internal/model"
)

const recursiveSuffix = "/..."

// skippedDirs are never descended into when discovering markup units.
var skippedDirs = map[string]struct{}{
	".git":         {},
	".srclens":     {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	".next":        {},
}

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when scanning user projects. It hides direct `os` access so the
// workflow logic can be tested without touching the disk.
//
//nolint:interfacebloat // A richer interface keeps workflow logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Get discovers markup units for Go-style path patterns (./..., ./dir, file).
	Get(ctx context.Context, paths []m.Path, exclude ...string) ([]m.Source, error)

	// Walk traverses the provided root path. When recursive is false the
	// implementation limits itself to the root directory (no sub-dirs).
	Walk(ctx context.Context, root m.Path, recursive bool, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// HashFile returns a stable SHA-256 fingerprint for the file at path.
	HashFile(ctx context.Context, path m.Path) (string, error)

	// FileInfo returns metadata for a path.
	FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error)

	// FindProjectRoot walks up from startPath looking for package.json or .git.
	FindProjectRoot(ctx context.Context, startPath m.Path) (m.Path, error)

	// WriteFile writes content to a file, creating parent directories.
	WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error

	// RelPath returns the relative path from base to target.
	RelPath(ctx context.Context, base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(ctx context.Context, elem ...string) m.Path
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It is
// defined here to avoid leaking the standard-library type into the domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter is the os-backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Get resolves path patterns into markup sources, sorted by full path.
func (a *LocalSourceFSAdapter) Get(ctx context.Context, paths []m.Path, exclude ...string) ([]m.Source, error) {
	if len(paths) == 0 {
		paths = []m.Path{"./..."}
	}

	excludes, err := compileExcludes(exclude)
	if err != nil {
		return nil, err
	}

	seen := make(map[m.Path]struct{})

	var sources []m.Source

	for _, pattern := range paths {
		root, recursive := splitPattern(string(pattern))

		found, err := a.collect(ctx, root, recursive, excludes)
		if err != nil {
			return nil, err
		}

		for _, source := range found {
			if _, dup := seen[source.Origin.FullPath]; dup {
				continue
			}

			seen[source.Origin.FullPath] = struct{}{}
			sources = append(sources, source)
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Origin.FullPath < sources[j].Origin.FullPath
	})

	slog.Debug("Discovered markup sources", "count", len(sources), "patterns", len(paths))

	return sources, nil
}

func splitPattern(pattern string) (string, bool) {
	pattern = filepath.ToSlash(strings.TrimSpace(pattern))

	if pattern == "..." {
		return ".", true
	}

	if strings.HasSuffix(pattern, recursiveSuffix) {
		root := strings.TrimSuffix(pattern, recursiveSuffix)
		if root == "" {
			root = "/"
		}

		return filepath.FromSlash(root), true
	}

	if pattern == "" {
		return ".", false
	}

	return filepath.FromSlash(pattern), false
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		compiled = append(compiled, re)
	}

	return compiled, nil
}

func excluded(path string, excludes []*regexp.Regexp) bool {
	slashed := filepath.ToSlash(path)
	for _, re := range excludes {
		if re.MatchString(slashed) {
			return true
		}
	}

	return false
}

func (a *LocalSourceFSAdapter) collect(ctx context.Context, root string, recursive bool, excludes []*regexp.Regexp) ([]m.Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	if !info.IsDir() {
		source, ok, err := a.sourceFor(ctx, root, excludes)
		if err != nil || !ok {
			return nil, err
		}

		return []m.Source{source}, nil
	}

	ignore := loadGitignore(root)

	var sources []m.Source

	err = a.Walk(ctx, m.Path(root), recursive, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == root {
				return nil
			}

			if _, skip := skippedDirs[info.Name()]; skip {
				return filepath.SkipDir
			}

			if ignoredByGit(ignore, root, path, true) {
				return filepath.SkipDir
			}

			return nil
		}

		if ignoredByGit(ignore, root, path, false) {
			return nil
		}

		source, ok, err := a.sourceFor(ctx, path, excludes)
		if err != nil {
			return err
		}

		if ok {
			sources = append(sources, source)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return sources, nil
}

func (a *LocalSourceFSAdapter) sourceFor(ctx context.Context, path string, excludes []*regexp.Regexp) (m.Source, bool, error) {
	language, ok := LanguageForPath(m.Path(path))
	if !ok || excluded(path, excludes) {
		return m.Source{}, false, nil
	}

	full, err := filepath.Abs(path)
	if err != nil {
		return m.Source{}, false, fmt.Errorf("resolve %s: %w", path, err)
	}

	hash, err := a.HashFile(ctx, m.Path(full))
	if err != nil {
		return m.Source{}, false, fmt.Errorf("hash error for %s: %w", path, err)
	}

	return m.Source{
		Origin: &m.File{
			ShortPath: m.Path(filepath.Clean(path)),
			FullPath:  m.Path(full),
			Hash:      hash,
		},
		Language: language,
	}, true, nil
}

func loadGitignore(root string) *gitignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	ignore, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		slog.Warn("Failed to compile .gitignore", "path", path, "error", err)
		return nil
	}

	return ignore
}

func ignoredByGit(ignore *gitignore.GitIgnore, root, path string, dir bool) bool {
	if ignore == nil {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	rel = filepath.ToSlash(rel)
	if dir {
		rel += "/"
	}

	return ignore.MatchesPath(rel)
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(ctx context.Context, root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return os.ReadFile(string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(ctx context.Context, path m.Path) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return os.Stat(string(path))
}

// FindProjectRoot searches for package.json, then .git, walking up the directory tree.
func (a *LocalSourceFSAdapter) FindProjectRoot(ctx context.Context, startPath m.Path) (m.Path, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start, err := filepath.Abs(string(startPath))
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(start); err != nil || !info.IsDir() {
		start = filepath.Dir(start)
	}

	for _, marker := range []string{"package.json", ".git"} {
		dir := start

		for {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return m.Path(dir), nil
			}

			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}

			dir = parent
		}
	}

	return "", fmt.Errorf("no package.json or .git found in any parent directory of %s", startPath)
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(_ context.Context, base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(_ context.Context, elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
