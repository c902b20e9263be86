package domain

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"srclens.dev/pkg/srclens/internal/adapter"
	"srclens.dev/pkg/srclens/internal/controller"
	m "srclens.dev/pkg/srclens/internal/model"
)

const defaultFilePerm os.FileMode = 0o644

// ErrFilesFailed is returned when at least one unit could not be annotated.
var ErrFilesFailed = errors.New("some files failed")

// AnnotateArgs contains the arguments for annotating markup units.
type AnnotateArgs struct {
	Paths    []m.Path
	Exclude  []string
	Parallel int
	// Root is the base of the mirrored tree when OutDir is set.
	Root     m.Path
	OutDir   m.Path
	DryRun   bool
	NoCache  bool
	Manifest m.Path
}

// ListArgs contains the arguments for counting elements.
type ListArgs struct {
	Paths    []m.Path
	Exclude  []string
	Parallel int
}

// ResolveArgs contains the arguments for resolving a captured snapshot.
type ResolveArgs struct {
	Snapshot m.Path
	// Target is a Flatten path such as "0.1.2"; empty resolves every element.
	Target string
}

// OpenArgs contains the arguments for building (and launching) an editor link.
type OpenArgs struct {
	Location string
	Launch   bool
}

// Workflow defines the command-line workflows of srclens.
type Workflow interface {
	Annotate(ctx context.Context, args AnnotateArgs) error
	List(ctx context.Context, args ListArgs) error
	Resolve(ctx context.Context, args ResolveArgs) error
	Open(ctx context.Context, args OpenArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.ManifestStore
	adapter.SnapshotLoader
	adapter.EditorLauncher
	controller.UI

	annotator Annotator
	resolver  Resolver
	formatter EditorFormatter
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	manifestStore adapter.ManifestStore,
	snapshotLoader adapter.SnapshotLoader,
	launcher adapter.EditorLauncher,
	ui controller.UI,
	annotator Annotator,
	resolver Resolver,
	formatter EditorFormatter,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ManifestStore:   manifestStore,
		SnapshotLoader:  snapshotLoader,
		EditorLauncher:  launcher,
		UI:              ui,
		annotator:       annotator,
		resolver:        resolver,
		formatter:       formatter,
	}
}

func (w *workflow) Annotate(ctx context.Context, args AnnotateArgs) error {
	options := []controller.StartOption{controller.WithMode(controller.ModeAnnotate)}
	if args.DryRun {
		options = append(options, controller.WithDryRun())
	}

	if err := w.Start(ctx, options...); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	sources, err := w.Get(ctx, args.Paths, args.Exclude...)
	if err != nil {
		slog.Error("Failed to discover sources", "error", err)
		return fmt.Errorf("get sources: %w", err)
	}

	manifest, err := w.loadManifest(ctx, args)
	if err != nil {
		return err
	}

	results := make([]m.AnnotationResult, len(sources))

	var manifestMu sync.Mutex

	err = w.forEachSource(ctx, sources, args.Parallel, func(i int, source m.Source) {
		result, entry := w.annotateSource(ctx, args, manifest, source)
		results[i] = result

		if entry != nil && manifest != nil {
			manifestMu.Lock()
			manifest.Files[string(result.Output)] = *entry
			manifestMu.Unlock()
		}
	})
	if err != nil {
		return err
	}

	if manifest != nil && !args.DryRun {
		if err := w.SaveManifest(ctx, args.Manifest, manifest); err != nil {
			slog.Error("Failed to save manifest", "path", args.Manifest, "error", err)
			return fmt.Errorf("save manifest: %w", err)
		}
	}

	if err := w.DisplayAnnotationResults(ctx, results); err != nil {
		slog.Error("Failed to display annotation results", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return failedFiles(results)
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	if err := w.Start(ctx, controller.WithMode(controller.ModeList)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	sources, err := w.Get(ctx, args.Paths, args.Exclude...)
	if err != nil {
		slog.Error("Failed to discover sources", "error", err)
		return fmt.Errorf("get sources: %w", err)
	}

	results := make([]m.AnnotationResult, len(sources))

	err = w.forEachSource(ctx, sources, args.Parallel, func(i int, source m.Source) {
		result := m.AnnotationResult{Source: source, Output: source.Origin.FullPath}

		unit, err := w.annotateFile(ctx, source)
		if err != nil {
			result.Err = err
		} else {
			result.Elements = unit.Elements
			result.Annotated = unit.Annotated
			result.Skipped = unit.Skipped
			result.Changed = unit.Changed
		}

		results[i] = result
	})
	if err != nil {
		return err
	}

	if err := w.DisplayElementCounts(ctx, results); err != nil {
		slog.Error("Failed to display element counts", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return failedFiles(results)
}

func (w *workflow) Resolve(ctx context.Context, args ResolveArgs) error {
	if err := w.Start(ctx, controller.WithMode(controller.ModeResolve)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	doc, err := w.Load(ctx, args.Snapshot)
	if err != nil {
		slog.Error("Failed to load snapshot", "path", args.Snapshot, "error", err)
		return fmt.Errorf("load snapshot: %w", err)
	}

	reports, err := w.resolveDocument(doc, args.Target)
	if err != nil {
		return err
	}

	if err := w.DisplayResolutions(ctx, reports); err != nil {
		slog.Error("Failed to display resolutions", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

func (w *workflow) Open(ctx context.Context, args OpenArgs) error {
	if err := w.Start(ctx, controller.WithMode(controller.ModeOpen)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	loc, err := ParseLocation(args.Location)
	if err != nil {
		return err
	}

	link := w.formatter.Format(loc)

	if err := w.DisplayEditorLink(ctx, link); err != nil {
		slog.Error("Failed to display editor link", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	if args.Launch {
		if output, err := w.Launch(ctx, link.URI); err != nil {
			slog.Error("Failed to launch editor", "uri", link.URI, "output", output, "error", err)
			return fmt.Errorf("launch editor: %w", err)
		}
	}

	return nil
}

// ParseLocation parses "file:line". The last colon separates the line so
// Windows drive letters survive.
func ParseLocation(value string) (m.SourceLocation, error) {
	idx := strings.LastIndex(value, ":")
	if idx <= 0 {
		return m.SourceLocation{}, fmt.Errorf("invalid location %q: want file:line", value)
	}

	line, ok := positiveInt(value[idx+1:])
	if !ok {
		return m.SourceLocation{}, fmt.Errorf("invalid line in location %q", value)
	}

	return m.SourceLocation{File: value[:idx], Line: line}, nil
}

func (w *workflow) resolveDocument(doc *m.Document, target string) ([]m.ResolutionReport, error) {
	if doc == nil || doc.Root == nil {
		return nil, errors.New("snapshot has no elements")
	}

	var elements []m.FlatElement

	if target != "" {
		el, ok := doc.Root.Find(target)
		if !ok {
			return nil, fmt.Errorf("no element at path %q", target)
		}

		elements = []m.FlatElement{{Path: target, Element: el}}
	} else {
		elements = doc.Root.Flatten()
	}

	reports := make([]m.ResolutionReport, 0, len(elements))

	for _, flat := range elements {
		res := w.resolver.Resolve(flat.Element)

		report := m.ResolutionReport{
			Path:       flat.Path,
			Label:      flat.Element.Label(),
			Resolution: res,
		}

		if res.Found && w.formatter != nil {
			link := w.formatter.Format(res.Location)
			report.Link = &link
		}

		reports = append(reports, report)
	}

	return reports, nil
}

// forEachSource runs fn for every source on an errgroup limited to parallel.
// fn records per-file failures in its result; only cancellation aborts.
func (w *workflow) forEachSource(ctx context.Context, sources []m.Source, parallel int, fn func(int, m.Source)) error {
	var group errgroup.Group
	if parallel > 0 {
		group.SetLimit(parallel)
	}

	for i, source := range sources {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			fn(i, source)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		slog.Error("Workflow interrupted", "error", err)
		return err
	}

	return nil
}

func (w *workflow) loadManifest(ctx context.Context, args AnnotateArgs) (*m.Manifest, error) {
	if args.NoCache || args.Manifest == "" {
		return nil, nil
	}

	manifest, err := w.LoadManifest(ctx, args.Manifest)
	if err != nil {
		slog.Error("Failed to load manifest", "path", args.Manifest, "error", err)
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	return manifest, nil
}

func (w *workflow) annotateSource(ctx context.Context, args AnnotateArgs, manifest *m.Manifest, source m.Source) (m.AnnotationResult, *m.ManifestEntry) {
	result := m.AnnotationResult{Source: source}

	output, err := w.outputPath(ctx, args, source)
	if err != nil {
		result.Err = err
		return result, nil
	}

	result.Output = output

	if w.upToDate(ctx, manifest, source, output) {
		result.Cached = true
		slog.Debug("Skipping already annotated file", "path", output)

		return result, nil
	}

	content, err := w.ReadFile(ctx, source.Origin.FullPath)
	if err != nil {
		slog.Error("Failed to read source", "path", source.Origin.FullPath, "error", err)
		result.Err = fmt.Errorf("read %s: %w", source.Origin.ShortPath, err)

		return result, nil
	}

	unit, err := w.annotator.Annotate(ctx, source.Origin.FullPath, source.Language, content)
	if err != nil {
		slog.Error("Failed to annotate source", "path", source.Origin.FullPath, "error", err)
		result.Err = fmt.Errorf("annotate %s: %w", source.Origin.ShortPath, err)

		return result, nil
	}

	result.Elements = unit.Elements
	result.Annotated = unit.Annotated
	result.Skipped = unit.Skipped
	result.Changed = unit.Changed

	if args.DryRun {
		result.Diff = unifiedDiff(string(source.Origin.ShortPath), content, unit.Code)
		return result, nil
	}

	if unit.Changed || args.OutDir != "" {
		if err := w.WriteFile(ctx, output, unit.Code, w.filePerm(ctx, source)); err != nil {
			slog.Error("Failed to write annotated file", "path", output, "error", err)
			result.Err = fmt.Errorf("write %s: %w", output, err)

			return result, nil
		}
	}

	return result, &m.ManifestEntry{
		Hash:       hashBytes(unit.Code),
		SourceHash: hashBytes(content),
		Elements:   unit.Elements,
		UpdatedAt:  time.Now().UTC(),
	}
}

func (w *workflow) annotateFile(ctx context.Context, source m.Source) (*m.AnnotatedUnit, error) {
	content, err := w.ReadFile(ctx, source.Origin.FullPath)
	if err != nil {
		slog.Error("Failed to read source", "path", source.Origin.FullPath, "error", err)
		return nil, fmt.Errorf("read %s: %w", source.Origin.ShortPath, err)
	}

	unit, err := w.annotator.Annotate(ctx, source.Origin.FullPath, source.Language, content)
	if err != nil {
		slog.Error("Failed to parse source", "path", source.Origin.FullPath, "error", err)
		return nil, fmt.Errorf("parse %s: %w", source.Origin.ShortPath, err)
	}

	return unit, nil
}

// upToDate reports whether the output recorded in the manifest is still the
// file on disk and was produced from the current input.
func (w *workflow) upToDate(ctx context.Context, manifest *m.Manifest, source m.Source, output m.Path) bool {
	if manifest == nil {
		return false
	}

	entry, ok := manifest.Files[string(output)]
	if !ok || entry.Hash == "" {
		return false
	}

	current := source.Origin.Hash
	if output != source.Origin.FullPath {
		hash, err := w.HashFile(ctx, output)
		if err != nil {
			return false
		}

		current = hash

		if entry.SourceHash != source.Origin.Hash {
			return false
		}
	}

	return current == entry.Hash
}

func (w *workflow) outputPath(ctx context.Context, args AnnotateArgs, source m.Source) (m.Path, error) {
	if args.OutDir == "" {
		return source.Origin.FullPath, nil
	}

	root := args.Root
	if root == "" {
		root = "."
	}

	absRoot, err := filepath.Abs(string(root))
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	rel, err := w.RelPath(ctx, m.Path(absRoot), source.Origin.FullPath)
	if err != nil || strings.HasPrefix(string(rel), "..") {
		rel = m.Path(filepath.Base(string(source.Origin.FullPath)))
	}

	return w.JoinPath(ctx, string(args.OutDir), string(rel)), nil
}

func (w *workflow) filePerm(ctx context.Context, source m.Source) os.FileMode {
	info, err := w.FileInfo(ctx, source.Origin.FullPath)
	if err != nil {
		return defaultFilePerm
	}

	return info.Mode().Perm()
}

func unifiedDiff(name string, before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + filepath.ToSlash(name),
		ToFile:   "b/" + filepath.ToSlash(name),
		Context:  3,
	})
	if err != nil {
		slog.Warn("Failed to build diff", "path", name, "error", err)
		return ""
	}

	return diff
}

func hashBytes(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func failedFiles(results []m.AnnotationResult) error {
	failed := 0

	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}

	if failed == 0 {
		return nil
	}

	return fmt.Errorf("%w: %d of %d", ErrFilesFailed, failed, len(results))
}
