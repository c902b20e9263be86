package domain_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"srclens.dev/pkg/srclens/internal/adapter"
	adaptermocks "srclens.dev/pkg/srclens/internal/adapter/mocks"
	"srclens.dev/pkg/srclens/internal/controller"
	controllermocks "srclens.dev/pkg/srclens/internal/controller/mocks"
	domain "srclens.dev/pkg/srclens/internal/domain"
	m "srclens.dev/pkg/srclens/internal/model"
)

const appSource = "export const App = () => <div>hi</div>;\n"

func newTestWorkflow(ui controller.UI, launcher adapter.EditorLauncher) domain.Workflow {
	return domain.NewWorkflow(
		adapter.NewLocalSourceFSAdapter(),
		adapter.NewYAMLManifestStore(),
		adapter.NewYAMLSnapshotLoader(),
		launcher,
		ui,
		domain.NewAnnotator(adapter.NewTreeSitterMarkupAdapter()),
		domain.NewResolver(nil),
		domain.NewEditorFormatter(domain.EditorOptions{
			Editor:      "vscode",
			ProjectRoot: "/p",
			Getenv:      func(string) string { return "" },
		}),
	)
}

func expectLifecycle(ui *controllermocks.MockUI, mode controller.StartMode, dryRun bool) {
	ui.On("Start", mock.Anything, mock.MatchedBy(func(cfg controller.StartConfig) bool {
		return cfg.Mode() == mode && cfg.DryRun() == dryRun
	})).Return(nil).Once()
	ui.On("Close", mock.Anything).Return().Once()
}

func writeProject(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.Mkdir(src, 0o755))

	file := filepath.Join(src, "App.jsx")
	require.NoError(t, os.WriteFile(file, []byte(appSource), 0o644))

	return root, file
}

func TestWorkflow_Annotate_InPlaceWithManifest(t *testing.T) {
	// Arrange
	root, file := writeProject(t)
	manifest := m.Path(filepath.Join(root, ".srclens", "manifest.yaml"))
	args := domain.AnnotateArgs{
		Paths:    []m.Path{m.Path(root + "/...")},
		Parallel: 2,
		Manifest: manifest,
	}

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeAnnotate, false)
	ui.On("Wait", mock.Anything).Return().Once()
	ui.On("DisplayAnnotationResults", mock.Anything, mock.MatchedBy(func(results []m.AnnotationResult) bool {
		return len(results) == 1 && results[0].Annotated == 1 && results[0].Changed && !results[0].Cached
	})).Return(nil).Once()

	// Act
	err := newTestWorkflow(ui, nil).Annotate(context.Background(), args)

	// Assert
	require.NoError(t, err)
	ui.AssertExpectations(t)

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, `export const App = () => <div data-source-file="src/App.jsx" data-source-line="1">hi</div>;`+"\n", string(got))
	assert.FileExists(t, string(manifest))

	// A second run skips the already annotated file.
	again := new(controllermocks.MockUI)
	expectLifecycle(again, controller.ModeAnnotate, false)
	again.On("Wait", mock.Anything).Return().Once()
	again.On("DisplayAnnotationResults", mock.Anything, mock.MatchedBy(func(results []m.AnnotationResult) bool {
		return len(results) == 1 && results[0].Cached
	})).Return(nil).Once()

	require.NoError(t, newTestWorkflow(again, nil).Annotate(context.Background(), args))
	again.AssertExpectations(t)
}

func TestWorkflow_Annotate_DryRun(t *testing.T) {
	root, file := writeProject(t)
	manifest := filepath.Join(root, ".srclens", "manifest.yaml")

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeAnnotate, true)
	ui.On("Wait", mock.Anything).Return().Once()

	var captured []m.AnnotationResult
	ui.On("DisplayAnnotationResults", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).([]m.AnnotationResult)
		}).Return(nil).Once()

	err := newTestWorkflow(ui, nil).Annotate(context.Background(), domain.AnnotateArgs{
		Paths:    []m.Path{m.Path(file)},
		DryRun:   true,
		Manifest: m.Path(manifest),
	})

	require.NoError(t, err)
	require.Len(t, captured, 1)
	assert.Contains(t, captured[0].Diff, `+export const App = () => <div data-source-file="src/App.jsx" data-source-line="1">hi</div>;`)
	assert.Contains(t, captured[0].Diff, "-export const App = () => <div>hi</div>;")

	got, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, appSource, string(got), "dry run must not write")
	assert.NoFileExists(t, manifest)
}

func TestWorkflow_Annotate_OutDir(t *testing.T) {
	root, file := writeProject(t)
	out := filepath.Join(t.TempDir(), "out")

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeAnnotate, false)
	ui.On("Wait", mock.Anything).Return().Once()
	ui.On("DisplayAnnotationResults", mock.Anything, mock.Anything).Return(nil).Once()

	err := newTestWorkflow(ui, nil).Annotate(context.Background(), domain.AnnotateArgs{
		Paths:   []m.Path{m.Path(root + "/...")},
		Root:    m.Path(root),
		OutDir:  m.Path(out),
		NoCache: true,
	})
	require.NoError(t, err)

	mirrored, err := os.ReadFile(filepath.Join(out, "src", "App.jsx"))
	require.NoError(t, err)
	assert.Contains(t, string(mirrored), `data-source-file="src/App.jsx"`)

	original, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, appSource, string(original))
}

func TestWorkflow_Annotate_FileFailureDoesNotAbort(t *testing.T) {
	root, _ := writeProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Other.jsx"), []byte("export const O = () => <p />;\n"), 0o644))

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeAnnotate, false)
	ui.On("Wait", mock.Anything).Return().Once()
	ui.On("DisplayAnnotationResults", mock.Anything, mock.MatchedBy(func(results []m.AnnotationResult) bool {
		if len(results) != 2 {
			return false
		}

		for _, result := range results {
			if result.Err == nil || result.Annotated != 1 {
				return false
			}
		}

		return true
	})).Return(nil).Once()

	err := newTestWorkflow(ui, nil).Annotate(context.Background(), domain.AnnotateArgs{
		Paths:   []m.Path{m.Path(root + "/...")},
		Root:    m.Path(root),
		OutDir:  m.Path(blocker),
		NoCache: true,
	})

	assert.ErrorIs(t, err, domain.ErrFilesFailed)
	ui.AssertExpectations(t)
}

func TestWorkflow_Annotate_StartError(t *testing.T) {
	startErr := errors.New("start failed")

	ui := new(controllermocks.MockUI)
	ui.On("Start", mock.Anything, mock.Anything).Return(startErr).Once()

	err := newTestWorkflow(ui, nil).Annotate(context.Background(), domain.AnnotateArgs{})

	assert.ErrorIs(t, err, startErr)
	ui.AssertExpectations(t)
}

func TestWorkflow_Annotate_ManifestLoadError(t *testing.T) {
	root, _ := writeProject(t)

	store := new(adaptermocks.MockManifestStore)
	loadErr := errors.New("corrupt")
	store.On("LoadManifest", mock.Anything, m.Path("manifest.yaml")).Return(nil, loadErr).Once()

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeAnnotate, false)

	wf := domain.NewWorkflow(
		adapter.NewLocalSourceFSAdapter(),
		store,
		adapter.NewYAMLSnapshotLoader(),
		nil,
		ui,
		domain.NewAnnotator(adapter.NewTreeSitterMarkupAdapter()),
		domain.NewResolver(nil),
		domain.NewEditorFormatter(domain.EditorOptions{}),
	)

	err := wf.Annotate(context.Background(), domain.AnnotateArgs{
		Paths:    []m.Path{m.Path(root + "/...")},
		Manifest: "manifest.yaml",
	})

	assert.ErrorIs(t, err, loadErr)
	store.AssertExpectations(t)
	ui.AssertExpectations(t)
}

func TestWorkflow_List(t *testing.T) {
	root, _ := writeProject(t)

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeList, false)
	ui.On("Wait", mock.Anything).Return().Once()
	ui.On("DisplayElementCounts", mock.Anything, mock.MatchedBy(func(results []m.AnnotationResult) bool {
		return len(results) == 1 && results[0].Elements == 1 && results[0].Changed
	})).Return(nil).Once()

	err := newTestWorkflow(ui, nil).List(context.Background(), domain.ListArgs{Paths: []m.Path{m.Path(root + "/...")}})

	require.NoError(t, err)
	ui.AssertExpectations(t)
}

func TestWorkflow_Resolve(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "page.yaml")
	require.NoError(t, os.WriteFile(snapshot, []byte(`
root:
  tag: main
  attributes:
    data-reactroot: ""
  children:
    - tag: button
      attributes:
        data-source-file: src/App.jsx
        data-source-line: "3"
    - tag: span
`), 0o644))

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeResolve, false)
	ui.On("Wait", mock.Anything).Return().Once()

	var reports []m.ResolutionReport
	ui.On("DisplayResolutions", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			reports = args.Get(1).([]m.ResolutionReport)
		}).Return(nil).Once()

	err := newTestWorkflow(ui, nil).Resolve(context.Background(), domain.ResolveArgs{Snapshot: m.Path(snapshot)})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, "0.0", reports[1].Path)
	assert.Equal(t, "button", reports[1].Label)
	assert.True(t, reports[1].Resolution.Found)
	require.NotNil(t, reports[1].Link)
	assert.Equal(t, "vscode://file/p/src/App.jsx:3", reports[1].Link.URI)

	assert.False(t, reports[2].Resolution.Found)
	assert.Equal(t, m.ReasonNoInternalRecord, reports[2].Resolution.Reason)
	assert.Nil(t, reports[2].Link)
}

func TestWorkflow_Resolve_UnknownTarget(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "page.json")
	require.NoError(t, os.WriteFile(snapshot, []byte(`{"root":{"tag":"div"}}`), 0o644))

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeResolve, false)

	err := newTestWorkflow(ui, nil).Resolve(context.Background(), domain.ResolveArgs{Snapshot: m.Path(snapshot), Target: "0.4"})

	assert.Error(t, err)
	ui.AssertExpectations(t)
}

func TestWorkflow_Open(t *testing.T) {
	launcher := new(adaptermocks.MockEditorLauncher)
	launcher.On("Launch", mock.Anything, "vscode://file/p/src/App.jsx:3").Return("", nil).Once()

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeOpen, false)
	ui.On("DisplayEditorLink", mock.Anything, mock.MatchedBy(func(link m.EditorLink) bool {
		return link.Display == "src/App.jsx:3"
	})).Return(nil).Once()

	err := newTestWorkflow(ui, launcher).Open(context.Background(), domain.OpenArgs{Location: "src/App.jsx:3", Launch: true})

	require.NoError(t, err)
	launcher.AssertExpectations(t)
	ui.AssertExpectations(t)
}

func TestWorkflow_Open_LaunchError(t *testing.T) {
	launchErr := errors.New("no opener")

	launcher := new(adaptermocks.MockEditorLauncher)
	launcher.On("Launch", mock.Anything, mock.Anything).Return("xdg-open: not found", launchErr).Once()

	ui := new(controllermocks.MockUI)
	expectLifecycle(ui, controller.ModeOpen, false)
	ui.On("DisplayEditorLink", mock.Anything, mock.Anything).Return(nil).Once()

	err := newTestWorkflow(ui, launcher).Open(context.Background(), domain.OpenArgs{Location: "src/App.jsx:3", Launch: true})

	assert.ErrorIs(t, err, launchErr)
}

func TestParseLocation(t *testing.T) {
	loc, err := domain.ParseLocation("src/App.jsx:12")
	require.NoError(t, err)
	assert.Equal(t, m.SourceLocation{File: "src/App.jsx", Line: 12}, loc)

	loc, err = domain.ParseLocation(`C:\proj\src\App.jsx:7`)
	require.NoError(t, err)
	assert.Equal(t, `C:\proj\src\App.jsx`, loc.File)

	for _, bad := range []string{"src/App.jsx", ":3", "src/App.jsx:0", "src/App.jsx:x"} {
		_, err := domain.ParseLocation(bad)
		assert.Error(t, err, bad)
	}
}
