package adapter

import (
	"context"
	"testing"
	"time"
)

func TestCommandFor(t *testing.T) {
	uri := "vscode://file/p/src/App.jsx:4"

	tests := []struct {
		goos string
		name string
		args int
	}{
		{"darwin", "open", 1},
		{"linux", "xdg-open", 1},
		{"freebsd", "xdg-open", 1},
		{"windows", "rundll32", 2},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args := commandFor(tt.goos, uri)
			if name != tt.name {
				t.Fatalf("commandFor(%s) = %s, want %s", tt.goos, name, tt.name)
			}

			if len(args) != tt.args || args[len(args)-1] != uri {
				t.Fatalf("commandFor(%s) args = %v", tt.goos, args)
			}
		})
	}
}

func TestLocalEditorLauncher_Launch_EmptyURI(t *testing.T) {
	launcher := NewLocalEditorLauncher()

	if _, err := launcher.Launch(context.Background(), "  "); err == nil {
		t.Fatalf("Launch() expected error for empty uri")
	}
}

func TestLocalEditorLauncher_Launch_MissingOpener(t *testing.T) {
	launcher := &LocalEditorLauncher{timeout: time.Second, goos: "plan9-without-opener"}
	t.Setenv("PATH", t.TempDir())

	if _, err := launcher.Launch(context.Background(), "vscode://file/p/a.jsx:1"); err == nil {
		t.Fatalf("Launch() expected error when the opener is not installed")
	}
}
