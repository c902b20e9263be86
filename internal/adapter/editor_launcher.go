package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// EditorLauncher hands editor deep links to the operating system.
type EditorLauncher interface {
	// Launch opens uri with the platform URL handler and returns its output.
	Launch(ctx context.Context, uri string) (output string, err error)
}

// LocalEditorLauncher provides a concrete implementation using os/exec.
type LocalEditorLauncher struct {
	timeout time.Duration
	goos    string
}

// NewLocalEditorLauncher constructs a LocalEditorLauncher with a default 10s timeout.
func NewLocalEditorLauncher() *LocalEditorLauncher {
	return &LocalEditorLauncher{
		timeout: 10 * time.Second,
		goos:    runtime.GOOS,
	}
}

// Launch runs the platform opener for uri.
func (a *LocalEditorLauncher) Launch(ctx context.Context, uri string) (string, error) {
	if strings.TrimSpace(uri) == "" {
		return "", fmt.Errorf("empty editor link")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	name, args := commandFor(a.goos, uri)

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String() + stderr.String()
	if err != nil {
		return output, fmt.Errorf("%s %s: %w", name, uri, err)
	}

	return output, nil
}

func commandFor(goos, uri string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{uri}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", uri}
	default:
		return "xdg-open", []string{uri}
	}
}
