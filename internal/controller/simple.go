package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "srclens.dev/pkg/srclens/internal/model"
)

var (
	okColor    = color.New(color.FgGreen).SprintFunc()
	warnColor  = color.New(color.FgYellow).SprintFunc()
	errColor   = color.New(color.FgRed).SprintFunc()
	faintColor = color.New(color.Faint).SprintFunc()
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd    *cobra.Command
	config StartConfig
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.config = NewStartConfig(options...)

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayAnnotationResults prints diffs for dry runs followed by a summary table.
func (s *SimpleUI) DisplayAnnotationResults(ctx context.Context, results []m.AnnotationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sorted := sortResults(results)

	if s.config.DryRun() {
		for _, result := range sorted {
			if result.Diff != "" {
				s.printf("%s\n", result.Diff)
			}
		}
	}

	var tableBuffer bytes.Buffer

	table := newTable(&tableBuffer, []string{"Path", "Elements", "Annotated", "Skipped", "Status"})

	var elements, annotated, skipped, failed int

	for _, result := range sorted {
		table.Append([]string{
			resultPath(result),
			fmt.Sprintf("%d", result.Elements),
			fmt.Sprintf("%d", result.Annotated),
			fmt.Sprintf("%d", result.Skipped),
			s.annotationStatus(result),
		})

		elements += result.Elements
		annotated += result.Annotated
		skipped += result.Skipped

		if result.Err != nil {
			failed++
		}
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(sorted)),
		fmt.Sprintf("%d", elements),
		fmt.Sprintf("%d", annotated),
		fmt.Sprintf("%d", skipped),
		fmt.Sprintf("%d failed", failed),
	})
	table.Render()

	s.printf("\n%s", tableBuffer.String())

	for _, result := range sorted {
		if result.Err != nil {
			s.printf("%s %s: %v\n", errColor("error"), resultPath(result), result.Err)
		}
	}

	return nil
}

func (s *SimpleUI) annotationStatus(result m.AnnotationResult) string {
	switch {
	case result.Err != nil:
		return errColor("failed")
	case result.Cached:
		return faintColor("cached")
	case !result.Changed:
		return faintColor("unchanged")
	case s.config.DryRun():
		return warnColor("would change")
	default:
		return okColor("annotated")
	}
}

// DisplayElementCounts prints how many markup elements each file carries.
func (s *SimpleUI) DisplayElementCounts(ctx context.Context, results []m.AnnotationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sorted := sortResults(results)

	var tableBuffer bytes.Buffer

	table := newTable(&tableBuffer, []string{"Path", "Elements", "Skipped"})

	var elements, skipped int

	for _, result := range sorted {
		count := fmt.Sprintf("%d", result.Elements)
		if result.Err != nil {
			count = errColor("error")
		}

		table.Append([]string{resultPath(result), count, fmt.Sprintf("%d", result.Skipped)})

		elements += result.Elements
		skipped += result.Skipped
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(sorted)),
		fmt.Sprintf("%d", elements),
		fmt.Sprintf("%d", skipped),
	})
	table.Render()

	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayResolutions prints one row per resolved element.
func (s *SimpleUI) DisplayResolutions(ctx context.Context, reports []m.ResolutionReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var tableBuffer bytes.Buffer

	table := newTable(&tableBuffer, []string{"Path", "Element", "Source", "Strategy"})

	found := 0

	for _, report := range reports {
		res := report.Resolution
		if res.Found {
			found++

			table.Append([]string{report.Path, report.Label, okColor(res.Location.String()), string(res.Strategy)})

			continue
		}

		table.Append([]string{report.Path, report.Label, errColor(res.Message()), string(res.Reason)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Elements %d", len(reports)),
		"",
		fmt.Sprintf("%d found", found),
		"",
	})
	table.Render()

	s.printf("\n%s", tableBuffer.String())

	if len(reports) == 1 && reports[0].Link != nil {
		return s.DisplayEditorLink(ctx, *reports[0].Link)
	}

	return nil
}

// DisplayEditorLink prints an editor deep link and its warnings.
func (s *SimpleUI) DisplayEditorLink(ctx context.Context, link m.EditorLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Source: %s\n", link.Display)
	s.printf("Open in %s: %s\n", link.Editor, link.URI)

	for _, warning := range link.Warnings {
		s.printf("%s %s\n", warnColor("warning:"), warning)
	}

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func newTable(buffer *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buffer)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	alignment := make([]int, len(header))
	alignment[0] = tablewriter.ALIGN_LEFT

	for i := 1; i < len(alignment); i++ {
		alignment[i] = tablewriter.ALIGN_CENTER
	}

	table.SetColumnAlignment(alignment)

	return table
}

func sortResults(results []m.AnnotationResult) []m.AnnotationResult {
	sorted := make([]m.AnnotationResult, len(results))
	copy(sorted, results)

	sort.Slice(sorted, func(i, j int) bool {
		return resultPath(sorted[i]) < resultPath(sorted[j])
	})

	return sorted
}

func resultPath(result m.AnnotationResult) string {
	if result.Source.Origin == nil {
		return unknownPathLabel
	}

	return string(result.Source.Origin.ShortPath)
}

const unknownPathLabel = "unknown"
