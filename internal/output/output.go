// Package output provides consistent CLI output formatting.
//
// On an interactive terminal messages carry icons; in pipes, CI or when
// NO_COLOR is set they carry plain text tags so output stays grep-friendly.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/buscador/internal/document"
	"github.com/Aman-CERP/buscador/internal/index"
	"github.com/Aman-CERP/buscador/internal/search"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out   io.Writer
	fancy bool
}

// New creates a Writer. Icons are used only when out is a terminal outside CI
// and NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return &Writer{
		out:   out,
		fancy: IsTTY(out) && !DetectCI() && !DetectNoColor(),
	}
}

// NewPlain creates a Writer that never uses icons.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Fancy reports whether the writer uses icons.
func (w *Writer) Fancy() bool {
	return w.fancy
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.pick("✅", "OK:"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.pick("⚠️ ", "WARN:"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.pick("❌", "ERROR:"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Code prints a block of content with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// BuildSummary prints the outcome of an index build.
func (w *Writer) BuildSummary(r *index.Result) {
	if r == nil {
		return
	}
	if !r.Success {
		if r.Error != "" {
			w.Errorf("Index build failed: %s", r.Error)
		} else {
			w.Warning("Nothing was indexed")
		}
	} else {
		w.Successf("Indexed %d record(s) in %.1fs", r.IndexedCount, r.TimeTaken)
	}
	w.Status("", fmt.Sprintf("documents: %d, database values: %d, skipped: %d",
		r.DocumentCount, r.DatabaseCount, r.Skipped))
	if r.BuildID != "" {
		w.Status("", "build: "+r.BuildID)
	}
}

// Results prints search results with highlight marks rendered for the terminal.
func (w *Writer) Results(resp search.Response) {
	if resp.Error != "" {
		w.Error(resp.Error)
		return
	}
	if resp.Total == 0 {
		w.Statusf(w.pick("🔍", "--"), "No results for %q", resp.Query)
		return
	}

	w.Statusf(w.pick("🔍", "--"), "%d result(s) for %q", resp.Total, resp.Query)
	for i, r := range resp.Results {
		_, _ = fmt.Fprintf(w.out, "\n%d. %s / %s\n", i+1, r.Source, r.Field)
		_, _ = fmt.Fprintf(w.out, "   %s\n", w.highlight(r.Snippet))
	}
}

// Matches prints the occurrences of query inside one document.
func (w *Writer) Matches(path, query string, matches []document.QueryMatch) {
	if len(matches) == 0 {
		w.Statusf(w.pick("🔍", "--"), "No occurrences of %q in %s", query, path)
		return
	}

	w.Statusf(w.pick("🔍", "--"), "%d occurrence(s) of %q in %s", len(matches), query, path)
	for _, m := range matches {
		_, _ = fmt.Fprintf(w.out, "\n[%s] position %d\n", m.Location, m.Position)
		_, _ = fmt.Fprintf(w.out, "   %s\n", strings.Join(strings.Fields(m.Excerpt), " "))
	}
}

// highlight replaces HTML marks with ANSI bold on terminals and with
// brackets elsewhere.
func (w *Writer) highlight(s string) string {
	open, closing := "[", "]"
	if w.fancy {
		open, closing = "\x1b[1m", "\x1b[0m"
	}
	s = strings.ReplaceAll(s, search.MarkStart, open)
	return strings.ReplaceAll(s, search.MarkEnd, closing)
}

func (w *Writer) pick(fancy, plain string) string {
	if w.fancy {
		return fancy
	}
	return plain
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
