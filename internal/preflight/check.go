package preflight

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/buscador/internal/config"
	"github.com/Aman-CERP/buscador/internal/database"
	"github.com/Aman-CERP/buscador/internal/index"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Supporter reports whether a path has an extractor.
type Supporter interface {
	Supports(path string) bool
}

// Checker performs preflight checks for one configuration.
type Checker struct {
	cfg       *config.Config
	supports  Supporter
	verbose   bool
	output    io.Writer
	dbTimeout time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables detail lines in PrintResults.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithSupporter sets the extension filter used to count documents.
func WithSupporter(s Supporter) Option {
	return func(c *Checker) {
		c.supports = s
	}
}

// New creates a Checker for cfg.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{
		cfg:       cfg,
		output:    os.Stdout,
		dbTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check and returns the results in a stable order.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	return []CheckResult{
		c.CheckDocumentsDir(),
		c.CheckIndexLocation(),
		c.CheckDiskSpace(c.indexParent()),
		c.CheckFileDescriptors(),
		c.CheckDatabase(ctx),
		c.CheckIndex(),
	}
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "buscador system check")
	_, _ = fmt.Fprintln(c.output, "=====================")
	_, _ = fmt.Fprintln(c.output)

	var problems []string
	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
		if r.Status != StatusPass {
			problems = append(problems, r.Name+": "+r.Message)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	if len(problems) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d issue(s):\n", len(problems))
		for _, p := range problems {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", p)
		}
	}
}

// CheckDocumentsDir verifies the document root and counts supported files.
func (c *Checker) CheckDocumentsDir() CheckResult {
	result := CheckResult{Name: "documents_dir", Required: true}
	root := c.cfg.Paths.DocumentsDir

	info, err := os.Stat(root)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot access %s: %v", root, err)
		return result
	}
	if !info.IsDir() {
		result.Status = StatusFail
		result.Message = root + " is not a directory"
		return result
	}

	total, supported := 0, 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		total++
		if c.supports == nil || c.supports.Supports(path) {
			supported++
		}
		return nil
	})

	result.Details = fmt.Sprintf("%d file(s), %d supported", total, supported)
	if supported == 0 {
		result.Status = StatusWarn
		result.Message = "no supported documents found"
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d supported document(s)", supported)
	return result
}

// CheckIndexLocation checks that the index parent directory is writable.
// Builds stage next to the index and swap it in by rename.
func (c *Checker) CheckIndexLocation() CheckResult {
	result := CheckResult{Name: "index_location", Required: true}
	parent := c.indexParent()

	if err := os.MkdirAll(parent, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", parent, err)
		return result
	}

	f, err := os.CreateTemp(parent, ".buscador-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "writable"
	result.Details = parent
	return result
}

// CheckDatabase connects to the configured database and lists its tables.
// A failure is a warning: builds continue with documents only.
func (c *Checker) CheckDatabase(ctx context.Context) CheckResult {
	result := CheckResult{Name: "database", Required: false}
	if !c.cfg.Database.Enabled {
		result.Status = StatusPass
		result.Message = "disabled"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.dbTimeout)
	defer cancel()

	src, err := database.Open(ctx, c.cfg.Database)
	if err != nil {
		result.Status = StatusWarn
		result.Message = "unreachable; builds will index documents only"
		result.Details = err.Error()
		return result
	}
	defer func() { _ = src.Close() }()

	tables, err := src.ListTables(ctx)
	if err != nil {
		result.Status = StatusWarn
		result.Message = "connected, but listing tables failed"
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s, %d table(s)", src.Name(), len(tables))
	return result
}

// CheckIndex reports whether an index has been committed.
func (c *Checker) CheckIndex() CheckResult {
	result := CheckResult{Name: "index", Required: false}

	m, err := index.ReadManifest(c.cfg.Paths.IndexDir)
	if err != nil {
		result.Status = StatusWarn
		result.Message = "not built; run 'buscador index'"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d record(s), built %s", m.IndexedCount, m.CreatedAt.Format(time.RFC3339))
	result.Details = "build " + m.BuildID
	return result
}

func (c *Checker) indexParent() string {
	return filepath.Dir(filepath.Clean(c.cfg.Paths.IndexDir))
}
