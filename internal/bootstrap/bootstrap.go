package bootstrap

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bluedeer/waterbill/internal/browser"
)

//go:embed templates/env.example
var templates embed.FS

const envTemplate = "templates/env.example"

// ErrPrerequisite is returned when a required executable is missing.
// No step has run when it is returned.
var ErrPrerequisite = errors.New("prerequisite check failed")

// Status is the outcome of one step.
type Status string

const (
	// StatusCreated means the step created something.
	StatusCreated Status = "created"
	// StatusSkipped means there was nothing to do.
	StatusSkipped Status = "skipped"
	// StatusDone means the step ran and left the environment as required.
	StatusDone Status = "done"
)

// Step names, in execution order.
const (
	StepDataDir   = "data directory"
	StepSchema    = "database schema"
	StepBrowser   = "headless browser"
	StepEnvFile   = "env file"
	StepOutputDir = "output directory"
)

// Result reports one step.
type Result struct {
	Step   string `json:"step"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// String formats the result for terminal output.
func (r Result) String() string {
	if r.Detail == "" {
		return fmt.Sprintf("[%s] %s", r.Status, r.Step)
	}
	return fmt.Sprintf("[%s] %s: %s", r.Status, r.Step, r.Detail)
}

// SchemaFunc applies the database schema. It reports whether any table
// had to be created.
type SchemaFunc func(ctx context.Context) (created bool, err error)

// Bootstrapper runs the setup steps.
type Bootstrapper struct {
	root          string
	dataDir       string
	envFile       string
	envExample    string
	outputDirs    []string
	browserOn     bool
	browserPath   string
	requiredTools []string
	lookPath      browser.LookPathFunc
	schema        SchemaFunc
	logger        *slog.Logger
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithRoot sets the directory relative paths are resolved against.
func WithRoot(dir string) Option {
	return func(b *Bootstrapper) { b.root = dir }
}

// WithDataDir sets the data directory holding the default SQLite database.
func WithDataDir(dir string) Option {
	return func(b *Bootstrapper) { b.dataDir = dir }
}

// WithEnvFiles sets the active env file and its template.
func WithEnvFiles(envFile, example string) Option {
	return func(b *Bootstrapper) {
		if envFile != "" {
			b.envFile = envFile
		}
		if example != "" {
			b.envExample = example
		}
	}
}

// WithOutputDirs sets the output directories to create.
func WithOutputDirs(dirs ...string) Option {
	return func(b *Bootstrapper) { b.outputDirs = dirs }
}

// WithBrowser enables the browser check. An empty path searches PATH.
func WithBrowser(enabled bool, path string) Option {
	return func(b *Bootstrapper) {
		b.browserOn = enabled
		b.browserPath = path
	}
}

// WithRequiredTools adds executables that must be in PATH.
func WithRequiredTools(tools ...string) Option {
	return func(b *Bootstrapper) { b.requiredTools = append(b.requiredTools, tools...) }
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(f browser.LookPathFunc) Option {
	return func(b *Bootstrapper) { b.lookPath = f }
}

// WithSchema sets the schema step. Without it the step is skipped.
func WithSchema(f SchemaFunc) Option {
	return func(b *Bootstrapper) { b.schema = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bootstrapper) { b.logger = l }
}

// New creates a Bootstrapper working in the current directory.
func New(opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		root:       ".",
		envFile:    ".env",
		envExample: ".env.example",
		outputDirs: []string{"screenshots", "discovery_results"},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// path resolves p against the root directory.
func (b *Bootstrapper) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.root, p)
}

// Check verifies the prerequisites and returns the browser executable,
// empty when the browser is disabled. Every missing item is reported.
func (b *Bootstrapper) Check() (string, error) {
	var errs []error
	for _, tool := range b.requiredTools {
		if _, err := b.look(tool); err != nil {
			errs = append(errs, fmt.Errorf("%s not found in PATH", tool))
		}
	}

	var browserExec string
	if b.browserOn {
		p, err := browser.Locate(b.browserPath, b.lookPath)
		if err != nil {
			errs = append(errs, err)
		}
		browserExec = p
	}

	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %w", ErrPrerequisite, errors.Join(errs...))
	}
	return browserExec, nil
}

func (b *Bootstrapper) look(file string) (string, error) {
	if b.lookPath != nil {
		return b.lookPath(file)
	}
	return exec.LookPath(file)
}

// Run checks the prerequisites and then runs every step once, in order.
// It stops at the first failing step and returns the results so far.
func (b *Bootstrapper) Run(ctx context.Context) ([]Result, error) {
	browserExec, err := b.Check()
	if err != nil {
		return nil, err
	}

	var results []Result
	record := func(r Result) {
		b.logger.Info("setup step", "step", r.Step, "status", string(r.Status), "detail", r.Detail)
		results = append(results, r)
	}

	r, err := b.ensureDir(StepDataDir, b.dataDir)
	if err != nil {
		return results, err
	}
	record(r)

	r, err = b.applySchema(ctx)
	if err != nil {
		return results, err
	}
	record(r)

	record(b.browserResult(browserExec))

	r, err = b.writeEnvFile()
	if err != nil {
		return results, err
	}
	record(r)

	for _, dir := range b.outputDirs {
		r, err := b.ensureDir(StepOutputDir, dir)
		if err != nil {
			return results, err
		}
		record(r)
	}
	return results, nil
}

// ensureDir creates dir unless it exists.
func (b *Bootstrapper) ensureDir(step, dir string) (Result, error) {
	if dir == "" {
		return Result{Step: step, Status: StatusSkipped, Detail: "not configured"}, nil
	}
	p := b.path(dir)
	info, err := os.Stat(p)
	switch {
	case err == nil && info.IsDir():
		return Result{Step: step, Status: StatusSkipped, Detail: p}, nil
	case err == nil:
		return Result{}, fmt.Errorf("%s: %s exists and is not a directory", step, p)
	case !errors.Is(err, fs.ErrNotExist):
		return Result{}, fmt.Errorf("%s: %w", step, err)
	}

	if err := os.MkdirAll(p, 0750); err != nil {
		return Result{}, fmt.Errorf("failed to create %s: %w", step, err)
	}
	return Result{Step: step, Status: StatusCreated, Detail: p}, nil
}

func (b *Bootstrapper) applySchema(ctx context.Context) (Result, error) {
	if b.schema == nil {
		return Result{Step: StepSchema, Status: StatusSkipped, Detail: "no database configured"}, nil
	}
	created, err := b.schema(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to apply database schema: %w", err)
	}
	if created {
		return Result{Step: StepSchema, Status: StatusCreated, Detail: "tables created"}, nil
	}
	return Result{Step: StepSchema, Status: StatusDone, Detail: "tables up to date"}, nil
}

func (b *Bootstrapper) browserResult(executable string) Result {
	if !b.browserOn {
		return Result{Step: StepBrowser, Status: StatusSkipped, Detail: "disabled"}
	}
	return Result{Step: StepBrowser, Status: StatusDone, Detail: executable}
}

// writeEnvFile copies the template to the env file unless it exists.
func (b *Bootstrapper) writeEnvFile() (Result, error) {
	target := b.path(b.envFile)
	if _, err := os.Stat(target); err == nil {
		return Result{Step: StepEnvFile, Status: StatusSkipped, Detail: target + " exists"}, nil
	}

	content, source, err := b.envTemplate()
	if err != nil {
		return Result{}, err
	}

	// O_EXCL keeps a file created since the Stat above.
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return Result{Step: StepEnvFile, Status: StatusSkipped, Detail: target + " exists"}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to create env file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is returned
		return Result{}, fmt.Errorf("failed to write env file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to write env file: %w", err)
	}
	return Result{Step: StepEnvFile, Status: StatusCreated, Detail: target + " from " + source}, nil
}

// envTemplate returns the example file, or the built-in template when there
// is none on disk.
func (b *Bootstrapper) envTemplate() ([]byte, string, error) {
	example := b.path(b.envExample)
	content, err := os.ReadFile(example)
	if err == nil {
		return content, example, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to read %s: %w", example, err)
	}

	content, err = templates.ReadFile(envTemplate)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read built-in env template: %w", err)
	}
	return content, "built-in template", nil
}

// EnvTemplate returns the built-in .env template.
func EnvTemplate() []byte {
	content, _ := templates.ReadFile(envTemplate) //nolint:errcheck // embedded at build time
	return content
}

// WriteResults prints one line per result.
func WriteResults(w io.Writer, results []Result) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}
