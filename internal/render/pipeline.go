package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	logx "github.com/ai-researcher/server/pkg/logger"
)

// ErrArtifactNotFound is returned when a requested artifact does not exist in the
// output directory or names something outside it.
var ErrArtifactNotFound = errors.New("artifact not found")

// reDiagnostic matches the compiler's `error: <file>:<line>: <message>` lines.
var reDiagnostic = regexp.MustCompile(`error: [^:]+:(\d+): (.+)`)

const (
	sourceExt          = ".tex"
	jobTimestampLayout = "20060102_150405"
	jobPrefix          = "paper_"
	compilerWaitDelay  = 2 * time.Second
)

// Config binds the RENDER_* environment.
type Config struct {
	Compiler  string        `envconfig:"RENDER_COMPILER" default:"tectonic"`
	OutputDir string        `envconfig:"RENDER_OUTPUT_DIR" default:"output"`
	Timeout   time.Duration `envconfig:"RENDER_TIMEOUT" default:"2m"`
}

// Pipeline sanitizes LaTeX source, compiles it with an external compiler and
// classifies the result.
type Pipeline struct {
	compiler  string
	outputDir string
	timeout   time.Duration
	now       func() time.Time
	lookPath  func(string) (string, error)
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock used to name render jobs.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLookPath overrides compiler resolution.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(p *Pipeline) { p.lookPath = lookPath }
}

// NewPipeline creates a pipeline writing into cfg.OutputDir.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if strings.TrimSpace(cfg.Compiler) == "" {
		return nil, fmt.Errorf("render compiler is empty")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return nil, fmt.Errorf("render output dir is empty")
	}
	dir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	p := &Pipeline{
		compiler:  cfg.Compiler,
		outputDir: dir,
		timeout:   cfg.Timeout,
		now:       time.Now,
		lookPath:  exec.LookPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// OutputDir returns the absolute directory artifacts are written to.
func (p *Pipeline) OutputDir() string {
	return p.outputDir
}

// job is one render request. It is never reused.
type job struct {
	base      string
	outputDir string
	source    string
}

func (j job) sourceName() string   { return j.base + sourceExt }
func (j job) artifactPath() string { return filepath.Join(j.outputDir, j.base+ArtifactExt) }

// Render compiles markup and returns its outcome. It never returns an error and
// never panics: faults are reported as InternalError.
//
// Two renders started within the same second share a job name and the later one
// overwrites the earlier source.
func (p *Pipeline) Render(ctx context.Context, markup string) (out Outcome) {
	compilerPath, err := p.lookPath(p.compiler)
	if err != nil {
		logx.Warn().Err(err).Str("compiler", p.compiler).Msg("render compiler not found")
		return ToolUnavailable{Reason: fmt.Sprintf("%s is not installed or not on PATH", p.compiler)}
	}

	defer func() {
		if r := recover(); r != nil {
			logx.Error().Interface("panic", r).Msg("render pipeline panicked")
			out = InternalError{Reason: fmt.Sprint(r)}
		}
	}()

	j := job{
		base:      jobPrefix + p.now().Format(jobTimestampLayout),
		outputDir: p.outputDir,
		source:    Sanitize(markup),
	}
	outcome, err := p.run(ctx, compilerPath, j)
	if err != nil {
		logx.Error().Err(err).Str("job", j.base).Msg("render failed")
		return InternalError{Reason: err.Error()}
	}
	return outcome
}

func (p *Pipeline) run(ctx context.Context, compilerPath string, j job) (Outcome, error) {
	if err := os.MkdirAll(j.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	sourcePath := filepath.Join(j.outputDir, j.sourceName())
	if err := os.WriteFile(sourcePath, []byte(j.source), 0o644); err != nil {
		return nil, fmt.Errorf("write source: %w", err)
	}
	logx.Debug().Str("path", sourcePath).Msg("LaTeX source written")

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, compilerPath, j.sourceName(), "--outdir", j.outputDir)
	cmd.Dir = j.outputDir
	cmd.WaitDelay = compilerWaitDelay
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	logx.Debug().
		Str("job", j.base).
		Dur("duration", time.Since(start)).
		Str("stdout", stdout.String()).
		Str("stderr", stderr.String()).
		Msg("compiler finished")

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("compiler did not finish: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("run compiler: %w", runErr)
		}
		return classifyFailure(stderr.String(), j.source), nil
	}

	if _, err := os.Stat(j.artifactPath()); err == nil {
		return Success{ArtifactPath: j.artifactPath()}, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	newest, err := newestArtifact(j.outputDir)
	if err != nil {
		return nil, err
	}
	if newest == "" {
		return InternalError{Reason: "artifact not generated"}, nil
	}
	return Success{ArtifactPath: newest}, nil
}

// classifyFailure turns compiler stderr into a CompileError, locating the
// offending line in the sanitized source when the diagnostic names one.
func classifyFailure(stderr, source string) CompileError {
	m := reDiagnostic.FindStringSubmatch(stderr)
	if m == nil {
		return CompileError{Message: stderr}
	}
	line, err := strconv.Atoi(m[1])
	if err != nil || line <= 0 {
		return CompileError{Message: stderr}
	}
	offending := "Unknown"
	if lines := strings.Split(source, "\n"); line <= len(lines) {
		offending = lines[line-1]
	}
	return CompileError{
		Line:          line,
		Message:       strings.TrimSpace(m[2]),
		OffendingLine: offending,
	}
}

// newestArtifact returns the most recently modified artifact in dir, or "" when
// there is none.
func newestArtifact(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scan output dir: %w", err)
	}
	var (
		newest  string
		newestT time.Time
	)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ArtifactExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest = filepath.Join(dir, e.Name())
			newestT = info.ModTime()
		}
	}
	return newest, nil
}

// OpenArtifact opens a previously produced artifact by file name. Names are
// resolved inside the output directory only.
func (p *Pipeline) OpenArtifact(name string) (*os.File, error) {
	if name == "" || filepath.Base(name) != name || filepath.Ext(name) != ArtifactExt {
		return nil, ErrArtifactNotFound
	}
	f, err := os.OpenInRoot(p.outputDir, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, ErrArtifactNotFound
	}
	return f, nil
}
