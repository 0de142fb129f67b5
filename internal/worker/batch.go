package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/strandline/internal/model"
)

var errSkipped = errors.New("sample not processed")

// Interpreter turns one genotype file into a report
type Interpreter interface {
	InterpretFile(ctx context.Context, path string) (*model.Report, error)
}

// SampleJob interprets one sample file
type SampleJob struct {
	Index       int
	Path        string
	Interpreter Interpreter
}

// Execute runs the interpretation
func (j *SampleJob) Execute(ctx context.Context) Result {
	report, err := j.Interpreter.InterpretFile(ctx, j.Path)
	return &SampleResult{
		Index:  j.Index,
		Path:   j.Path,
		Report: report,
		Error:  err,
	}
}

// SampleResult is the outcome of one sample in a batch
type SampleResult struct {
	Index  int
	Path   string
	Report *model.Report
	Error  error
}

// GetError returns the error from the interpretation
func (r *SampleResult) GetError() error {
	return r.Error
}

// BatchProcessor interprets many sample files concurrently
type BatchProcessor struct {
	interpreter Interpreter
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(interpreter Interpreter, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		interpreter: interpreter,
		concurrency: concurrency,
	}
}

// ProcessFiles interprets every path and returns results in input order.
// Samples not yet started when ctx ends are reported with ctx's error.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*SampleResult {
	if len(paths) == 0 {
		return []*SampleResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		if !pool.Submit(&SampleJob{Index: i, Path: path, Interpreter: b.interpreter}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*SampleResult, len(paths))
	for _, r := range results {
		sr := r.(*SampleResult)
		out[sr.Index] = sr
	}
	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = errSkipped
			}
			out[i] = &SampleResult{Index: i, Path: paths[i], Error: err}
		}
	}
	return out
}

// ProcessListFile reads sample paths from listPath and interprets them
func (b *BatchProcessor) ProcessListFile(ctx context.Context, listPath string) ([]*SampleResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read sample list: %w", err)
	}
	return b.ProcessFiles(ctx, paths), nil
}

// ReadPathsFromFile reads sample file paths, one per line. Blank lines and
// #-comments are skipped, duplicates dropped, and relative paths resolved
// against the list file's directory.
func ReadPathsFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
