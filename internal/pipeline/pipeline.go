// Package pipeline runs page analysis over a whole document. Pages are split
// into contiguous ranges, each range runs in its own task with its own
// document handle, and every page is written as a separate artifact before
// the artifacts are merged in page order.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/errgroup"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/extractor"
	"github.com/pymupdf4llm-c/pagestruct/internal/logger"
	"github.com/pymupdf4llm-c/pagestruct/internal/models"
)

var Logger = logger.GetLogger("pipeline")

const DocumentName = "document.json"

var ErrNoOpener = errors.New("pipeline: no document opener")

// Opener returns a fresh read-only handle on the source document. It is
// called once up front and once per task.
type Opener func() (bridge.Document, error)

type Options struct {
	Open      Opener
	OutputDir string
	Workers   int
	Params    extractor.Params
	// KeepRaw also stores each decoded page as page_NNN.raw.json.
	KeepRaw bool
}

type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string { return fmt.Sprintf("page %d: %v", e.Page, e.Err) }
func (e PageError) Unwrap() error { return e.Err }

type Result struct {
	Pages    int
	Written  []int
	Skipped  []PageError
	Failed   []error
	Document string
}

// OK reports whether every page was analysed and merged.
func (r *Result) OK() bool {
	return r != nil && r.Document != "" && len(r.Skipped) == 0 && len(r.Failed) == 0
}

// PageName is the file name of a page artifact.
func PageName(page int) string { return fmt.Sprintf("page_%03d.json", page) }

type pageRange struct{ first, last int }

type taskResult struct {
	written []int
	skipped []PageError
	err     error
}

// Run analyses every page of the document. Page decode failures are recorded
// and skipped; a failing task never stops its siblings. The context is only
// checked between pages. The returned error is the first task failure; the
// result still lists every written page and the merged document.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Open == nil {
		return nil, ErrNoOpener
	}
	start := time.Now()
	doc, err := opts.Open()
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	n := doc.NumPages()
	if err := doc.Close(); err != nil {
		Logger.Warn("closing document", "error", err)
	}
	if n <= 0 {
		return nil, bridge.ErrNoPages
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	ranges := partition(n, opts.Workers)
	Logger.Info("beginning conversion", "pages", n, "tasks", len(ranges))
	results := make([]taskResult, len(ranges))
	var g errgroup.Group
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			results[i] = runTask(ctx, r, opts)
			return results[i].err
		})
	}
	taskErr := g.Wait()

	res := &Result{Pages: n}
	for i, tr := range results {
		res.Written = append(res.Written, tr.written...)
		res.Skipped = append(res.Skipped, tr.skipped...)
		if tr.err != nil {
			Logger.Error("task failed", "first", ranges[i].first, "last", ranges[i].last, "error", tr.err)
			res.Failed = append(res.Failed, tr.err)
		}
	}
	sort.Ints(res.Written)
	sort.Slice(res.Skipped, func(i, j int) bool { return res.Skipped[i].Page < res.Skipped[j].Page })

	path, err := Merge(opts.OutputDir, res.Written)
	if err != nil {
		return res, errors.Join(err, taskErr)
	}
	res.Document = path
	Logger.Info("conversion complete", "written", len(res.Written), "skipped", len(res.Skipped),
		"failedTasks", len(res.Failed), "elapsed", time.Since(start))
	return res, taskErr
}

// partition splits pages 1..n into at most workers contiguous ranges whose
// sizes differ by at most one.
func partition(n, workers int) []pageRange {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	ranges := make([]pageRange, 0, workers)
	size, extra := n/workers, n%workers
	first := 1
	for i := 0; i < workers; i++ {
		count := size
		if i < extra {
			count++
		}
		ranges = append(ranges, pageRange{first, first + count - 1})
		first += count
	}
	return ranges
}

func runTask(ctx context.Context, r pageRange, opts Options) (res taskResult) {
	defer func() {
		if p := recover(); p != nil {
			res.err = fmt.Errorf("pages %d-%d: panic: %v", r.first, r.last, p)
		}
	}()
	doc, err := opts.Open()
	if err != nil {
		res.err = fmt.Errorf("pages %d-%d: open document: %w", r.first, r.last, err)
		return res
	}
	defer doc.Close()

	for n := r.first; n <= r.last; n++ {
		if err := ctx.Err(); err != nil {
			res.err = fmt.Errorf("pages %d-%d: stopped before page %d: %w", r.first, r.last, n, err)
			return res
		}
		raw, err := doc.Page(n)
		if err != nil {
			Logger.Warn("skipping page", "page", n, "error", err)
			res.skipped = append(res.skipped, PageError{Page: n, Err: err})
			continue
		}
		if raw.PageNumber == 0 {
			raw.PageNumber = n
		}
		if opts.KeepRaw {
			if _, err := bridge.WriteRawPage(opts.OutputDir, raw); err != nil {
				Logger.Warn("writing raw page", "page", n, "error", err)
			}
		}
		page := extractor.ExtractPage(raw, opts.Params)
		if err := writePage(opts.OutputDir, n, page); err != nil {
			res.skipped = append(res.skipped, PageError{Page: n, Err: err})
			continue
		}
		Logger.Debug("processed page", "page", n, "blocks", len(page.Data))
		res.written = append(res.written, n)
	}
	return res
}

func writePage(dir string, n int, page models.Page) error {
	f, err := os.Create(filepath.Join(dir, PageName(n)))
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	w := bufio.NewWriterSize(f, 64*1024)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(page); err != nil {
		f.Close()
		return fmt.Errorf("encode page %d: %w", n, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Merge concatenates the artifacts of the given pages, in ascending page
// order, into one JSON array and returns its path.
func Merge(dir string, pages []int) (string, error) {
	sorted := append([]int(nil), pages...)
	sort.Ints(sorted)

	path := filepath.Join(dir, DocumentName)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", DocumentName, err)
	}
	w := bufio.NewWriterSize(out, 256*1024)
	fail := func(err error) (string, error) {
		out.Close()
		return "", err
	}
	if err := w.WriteByte('['); err != nil {
		return fail(err)
	}
	for i, n := range sorted {
		data, err := os.ReadFile(filepath.Join(dir, PageName(n)))
		if err != nil {
			return fail(fmt.Errorf("read artifact: %w", err))
		}
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return fail(err)
			}
		}
		if _, err := w.Write(trimNewline(data)); err != nil {
			return fail(err)
		}
	}
	if err := w.WriteByte(']'); err != nil {
		return fail(err)
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return path, out.Close()
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
