package bridge

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
)

const rawSuffix = ".raw.json"

// RawPageName is the file name of a stored raw page.
func RawPageName(pageNum int) string { return fmt.Sprintf("page_%03d%s", pageNum, rawSuffix) }

func WriteRawPage(dir string, page *RawPageData) (string, error) {
	path := filepath.Join(dir, RawPageName(page.PageNumber))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create raw page: %w", err)
	}
	w := bufio.NewWriterSize(f, 64*1024)
	if err := json.NewEncoder(w).Encode(page); err != nil {
		f.Close()
		return "", fmt.Errorf("encode raw page %d: %w", page.PageNumber, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func ReadRawPage(path string) (*RawPageData, error) {
	Logger.Debug("reading raw page", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var page RawPageData
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &page, nil
}

// RawDir serves pages from a directory of page_NNN.raw.json files, ordered by
// the number in the file name.
type RawDir struct {
	dir   string
	files []string
}

func OpenRawDir(dir string) (*RawDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type numbered struct {
		num  int
		name string
	}
	var pages []numbered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if num, ok := rawPageNum(e.Name()); ok {
			pages = append(pages, numbered{num, e.Name()})
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoPages)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })
	d := &RawDir{dir: dir, files: make([]string, len(pages))}
	for i, p := range pages {
		d.files[i] = filepath.Join(dir, p.name)
	}
	Logger.Debug("opened raw directory", "dir", dir, "pages", len(d.files))
	return d, nil
}

func (d *RawDir) NumPages() int { return len(d.files) }

func (d *RawDir) Page(n int) (*RawPageData, error) {
	if n < 1 || n > len(d.files) {
		return nil, fmt.Errorf("page %d: %w", n, ErrPageRange)
	}
	page, err := ReadRawPage(d.files[n-1])
	if err != nil {
		return nil, err
	}
	if page.PageNumber == 0 {
		page.PageNumber = n
	}
	return page, nil
}

func (d *RawDir) Close() error { return nil }

func rawPageNum(name string) (int, bool) {
	if !strings.HasPrefix(name, "page_") || !strings.HasSuffix(name, rawSuffix) {
		return 0, false
	}
	num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page_"), rawSuffix))
	return num, err == nil
}
