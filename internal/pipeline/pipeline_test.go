package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pymupdf4llm-c/pagestruct/internal/bridge"
	"github.com/pymupdf4llm-c/pagestruct/internal/extractor"
	"github.com/pymupdf4llm-c/pagestruct/internal/testutil"
)

var errBadPage = errors.New("bad page")

type fakeDoc struct {
	pages   int
	broken  map[int]bool
	panicOn int
	closed  *atomic.Int32
}

func (d *fakeDoc) NumPages() int { return d.pages }

func (d *fakeDoc) Page(n int) (*bridge.RawPageData, error) {
	if n == d.panicOn {
		panic("decoder blew up")
	}
	if d.broken[n] {
		return nil, errBadPage
	}
	return testutil.NewPage(testutil.Letter).Number(n).
		Paragraph(72, 100, 10, 12, "Body text for this page.").
		Build(), nil
}

func (d *fakeDoc) Close() error {
	d.closed.Add(1)
	return nil
}

type fakeSource struct {
	doc    fakeDoc
	opened atomic.Int32
	closed atomic.Int32
}

func (s *fakeSource) open() (bridge.Document, error) {
	s.opened.Add(1)
	d := s.doc
	d.closed = &s.closed
	return &d, nil
}

func readDocument(t *testing.T, path string) []struct {
	Page int               `json:"page"`
	Data []json.RawMessage `json:"data"`
} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var pages []struct {
		Page int               `json:"page"`
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &pages))
	return pages
}

func TestRunWritesAndMergesPages(t *testing.T) {
	src := &fakeSource{doc: fakeDoc{pages: 7}}
	dir := t.TempDir()
	res, err := Run(context.Background(), Options{Open: src.open, OutputDir: dir, Workers: 3, Params: extractor.DefaultParams()})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, res.Written)
	assert.Equal(t, int32(4), src.opened.Load())
	assert.Equal(t, src.opened.Load(), src.closed.Load())

	for n := 1; n <= 7; n++ {
		assert.FileExists(t, filepath.Join(dir, PageName(n)))
	}
	pages := readDocument(t, res.Document)
	require.Len(t, pages, 7)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Page)
		assert.Len(t, p.Data, 1)
	}
}

func TestRunSkipsBrokenPages(t *testing.T) {
	src := &fakeSource{doc: fakeDoc{pages: 4, broken: map[int]bool{2: true}}}
	res, err := Run(context.Background(), Options{Open: src.open, OutputDir: t.TempDir(), Workers: 2, Params: extractor.DefaultParams()})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, []int{1, 3, 4}, res.Written)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Page)
	assert.ErrorIs(t, res.Skipped[0], errBadPage)
	assert.Len(t, readDocument(t, res.Document), 3)
}

func TestRunRecoversTaskPanic(t *testing.T) {
	src := &fakeSource{doc: fakeDoc{pages: 4, panicOn: 1}}
	res, err := Run(context.Background(), Options{Open: src.open, OutputDir: t.TempDir(), Workers: 2, Params: extractor.DefaultParams()})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.OK())
	require.Len(t, res.Failed, 1)
	assert.Equal(t, res.Failed[0], err)
	assert.Contains(t, err.Error(), "panic")
	assert.Len(t, readDocument(t, res.Document), 2)
	assert.Equal(t, []int{3, 4}, res.Written)
	assert.Equal(t, src.opened.Load(), src.closed.Load())
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{doc: fakeDoc{pages: 3}}
	res, err := Run(ctx, Options{Open: src.open, OutputDir: t.TempDir(), Workers: 1, Params: extractor.DefaultParams()})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.False(t, res.OK())
	assert.Empty(t, res.Written)
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[0], context.Canceled)
}

func TestRunOpenErrors(t *testing.T) {
	_, err := Run(context.Background(), Options{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrNoOpener)

	boom := errors.New("boom")
	_, err = Run(context.Background(), Options{
		Open:      func() (bridge.Document, error) { return nil, boom },
		OutputDir: t.TempDir(),
	})
	assert.ErrorIs(t, err, boom)

	src := &fakeSource{doc: fakeDoc{pages: 0}}
	_, err = Run(context.Background(), Options{Open: src.open, OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, bridge.ErrNoPages)
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, workers int
		want       []pageRange
	}{
		{1, 4, []pageRange{{1, 1}}},
		{7, 3, []pageRange{{1, 3}, {4, 5}, {6, 7}}},
		{4, 0, []pageRange{{1, 4}}},
		{6, 6, []pageRange{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}}},
	}
	for _, tt := range tests {
		got := partition(tt.n, tt.workers)
		assert.Equal(t, tt.want, got, "partition(%d, %d)", tt.n, tt.workers)
	}
}

func TestMergeOrdersPages(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{3, 1, 2} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, PageName(n)), []byte(`{"page":`+string(rune('0'+n))+`,"data":[]}`+"\n"), 0o644))
	}
	path, err := Merge(dir, []int{3, 1, 2})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"page":1,"data":[]},{"page":2,"data":[]},{"page":3,"data":[]}]`, string(data))

	_, err = Merge(dir, []int{9})
	assert.Error(t, err)
}
