// Package gatewaytest provides in-memory gateways for tests.
package gatewaytest

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/slmtnm/s4json/internal/gateway"
)

// Fake is an in-memory gateway. Zero values of its maps mean empty.
// Gate, when non-nil, blocks every call until it is closed or receives.
type Fake struct {
	mu sync.Mutex

	Buckets  []string
	Files    map[string][]gateway.FileEntry
	Contents map[string]string

	BucketsErr error
	FilesErr   map[string]error
	ContentErr map[string]error

	Gate chan struct{}

	calls map[string]int
}

// NewFake returns a Fake serving buckets with no files.
func NewFake(buckets ...string) *Fake {
	return &Fake{
		Buckets:    buckets,
		Files:      make(map[string][]gateway.FileEntry),
		Contents:   make(map[string]string),
		FilesErr:   make(map[string]error),
		ContentErr: make(map[string]error),
		calls:      make(map[string]int),
	}
}

// AddFile appends a file to its bucket listing and stores its content.
func (f *Fake) AddFile(path, content string, modified time.Time) gateway.FileEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, _ := gateway.SplitPath(path)
	e := gateway.NewFileEntry(path, int64(len(content)), modified, "\"etag-"+path+"\"")
	f.Files[bucket] = append(f.Files[bucket], e)
	f.Contents[path] = content
	return e
}

// RemoveFile drops path from its bucket listing; its content stays fetchable.
func (f *Fake) RemoveFile(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, _ := gateway.SplitPath(path)
	kept := f.Files[bucket][:0:0]
	for _, e := range f.Files[bucket] {
		if e.Path != path {
			kept = append(kept, e)
		}
	}
	f.Files[bucket] = kept
}

// SetBuckets replaces the bucket list.
func (f *Fake) SetBuckets(buckets ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Buckets = buckets
}

// SetErr sets the error returned for op ("buckets", "files:<b>" or
// "content:<p>"). A nil err clears it.
func (f *Fake) SetErr(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case op == "buckets":
		f.BucketsErr = err
	case len(op) > 6 && op[:6] == "files:":
		f.FilesErr[op[6:]] = err
	case len(op) > 8 && op[:8] == "content:":
		f.ContentErr[op[8:]] = err
	}
}

// Calls returns how many times key ("buckets", "files:<b>", "content:<p>")
// reached the gateway.
func (f *Fake) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *Fake) enter(ctx context.Context, key string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[key]++
	gate := f.Gate
	f.mu.Unlock()

	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fake) ListBuckets(ctx context.Context) ([]string, error) {
	if err := f.enter(ctx, "buckets"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BucketsErr != nil {
		return nil, f.BucketsErr
	}
	return append([]string{}, f.Buckets...), nil
}

func (f *Fake) ListFiles(ctx context.Context, bucket string) ([]gateway.FileEntry, error) {
	if err := f.enter(ctx, "files:"+bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FilesErr[bucket]; err != nil {
		return nil, err
	}
	return append([]gateway.FileEntry{}, f.Files[bucket]...), nil
}

func (f *Fake) GetContent(ctx context.Context, path string) (string, error) {
	if err := f.enter(ctx, "content:"+path); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ContentErr[path]; err != nil {
		return "", err
	}
	content, ok := f.Contents[path]
	if !ok {
		return "", gateway.NotFound(path, nil)
	}
	return content, nil
}

// Mock is a testify mock of gateway.Gateway.
type Mock struct {
	mock.Mock
}

func (m *Mock) ListBuckets(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Mock) ListFiles(ctx context.Context, bucket string) ([]gateway.FileEntry, error) {
	args := m.Called(ctx, bucket)
	if v := args.Get(0); v != nil {
		return v.([]gateway.FileEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Mock) GetContent(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}
