// Package gateway defines the remote data contract the browser is built on:
// listing date buckets, listing the files inside one, and fetching a file's
// raw content.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound reports explicit absence of a file.
	ErrNotFound = errors.New("not found")
	// ErrRetrieval reports a network or store failure while listing or fetching.
	ErrRetrieval = errors.New("retrieval failed")
)

// FileEntry describes one object inside a date bucket.
type FileEntry struct {
	Path         string    `json:"name"`
	DisplayName  string    `json:"displayName"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag"`
}

// Gateway is the remote side of the browser. Listings are returned in
// server order: buckets reverse-chronological, files newest first.
// An unknown bucket lists as empty, not as an error.
type Gateway interface {
	ListBuckets(ctx context.Context) ([]string, error)
	ListFiles(ctx context.Context, bucket string) ([]FileEntry, error)
	GetContent(ctx context.Context, path string) (string, error)
}

// Retrieval wraps err so it matches both ErrRetrieval and err.
func Retrieval(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRetrieval, err)
}

// NotFound wraps err so it matches both ErrNotFound and err.
func NotFound(path string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", path, ErrNotFound, err)
}

// JoinPath builds the full path of name inside bucket.
func JoinPath(bucket, name string) string {
	return bucket + "/" + name
}

// SplitPath splits a full path into its bucket, the first segment, and the
// file name, which is everything after it and may contain further slashes.
func SplitPath(path string) (bucket, name string) {
	bucket, name, _ = strings.Cut(path, "/")
	return bucket, name
}

// DisplayName returns the last segment of a full path.
func DisplayName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// NewFileEntry fills in the derived display name.
func NewFileEntry(path string, size int64, modified time.Time, etag string) FileEntry {
	return FileEntry{
		Path:         path,
		DisplayName:  DisplayName(path),
		Size:         size,
		LastModified: modified,
		ETag:         etag,
	}
}
