package nav

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrBadFragment is returned for fragments that do not decode to a state.
var ErrBadFragment = errors.New("bad address fragment")

// Encode returns the address fragment for s: "" for the bucket list,
// "#bucket" for a file list and "#bucket/name" with a file open. Both
// segments are percent-encoded, so names may contain '/', '%' or '#'.
func Encode(s State) string {
	if s.View != Files || s.Bucket == "" {
		return ""
	}
	frag := "#" + url.PathEscape(s.Bucket)
	if s.File != "" {
		name := strings.TrimPrefix(s.File, s.Bucket+"/")
		frag += "/" + url.PathEscape(name)
	}
	return frag
}

// Decode parses an address fragment, with or without its leading '#'.
// The bucket is the first segment; everything after the first raw '/' is
// the file name, so unencoded slashes in the name are kept.
func Decode(fragment string) (State, error) {
	raw := strings.TrimPrefix(fragment, "#")
	if raw == "" {
		return BucketsState(), nil
	}

	rawBucket, rawName, _ := strings.Cut(raw, "/")
	bucket, err := url.PathUnescape(rawBucket)
	if err != nil {
		return State{}, fmt.Errorf("%w %q: %w", ErrBadFragment, fragment, err)
	}
	if bucket == "" {
		return State{}, fmt.Errorf("%w %q: empty bucket", ErrBadFragment, fragment)
	}

	name, err := url.PathUnescape(rawName)
	if err != nil {
		return State{}, fmt.Errorf("%w %q: %w", ErrBadFragment, fragment, err)
	}
	if name == "" {
		return FilesState(bucket), nil
	}
	return FileOpenState(bucket, bucket+"/"+name), nil
}
