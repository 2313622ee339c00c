// Package nav is the navigation engine of the browser. It keeps the address
// fragment, the displayed view and selection, and the cached remote data
// consistent while a periodic refresh replaces listings underneath.
package nav

import (
	"fmt"
	"strings"
)

// View is which list the user is looking at.
type View int

const (
	Buckets View = iota
	Files
)

func (v View) String() string {
	switch v {
	case Buckets:
		return "buckets"
	case Files:
		return "files"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// State is the user's position. File is a full path and is empty when no
// file is open; when set, Bucket owns it and View is Files.
type State struct {
	View   View
	Bucket string
	File   string
}

// BucketsState is the bucket list.
func BucketsState() State {
	return State{View: Buckets}
}

// FilesState is the file list of bucket with no file open.
func FilesState(bucket string) State {
	return State{View: Files, Bucket: bucket}
}

// FileOpenState is the file list of bucket with the file at path open.
func FileOpenState(bucket, path string) State {
	return State{View: Files, Bucket: bucket, File: path}
}

// Valid reports whether s is a consistent position.
func (s State) Valid() bool {
	switch s.View {
	case Buckets:
		return s.Bucket == "" && s.File == ""
	case Files:
		if s.Bucket == "" {
			return false
		}
		if s.File == "" {
			return true
		}
		name, ok := strings.CutPrefix(s.File, s.Bucket+"/")
		return ok && name != ""
	}
	return false
}

// FileOpen reports whether a file is open.
func (s State) FileOpen() bool {
	return s.File != ""
}

func (s State) String() string {
	switch {
	case s.View == Buckets:
		return "Buckets"
	case s.File == "":
		return fmt.Sprintf("Files(%s)", s.Bucket)
	}
	return fmt.Sprintf("FileOpen(%s, %s)", s.Bucket, s.File)
}
