package tui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/slmtnm/s4json/internal/format"
	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/nav"
)

const (
	cursorMark = ">"
	activeMark = "●"

	noBuckets = "No date buckets found"
	noFiles   = "No JSON files found in this date bucket"
	emptyFile = "File is empty"
)

// RenderBuckets draws the bucket list in the order given. cursor is the
// highlighted row.
func RenderBuckets(p nav.BucketPane, cursor, width int) string {
	var s strings.Builder

	switch {
	case p.Loading && len(p.Items) == 0:
		s.WriteString(dimStyle.Render("Loading date buckets..."))
		s.WriteString("\n")
	case len(p.Items) == 0 && p.Err == nil:
		s.WriteString(noBuckets)
		s.WriteString("\n")
	}

	for i, b := range p.Items {
		line := fmt.Sprintf("%s %s", mark(i == cursor, cursorMark), bucketStyle.Render(format.Escape(b)+"/"))
		if i == cursor {
			line = selectedStyle.Render(line)
		}
		s.WriteString(fit(line, width))
		s.WriteString("\n")
	}

	if p.Err != nil {
		s.WriteString(errorLine(p.Err, width))
	}
	return s.String()
}

// RenderFiles draws the file list of one bucket in the order given. Only
// the entry whose path equals open is marked active.
func RenderFiles(p nav.FilePane, open string, cursor, width int) string {
	var s strings.Builder

	if p.NotFound != "" {
		s.WriteString(errorStyle.Render("File not found: " + format.Escape(gateway.DisplayName(p.NotFound))))
		s.WriteString("\n")
	}

	switch {
	case p.Loading && len(p.Items) == 0:
		s.WriteString(dimStyle.Render("Loading files..."))
		s.WriteString("\n")
	case len(p.Items) == 0 && p.Err == nil:
		s.WriteString(noFiles)
		s.WriteString("\n")
	}

	nameWidth := 0
	for _, e := range p.Items {
		nameWidth = max(nameWidth, ansi.StringWidth(format.Escape(e.DisplayName)))
	}

	for i, e := range p.Items {
		active := e.Path == open
		name := format.Escape(e.DisplayName)
		name += strings.Repeat(" ", nameWidth-ansi.StringWidth(name))

		style := fileStyle
		if active {
			style = activeStyle
		}
		line := fmt.Sprintf("%s %s %s  %9s  %s",
			mark(i == cursor, cursorMark),
			mark(active, activeMark),
			style.Render(name),
			format.Size(e.Size),
			dimStyle.Render(format.Clock(e.LastModified)),
		)
		if i == cursor {
			line = selectedStyle.Render(line)
		}
		s.WriteString(fit(line, width))
		s.WriteString("\n")
	}

	if p.Err != nil {
		s.WriteString(errorLine(p.Err, width))
	}
	return s.String()
}

// RenderHeader describes an open file: name, size, date and age.
func RenderHeader(e gateway.FileEntry, width int) string {
	name := headerStyle.Render(format.Escape(e.DisplayName))
	meta := dimStyle.Render(fmt.Sprintf("%s • %s • %s",
		format.Size(e.Size), format.DateTime(e.LastModified), format.Age(e.LastModified)))
	return fit(name, width) + "\n" + fit(meta, width)
}

// RenderContent draws the body of the content pane.
func RenderContent(p nav.ContentPane) string {
	switch {
	case p.Err != nil:
		if errors.Is(p.Err, gateway.ErrNotFound) {
			return errorStyle.Render("File not found: " + format.Escape(gateway.DisplayName(p.Path)))
		}
		return errorStyle.Render("Error: " + format.Escape(p.Err.Error()))
	case !p.Loaded:
		return dimStyle.Render("Loading...")
	}
	return FormatContent(p.Text)
}

// FormatContent pretty-prints JSON with two-space indentation and leaves
// anything else as it is. The result is safe to print.
func FormatContent(text string) string {
	if strings.TrimSpace(text) == "" {
		return dimStyle.Render(emptyFile)
	}
	if pretty, ok := PrettyJSON(text); ok {
		return format.Escape(pretty)
	}
	return format.Escape(text)
}

// PrettyJSON re-indents text when it is a single valid JSON value. Key
// order and number literals are kept as written.
func PrettyJSON(text string) (string, bool) {
	data := []byte(text)
	if !json.Valid(data) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}

func mark(on bool, m string) string {
	if on {
		return m
	}
	return strings.Repeat(" ", ansi.StringWidth(m))
}

func errorLine(err error, width int) string {
	return fit(errorStyle.Render("Error: "+format.Escape(err.Error())), width) + "\n"
}

// fit truncates s to width cells; width <= 0 leaves it alone.
func fit(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
