package nav

import (
	"context"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/logger"
)

// Source is the cache the controller reads through.
type Source interface {
	Buckets(ctx context.Context) ([]string, error)
	Files(ctx context.Context, bucket string) ([]gateway.FileEntry, error)
	Content(ctx context.Context, path string) (string, error)
	InvalidateBuckets()
	InvalidateFiles(bucket string)
}

// BucketPane is the bucket list as last loaded.
type BucketPane struct {
	Items   []string
	Loading bool
	Err     error
}

// FilePane is the file list of one bucket. NotFound names a deep-linked
// file that is missing from the listing.
type FilePane struct {
	Bucket   string
	Items    []gateway.FileEntry
	Loading  bool
	Err      error
	NotFound string
}

// Lookup returns the entry for path.
func (p FilePane) Lookup(path string) (gateway.FileEntry, bool) {
	i := slices.IndexFunc(p.Items, func(e gateway.FileEntry) bool { return e.Path == path })
	if i < 0 {
		return gateway.FileEntry{}, false
	}
	return p.Items[i], true
}

// ContentPane is the body of the open file. Rev changes whenever the pane
// has to be redrawn from scratch.
type ContentPane struct {
	Path    string
	Text    string
	Loaded  bool
	Loading bool
	Err     error
	Scroll  int
	Rev     int
}

const bucketsKey = "buckets"

func filesKey(bucket string) string { return "files:" + bucket }

// Controller owns the navigation state. It is not safe for concurrent use:
// every method must be called from the program's update loop, and the
// commands it returns deliver their results back through Update.
type Controller struct {
	ctx context.Context
	src Source
	loc Location

	state State
	// gen changes on every navigation; results issued under an older gen
	// are discarded.
	gen uint64
	// pending is a deep-linked file waiting for its bucket's listing.
	pending string

	buckets BucketPane
	files   FilePane
	content ContentPane

	refreshing map[string]bool
}

// New returns a controller in the bucket view. Call Start to load the
// state named by loc.
func New(ctx context.Context, src Source, loc Location) *Controller {
	return &Controller{
		ctx:        ctx,
		src:        src,
		loc:        loc,
		state:      BucketsState(),
		refreshing: make(map[string]bool),
	}
}

func (c *Controller) State() State         { return c.state }
func (c *Controller) Buckets() BucketPane  { return c.buckets }
func (c *Controller) Files() FilePane      { return c.files }
func (c *Controller) Content() ContentPane { return c.content }
func (c *Controller) Pending() string      { return c.pending }
func (c *Controller) Location() Location   { return c.loc }
func (c *Controller) Scroll() int          { return c.content.Scroll }

// RefreshInFlight reports whether a refresh of the current view's listing
// has not completed yet.
func (c *Controller) RefreshInFlight() bool {
	if c.state.View == Buckets {
		return c.refreshing[bucketsKey]
	}
	return c.refreshing[filesKey(c.state.Bucket)]
}

// SetScroll records the content pane offset.
func (c *Controller) SetScroll(offset int) {
	c.content.Scroll = max(offset, 0)
}

// Start restores the state encoded in the current address.
func (c *Controller) Start() tea.Cmd {
	return c.URLChanged(c.loc.Fragment())
}

// URLChanged moves to the state encoded in fragment. An undecodable
// fragment shows the bucket list.
func (c *Controller) URLChanged(fragment string) tea.Cmd {
	s, err := Decode(fragment)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring address")
		return c.showBuckets()
	}
	if s.View == Buckets {
		return c.showBuckets()
	}
	return c.showFiles(s.Bucket, s.File)
}

// SelectBucket opens the file list of bucket.
func (c *Controller) SelectBucket(bucket string) tea.Cmd {
	if bucket == "" {
		return nil
	}
	return c.showFiles(bucket, "")
}

// SelectFile opens path, which must be in the current bucket's listing.
func (c *Controller) SelectFile(path string) tea.Cmd {
	if c.state.View != Files {
		return nil
	}
	if _, ok := c.files.Lookup(path); !ok {
		logger.Debug().Str("path", path).Msg("select of unlisted file ignored")
		return nil
	}
	if c.state.File == path && (c.content.Loaded || c.content.Loading) {
		return nil
	}

	c.navigate()
	c.pending = ""
	c.files.NotFound = ""
	c.state = FileOpenState(c.state.Bucket, path)
	c.sync()
	return c.openContent(path)
}

// Back returns from a file list to the bucket list.
func (c *Controller) Back() tea.Cmd {
	if c.state.View != Files {
		return nil
	}
	return c.showBuckets()
}

// Refresh reloads the listing behind the current view without moving the
// user. A refresh of a key that is still in flight is not started again.
func (c *Controller) Refresh() tea.Cmd {
	switch c.state.View {
	case Buckets:
		if c.refreshing[bucketsKey] {
			return nil
		}
		c.refreshing[bucketsKey] = true
		c.src.InvalidateBuckets()
		return c.loadBuckets(true)
	case Files:
		key := filesKey(c.state.Bucket)
		if c.refreshing[key] {
			return nil
		}
		c.refreshing[key] = true
		c.src.InvalidateFiles(c.state.Bucket)
		return c.loadFiles(c.state.Bucket, true)
	}
	return nil
}

// Update applies a fetch result. Results for a state the user has since
// left are dropped.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case bucketsMsg:
		c.applyBuckets(msg)
	case filesMsg:
		return c.applyFiles(msg)
	case contentMsg:
		c.applyContent(msg)
	}
	return nil
}

func (c *Controller) showBuckets() tea.Cmd {
	c.navigate()
	c.state = BucketsState()
	c.pending = ""
	c.files = FilePane{}
	c.clearContent()
	c.buckets.Loading = true
	c.buckets.Err = nil
	c.sync()
	return c.loadBuckets(false)
}

func (c *Controller) showFiles(bucket, want string) tea.Cmd {
	c.navigate()
	c.state = FilesState(bucket)
	c.pending = want
	c.files = FilePane{Bucket: bucket, Loading: true}
	c.clearContent()
	// A pending file keeps its address until the listing resolves it.
	if want == "" {
		c.sync()
	}
	return c.loadFiles(bucket, false)
}

func (c *Controller) openContent(path string) tea.Cmd {
	c.content = ContentPane{Path: path, Loading: true, Rev: c.content.Rev + 1}
	ctx, src, gen := c.ctx, c.src, c.gen
	return func() tea.Msg {
		text, err := src.Content(ctx, path)
		return contentMsg{gen: gen, path: path, text: text, err: err}
	}
}

func (c *Controller) loadBuckets(refresh bool) tea.Cmd {
	ctx, src, gen := c.ctx, c.src, c.gen
	return func() tea.Msg {
		buckets, err := src.Buckets(ctx)
		return bucketsMsg{gen: gen, refresh: refresh, buckets: buckets, err: err}
	}
}

func (c *Controller) loadFiles(bucket string, refresh bool) tea.Cmd {
	ctx, src, gen := c.ctx, c.src, c.gen
	return func() tea.Msg {
		files, err := src.Files(ctx, bucket)
		return filesMsg{gen: gen, bucket: bucket, refresh: refresh, files: files, err: err}
	}
}

func (c *Controller) applyBuckets(msg bucketsMsg) {
	if msg.refresh {
		delete(c.refreshing, bucketsKey)
	}
	if msg.gen != c.gen || c.state.View != Buckets {
		logger.Debug().Bool("refresh", msg.refresh).Msg("discarding stale bucket list")
		return
	}

	c.buckets.Loading = false
	if msg.err != nil {
		logger.Warn().Err(msg.err).Bool("refresh", msg.refresh).Msg("failed to load buckets")
		c.buckets.Err = msg.err
		return
	}
	c.buckets.Items = msg.buckets
	c.buckets.Err = nil
}

func (c *Controller) applyFiles(msg filesMsg) tea.Cmd {
	if msg.refresh {
		delete(c.refreshing, filesKey(msg.bucket))
	}
	if msg.gen != c.gen || c.state.View != Files || c.state.Bucket != msg.bucket {
		logger.Debug().Str("bucket", msg.bucket).Bool("refresh", msg.refresh).Msg("discarding stale file list")
		return nil
	}

	c.files.Loading = false
	if msg.err != nil {
		logger.Warn().Err(msg.err).Str("bucket", msg.bucket).Bool("refresh", msg.refresh).Msg("failed to load files")
		c.files.Err = msg.err
		return nil
	}
	c.files.Items = msg.files
	c.files.Err = nil

	if want := c.pending; want != "" {
		c.pending = ""
		if _, ok := c.files.Lookup(want); !ok {
			c.files.NotFound = want
			c.sync()
			return nil
		}
		c.files.NotFound = ""
		c.state = FileOpenState(msg.bucket, want)
		c.sync()
		return c.openContent(want)
	}

	if c.state.File != "" {
		if _, ok := c.files.Lookup(c.state.File); !ok {
			logger.Debug().Str("path", c.state.File).Msg("open file left the listing")
			c.state = FilesState(msg.bucket)
			c.clearContent()
			c.sync()
		}
	}
	return nil
}

func (c *Controller) applyContent(msg contentMsg) {
	if msg.gen != c.gen || c.state.File != msg.path {
		logger.Debug().Str("path", msg.path).Msg("discarding stale content")
		return
	}

	c.content.Loading = false
	c.content.Rev++
	if msg.err != nil {
		logger.Warn().Err(msg.err).Str("path", msg.path).Msg("failed to load content")
		c.content.Err = msg.err
		return
	}
	c.content.Text = msg.text
	c.content.Loaded = true
	c.content.Err = nil
	c.content.Scroll = 0
}

func (c *Controller) navigate() {
	c.gen++
}

func (c *Controller) clearContent() {
	c.content = ContentPane{Rev: c.content.Rev + 1}
}

// sync replaces the address with the encoding of the current state.
func (c *Controller) sync() {
	if frag := Encode(c.state); c.loc.Fragment() != frag {
		c.loc.Replace(frag)
	}
}

type bucketsMsg struct {
	gen     uint64
	refresh bool
	buckets []string
	err     error
}

type filesMsg struct {
	gen     uint64
	bucket  string
	refresh bool
	files   []gateway.FileEntry
	err     error
}

type contentMsg struct {
	gen  uint64
	path string
	text string
	err  error
}
