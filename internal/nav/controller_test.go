package nav

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/slmtnm/s4json/internal/cache"
	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/gateway/gatewaytest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	gw   *gatewaytest.Fake
	hist *History
	c    *Controller
}

func newHarness(t *testing.T, fragment string) *harness {
	t.Helper()
	gw := gatewaytest.NewFake("2024-06-02", "2024-06-01")
	gw.AddFile("2024-06-01/run.json", `{"a":1}`, t0)
	gw.AddFile("2024-06-01/other.json", `[1,2]`, t0.Add(-time.Minute))
	gw.AddFile("2024-06-01/notes.json", "hello world", t0.Add(-2*time.Minute))
	gw.AddFile("2024-06-02/first.json", `{}`, t0.Add(24*time.Hour))

	hist := NewHistory(fragment)
	return &harness{
		gw:   gw,
		hist: hist,
		c:    New(context.Background(), cache.New(gw), hist),
	}
}

// run executes cmd and every follow-up command the controller returns.
func (h *harness) run(cmd tea.Cmd) {
	for cmd != nil {
		cmd = h.c.Update(cmd())
	}
}

func TestStartEmptyShowsBucketsInGatewayOrder(t *testing.T) {
	h := newHarness(t, "")
	h.run(h.c.Start())

	assert.Equal(t, BucketsState(), h.c.State())
	assert.Equal(t, []string{"2024-06-02", "2024-06-01"}, h.c.Buckets().Items)
	assert.False(t, h.c.Buckets().Loading)
	assert.Equal(t, "", h.hist.Fragment())
}

func TestDeepLinkOpensFile(t *testing.T) {
	h := newHarness(t, "#2024-06-01/run.json")
	h.run(h.c.Start())

	assert.Equal(t, FileOpenState("2024-06-01", "2024-06-01/run.json"), h.c.State())
	content := h.c.Content()
	assert.True(t, content.Loaded)
	assert.Equal(t, `{"a":1}`, content.Text)
	assert.Equal(t, "2024-06-01/run.json", content.Path)
	assert.Empty(t, h.c.Files().NotFound)
	assert.Len(t, h.c.Files().Items, 3)
	assert.Equal(t, "#2024-06-01/run.json", h.hist.Fragment())
}

func TestDeepLinkMissingFileStaysOnList(t *testing.T) {
	h := newHarness(t, "#2024-06-01/missing.json")
	h.run(h.c.Start())

	assert.Equal(t, FilesState("2024-06-01"), h.c.State())
	files := h.c.Files()
	assert.Equal(t, "2024-06-01/missing.json", files.NotFound)
	assert.NoError(t, files.Err)
	require.Len(t, files.Items, 3)
	assert.Equal(t, "2024-06-01/run.json", files.Items[0].Path)
	assert.False(t, h.c.Content().Loaded)
	assert.Zero(t, h.gw.Calls("content:2024-06-01/missing.json"))
	assert.Equal(t, "#2024-06-01", h.hist.Fragment())
}

func TestDeepLinkUnknownBucketIsEmptyList(t *testing.T) {
	h := newHarness(t, "#1999-01-01")
	h.run(h.c.Start())

	assert.Equal(t, FilesState("1999-01-01"), h.c.State())
	assert.Empty(t, h.c.Files().Items)
	assert.NoError(t, h.c.Files().Err)
}

func TestBadFragmentFallsBackToBuckets(t *testing.T) {
	h := newHarness(t, "#%zz")
	h.run(h.c.Start())

	assert.Equal(t, BucketsState(), h.c.State())
	assert.Equal(t, "", h.hist.Fragment())
	assert.Len(t, h.c.Buckets().Items, 2)
}

// TestDeepLinkWaitsForListing verifies file resolution never runs against
// a listing that has not loaded.
func TestDeepLinkWaitsForListing(t *testing.T) {
	h := newHarness(t, "#2024-06-01/run.json")
	h.gw.SetErr("files:2024-06-01", gateway.Retrieval("list files", errors.New("down")))
	h.run(h.c.Start())

	assert.Equal(t, FilesState("2024-06-01"), h.c.State())
	assert.ErrorIs(t, h.c.Files().Err, gateway.ErrRetrieval)
	assert.Empty(t, h.c.Files().NotFound, "a failed listing must not report the file missing")
	assert.Equal(t, "2024-06-01/run.json", h.c.Pending())
	assert.Equal(t, "#2024-06-01/run.json", h.hist.Fragment())

	h.gw.SetErr("files:2024-06-01", nil)
	h.run(h.c.Refresh())

	assert.Equal(t, FileOpenState("2024-06-01", "2024-06-01/run.json"), h.c.State())
	assert.Equal(t, `{"a":1}`, h.c.Content().Text)
	assert.Empty(t, h.c.Pending())
}

func TestSelectionReplacesAddress(t *testing.T) {
	h := newHarness(t, "")
	h.run(h.c.Start())

	h.run(h.c.SelectBucket("2024-06-01"))
	assert.Equal(t, FilesState("2024-06-01"), h.c.State())
	assert.Equal(t, "#2024-06-01", h.hist.Fragment())
	assert.False(t, h.c.Content().Loaded)

	h.run(h.c.SelectFile("2024-06-01/other.json"))
	assert.Equal(t, FileOpenState("2024-06-01", "2024-06-01/other.json"), h.c.State())
	assert.Equal(t, "#2024-06-01/other.json", h.hist.Fragment())
	assert.Equal(t, `[1,2]`, h.c.Content().Text)

	h.run(h.c.SelectFile("2024-06-01/run.json"))
	assert.Equal(t, "2024-06-01/run.json", h.c.State().File)
	assert.Equal(t, `{"a":1}`, h.c.Content().Text)

	h.run(h.c.Back())
	assert.Equal(t, BucketsState(), h.c.State())
	assert.Equal(t, "", h.hist.Fragment())
	assert.False(t, h.c.Content().Loaded)
	assert.Empty(t, h.c.Files().Items)

	assert.Equal(t, 1, h.hist.Len(), "navigation must not add history entries")
	assert.Equal(t, 1, h.gw.Calls("buckets"), "bucket list comes from the cache on back")
}

func TestSelectFileMustBeListed(t *testing.T) {
	h := newHarness(t, "#2024-06-01")
	h.run(h.c.Start())

	assert.Nil(t, h.c.SelectFile("2024-06-02/first.json"))
	assert.Nil(t, h.c.SelectFile("2024-06-01/nope.json"))
	assert.Equal(t, FilesState("2024-06-01"), h.c.State())

	h2 := newHarness(t, "")
	h2.run(h2.c.Start())
	assert.Nil(t, h2.c.SelectFile("2024-06-01/run.json"), "no file can be opened from the bucket list")
}

func TestReselectOpenFileIsNoop(t *testing.T) {
	h := newHarness(t, "#2024-06-01/run.json")
	h.run(h.c.Start())
	h.c.SetScroll(4)

	assert.Nil(t, h.c.SelectFile("2024-06-01/run.json"))
	assert.Equal(t, 4, h.c.Scroll())
}

func TestContentFetchedOncePerPath(t *testing.T) {
	h := newHarness(t, "#2024-06-01/run.json")
	h.run(h.c.Start())
	h.run(h.c.SelectFile("2024-06-01/other.json"))
	h.run(h.c.SelectFile("2024-06-01/run.json"))
	h.run(h.c.Refresh())

	assert.Equal(t, 1, h.gw.Calls("content:2024-06-01/run.json"))
	assert.Equal(t, 1, h.gw.Calls("content:2024-06-01/other.json"))
}

func TestStaleListingDiscarded(t *testing.T) {
	h := newHarness(t, "")
	h.run(h.c.Start())

	slow := h.c.SelectBucket("2024-06-01")
	fast := h.c.SelectBucket("2024-06-02")
	h.run(fast)
	h.run(slow)

	assert.Equal(t, FilesState("2024-06-02"), h.c.State())
	files := h.c.Files()
	require.Len(t, files.Items, 1)
	assert.Equal(t, "2024-06-02/first.json", files.Items[0].Path)
	assert.Equal(t, "#2024-06-02", h.hist.Fragment())
}

func TestStaleContentDiscarded(t *testing.T) {
	h := newHarness(t, "#2024-06-01")
	h.run(h.c.Start())

	slow := h.c.SelectFile("2024-06-01/run.json")
	fast := h.c.SelectFile("2024-06-01/other.json")
	h.run(fast)
	h.run(slow)

	assert.Equal(t, "2024-06-01/other.json", h.c.State().File)
	assert.Equal(t, `[1,2]`, h.c.Content().Text)
	assert.Equal(t, "2024-06-01/other.json", h.c.Content().Path)
}

func TestStaleResultAfterBack(t *testing.T) {
	h := newHarness(t, "")
	h.run(h.c.Start())

	pending := h.c.SelectBucket("2024-06-01")
	h.run(h.c.Back())
	h.run(pending)

	assert.Equal(t, BucketsState(), h.c.State())
	assert.Empty(t, h.c.Files().Items)
	assert.Equal(t, "", h.hist.Fragment())
}

func TestRefreshKeepsOpenFileAndScroll(t *testing.T) {
	h := newHarness(t, "#2024-06-01/run.json")
	h.run(h.c.Start())
	h.c.SetScroll(17)
	rev := h.c.Content().Rev

	h.gw.AddFile("2024-06-01/newer.json", `{}`, t0.Add(time.Hour))
	h.run(h.c.Refresh())

	assert.Equal(t, FileOpenState("2024-06-01", "2024-06-01/run.json"), h.c.State())
	assert.Equal(t, 17, h.c.Scroll())
	assert.Equal(t, rev, h.c.Content().Rev, "content pane must not be redrawn")
	assert.Len(t, h.c.Files().Items, 4)
	assert.Equal(t, "#2024-06-01/run.json", h.hist.Fragment())
	assert.Equal(t, 2, h.gw.Calls("files:2024-06-01"))
	assert.Equal(t, 1, h.gw.Calls("content:2024-06-01/run.json"))
}

func TestRefreshDropsVanishedFile(t *testing.T) {
	h := newHarness(t, "#2024-06-01/run.json")
	h.run(h.c.Start())
	h.c.SetScroll(5)

	h.gw.RemoveFile("2024-06-01/run.json")
	h.run(h.c.Refresh())

	assert.Equal(t, FilesState("2024-06-01"), h.c.State())
	assert.False(t, h.c.Content().Loaded)
	assert.NoError(t, h.c.Content().Err)
	assert.NoError(t, h.c.Files().Err)
	assert.Empty(t, h.c.Files().NotFound)
	assert.Zero(t, h.c.Scroll())
	assert.Len(t, h.c.Files().Items, 2)
}

func TestRefreshBuckets(t *testing.T) {
	h := newHarness(t, "")
	h.run(h.c.Start())

	h.gw.SetBuckets("2024-06-03", "2024-06-02", "2024-06-01")
	h.run(h.c.Refresh())

	assert.Equal(t, []string{"2024-06-03", "2024-06-02", "2024-06-01"}, h.c.Buckets().Items)
	assert.Equal(t, "", h.hist.Fragment())
	assert.Equal(t, 2, h.gw.Calls("buckets"))
}

func TestRefreshFailureKeepsData(t *testing.T) {
	h := newHarness(t, "#2024-06-01/run.json")
	h.run(h.c.Start())

	h.gw.SetErr("files:2024-06-01", gateway.Retrieval("list files", errors.New("timeout")))
	h.run(h.c.Refresh())

	assert.Equal(t, FileOpenState("2024-06-01", "2024-06-01/run.json"), h.c.State())
	assert.ErrorIs(t, h.c.Files().Err, gateway.ErrRetrieval)
	assert.Len(t, h.c.Files().Items, 3)
	assert.True(t, h.c.Content().Loaded)
	assert.NoError(t, h.c.Content().Err)

	h.gw.SetErr("files:2024-06-01", nil)
	h.run(h.c.Refresh())
	assert.NoError(t, h.c.Files().Err)
}

func TestRefreshNotStartedTwice(t *testing.T) {
	h := newHarness(t, "#2024-06-01")
	h.run(h.c.Start())

	first := h.c.Refresh()
	require.NotNil(t, first)
	assert.True(t, h.c.RefreshInFlight())
	assert.Nil(t, h.c.Refresh())

	h.run(first)
	assert.False(t, h.c.RefreshInFlight())
	assert.NotNil(t, h.c.Refresh())
}

func TestRefreshDiscardedAfterNavigation(t *testing.T) {
	h := newHarness(t, "#2024-06-01/run.json")
	h.run(h.c.Start())

	refresh := h.c.Refresh()
	h.gw.RemoveFile("2024-06-01/other.json")
	h.run(h.c.SelectFile("2024-06-01/other.json"))
	h.run(refresh)

	assert.Equal(t, FileOpenState("2024-06-01", "2024-06-01/other.json"), h.c.State())
	assert.False(t, h.c.RefreshInFlight())
}

func TestContentErrorScopedToPane(t *testing.T) {
	h := newHarness(t, "#2024-06-01")
	h.run(h.c.Start())

	h.gw.SetErr("content:2024-06-01/run.json", gateway.Retrieval("get", errors.New("reset")))
	h.run(h.c.SelectFile("2024-06-01/run.json"))

	assert.Equal(t, FileOpenState("2024-06-01", "2024-06-01/run.json"), h.c.State())
	assert.ErrorIs(t, h.c.Content().Err, gateway.ErrRetrieval)
	assert.NoError(t, h.c.Files().Err)
	assert.Len(t, h.c.Files().Items, 3)
}

func TestBucketErrorScopedToPane(t *testing.T) {
	h := newHarness(t, "")
	h.gw.SetErr("buckets", gateway.Retrieval("list buckets", errors.New("refused")))
	h.run(h.c.Start())

	assert.Equal(t, BucketsState(), h.c.State())
	assert.ErrorIs(t, h.c.Buckets().Err, gateway.ErrRetrieval)
	assert.False(t, h.c.Buckets().Loading)
}

func TestURLChangedWithEncodedNames(t *testing.T) {
	h := newHarness(t, "")
	h.gw.AddFile("a b/x/y 100%.json", `{"ok":true}`, t0)
	h.run(h.c.Start())

	frag := Encode(FileOpenState("a b", "a b/x/y 100%.json"))
	h.hist.Push(frag)
	h.run(h.c.URLChanged(h.hist.Fragment()))

	assert.Equal(t, FileOpenState("a b", "a b/x/y 100%.json"), h.c.State())
	assert.Equal(t, `{"ok":true}`, h.c.Content().Text)
	assert.Equal(t, frag, h.hist.Fragment())
}
