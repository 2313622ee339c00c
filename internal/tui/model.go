// Package tui is the terminal front end: a bubbletea program around the
// navigation controller.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/logger"
	"github.com/slmtnm/s4json/internal/nav"
)

type focus int

const (
	focusList focus = iota
	focusContent
)

// chrome is the number of rows taken by the title, the footer and the pane
// borders.
const chrome = 6

// Options configures a Model.
type Options struct {
	// Source names what is being browsed, shown in the title bar.
	Source string
	// Address is the initial fragment, e.g. "#2024-06-01/run.json".
	Address string
	// Refresh is the listing refresh interval.
	Refresh time.Duration
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctl     *nav.Controller
	history *nav.History
	source  string
	refresh time.Duration
	every   func(time.Duration) tea.Cmd

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	prompt   textinput.Model

	prompting bool
	focus     focus

	// The cursor is tracked by key so it stays on the same item when a
	// refresh reorders the list; the index is the fallback when the key
	// disappears.
	bucketKey string
	bucketIdx int
	fileKey   string
	fileIdx   int

	contentRev int
	width      int
	height     int
}

// New returns a Model reading through src.
func New(ctx context.Context, src nav.Source, opts Options) Model {
	history := nav.NewHistory(opts.Address)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = dimStyle

	ti := textinput.New()
	ti.Prompt = "#"
	ti.Placeholder = "2024-06-01/run.json"
	ti.CharLimit = 1024

	return Model{
		ctl:      nav.New(ctx, src, history),
		history:  history,
		source:   opts.Source,
		refresh:  opts.Refresh,
		every:    nav.Every,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		viewport: viewport.New(0, 0),
		prompt:   ti,
	}
}

// Address is the current fragment.
func (m Model) Address() string {
	return m.history.Fragment()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ctl.Start(), m.every(m.refresh), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil

	case nav.RefreshTickMsg:
		logger.Debug().Time("at", msg.At).Msg("refresh tick")
		cmd = tea.Batch(m.ctl.Refresh(), m.every(m.refresh))

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.prompting {
			m, cmd = m.updatePrompt(msg)
		} else {
			m, cmd = m.updateKeys(msg)
		}

	default:
		cmd = m.ctl.Update(msg)
		if m.prompting {
			var pc tea.Cmd
			m.prompt, pc = m.prompt.Update(msg)
			cmd = tea.Batch(cmd, pc)
		}
	}

	m.follow()
	m.syncContent()
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	state := m.ctl.State()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()

	case key.Matches(msg, m.keys.Address):
		m.prompting = true
		m.prompt.SetValue(strings.TrimPrefix(m.history.Fragment(), "#"))
		m.prompt.CursorEnd()
		return m, m.prompt.Focus()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.ctl.Refresh()

	case key.Matches(msg, m.keys.Prev):
		if frag, ok := m.history.Back(); ok {
			return m, m.ctl.URLChanged(frag)
		}

	case key.Matches(msg, m.keys.Next):
		if frag, ok := m.history.Forward(); ok {
			return m, m.ctl.URLChanged(frag)
		}

	case key.Matches(msg, m.keys.Focus):
		if state.FileOpen() && m.focus == focusList {
			m.focus = focusContent
		} else {
			m.focus = focusList
		}

	case key.Matches(msg, m.keys.PageUp):
		m.scrollTo(m.viewport.YOffset - max(m.viewport.Height, 1))
	case key.Matches(msg, m.keys.PageDown):
		m.scrollTo(m.viewport.YOffset + max(m.viewport.Height, 1))
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		m.ctl.SetScroll(m.viewport.YOffset)
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		m.ctl.SetScroll(m.viewport.YOffset)

	case key.Matches(msg, m.keys.Up):
		if m.focus == focusContent {
			m.scrollTo(m.viewport.YOffset - 1)
		} else {
			m.moveCursor(-1)
		}
	case key.Matches(msg, m.keys.Down):
		if m.focus == focusContent {
			m.scrollTo(m.viewport.YOffset + 1)
		} else {
			m.moveCursor(1)
		}

	case key.Matches(msg, m.keys.Open):
		switch state.View {
		case nav.Buckets:
			if m.bucketKey != "" {
				return m, m.ctl.SelectBucket(m.bucketKey)
			}
		case nav.Files:
			if m.fileKey != "" {
				return m, m.ctl.SelectFile(m.fileKey)
			}
		}

	case key.Matches(msg, m.keys.Back):
		if m.focus == focusContent {
			m.focus = focusList
			return m, nil
		}
		return m, m.ctl.Back()
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.prompting = false
		m.prompt.Blur()
		m.history.Push(m.prompt.Value())
		m.focus = focusList
		return m, m.ctl.URLChanged(m.history.Fragment())
	case tea.KeyEsc, tea.KeyCtrlC:
		m.prompting = false
		m.prompt.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) moveCursor(delta int) {
	switch m.ctl.State().View {
	case nav.Buckets:
		items := m.ctl.Buckets().Items
		if len(items) == 0 {
			return
		}
		m.bucketIdx = clamp(m.bucketIdx+delta, len(items))
		m.bucketKey = items[m.bucketIdx]
	case nav.Files:
		items := m.ctl.Files().Items
		if len(items) == 0 {
			return
		}
		m.fileIdx = clamp(m.fileIdx+delta, len(items))
		m.fileKey = items[m.fileIdx].Path
	}
}

// follow re-resolves the cursor keys against the current listings.
func (m *Model) follow() {
	buckets := m.ctl.Buckets().Items
	m.bucketIdx, m.bucketKey = locate(buckets, m.bucketKey, m.bucketIdx, "")

	files := m.ctl.Files()
	paths := make([]string, len(files.Items))
	for i, e := range files.Items {
		paths[i] = e.Path
	}
	if !slices.Contains(paths, m.fileKey) && m.ctl.State().FileOpen() {
		m.fileKey = m.ctl.State().File
	}
	m.fileIdx, m.fileKey = locate(paths, m.fileKey, m.fileIdx, files.Bucket)

	if !m.ctl.State().FileOpen() {
		m.focus = focusList
	}
}

// locate finds key in items, falling back to the clamped index. A key from
// another scope restarts at the top.
func locate(items []string, key string, idx int, scope string) (int, string) {
	if len(items) == 0 {
		return 0, key
	}
	if i := slices.Index(items, key); i >= 0 {
		return i, key
	}
	if scope != "" && !strings.HasPrefix(key, scope+"/") {
		idx = 0
	}
	idx = clamp(idx, len(items))
	return idx, items[idx]
}

func clamp(i, n int) int {
	return max(0, min(i, n-1))
}

// syncContent redraws the viewport when the controller replaced the
// content pane and restores its recorded offset.
func (m *Model) syncContent() {
	content := m.ctl.Content()
	if content.Rev == m.contentRev {
		return
	}
	m.contentRev = content.Rev
	m.viewport.SetContent(RenderContent(content))
	m.viewport.SetYOffset(content.Scroll)
	m.ctl.SetScroll(m.viewport.YOffset)
}

func (m *Model) scrollTo(offset int) {
	m.viewport.SetYOffset(offset)
	m.ctl.SetScroll(m.viewport.YOffset)
}

func (m *Model) layout() {
	_, contentWidth := m.paneWidths()
	m.viewport.Width = innerWidth(contentWidth)
	// The file header takes two rows of the content pane.
	m.viewport.Height = max(m.bodyHeight()-2, 1)
	m.viewport.SetYOffset(m.ctl.Scroll())
	m.ctl.SetScroll(m.viewport.YOffset)
}

func (m Model) bodyHeight() int {
	h := m.height - chrome
	if m.help.ShowAll {
		h -= 4
	}
	return max(h, 3)
}

func (m Model) paneWidths() (list, content int) {
	if m.width <= 0 {
		return 0, 0
	}
	list = min(max(m.width/3, 30), m.width)
	return list, m.width - list
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(m.titleBar())
	s.WriteString("\n")
	s.WriteString(m.body())
	s.WriteString("\n")

	if m.prompting {
		s.WriteString(m.prompt.View())
	} else {
		s.WriteString(m.help.View(m.keys))
	}
	return s.String()
}

func (m Model) titleBar() string {
	title := titleStyle.Render("s4json " + m.source)
	addr := m.history.Fragment()
	if addr == "" {
		addr = "#"
	}
	bar := title + addressStyle.Render(addr)
	if m.loading() {
		bar += " " + m.spinner.View()
	}
	return fit(bar, m.width)
}

func (m Model) loading() bool {
	return m.ctl.Buckets().Loading || m.ctl.Files().Loading ||
		m.ctl.Content().Loading || m.ctl.RefreshInFlight()
}

func (m Model) body() string {
	state := m.ctl.State()
	listWidth, contentWidth := m.paneWidths()
	height := m.bodyHeight()

	if state.View == nav.Buckets {
		list := RenderBuckets(m.ctl.Buckets(), m.bucketIdx, innerWidth(m.width))
		return m.pane(list, m.width, height, true)
	}

	files := m.ctl.Files()
	list := fmt.Sprintf("%s\n\n%s",
		bucketStyle.Render(state.Bucket+"/"),
		RenderFiles(files, state.File, m.fileIdx, innerWidth(listWidth)))
	left := m.pane(list, listWidth, height, m.focus == focusList)

	if !state.FileOpen() {
		return left
	}

	var header string
	if e, ok := files.Lookup(state.File); ok {
		header = RenderHeader(e, innerWidth(contentWidth))
	} else {
		header = headerStyle.Render(gateway.DisplayName(state.File))
	}
	right := m.pane(header+"\n"+m.viewport.View(), contentWidth, height, m.focus == focusContent)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) pane(content string, width, height int, focused bool) string {
	style := paneStyle
	if focused {
		style = focusedPaneStyle
	}
	if width > 0 {
		style = style.Width(max(width-2, 0)).Height(height)
	}
	return style.Render(content)
}

func innerWidth(w int) int {
	if w <= 0 {
		return 0
	}
	return max(w-4, 1)
}
