// Package preview is the terminal slide previewer. It feeds file contents to
// a controller and shows the current slide of the latest render.
package preview

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/slidepipe/internal/controller"
	"github.com/zjrosen/slidepipe/internal/keys"
	"github.com/zjrosen/slidepipe/internal/log"
	"github.com/zjrosen/slidepipe/internal/pubsub"
	"github.com/zjrosen/slidepipe/internal/ui/shared/logpane"
	"github.com/zjrosen/slidepipe/internal/ui/shared/markdown"
	"github.com/zjrosen/slidepipe/internal/ui/styles"
)

// Clickable header zones.
const (
	zonePrev = "preview-prev"
	zoneNext = "preview-next"
)

// Config wires the previewer.
type Config struct {
	Controller *controller.Controller
	// Source reads the current deck.
	Source func() (string, error)
	// Changes signals that Source should be read again. May be nil.
	Changes <-chan struct{}
	// Path is shown in the status bar.
	Path          string
	MarkdownStyle string
	ShowStatusBar bool
}

type fileChangedMsg struct{}

type loadedMsg struct {
	markdown string
	err      error
}

// Model is the previewer state.
type Model struct {
	cfg      Config
	ctx      context.Context
	cancel   context.CancelFunc
	listener *pubsub.ContinuousListener[controller.Snapshot]
	// logs is nil unless logging was initialized.
	logs     *log.LogListener

	snap     controller.Snapshot
	loadErr  error
	viewport viewport.Model
	help     help.Model
	logPane  logpane.Model
	renderer *markdown.Renderer
	width    int
	height   int
	ready    bool
}

// New creates the previewer model.
func New(cfg Config) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		listener: cfg.Controller.Listener(ctx),
		snap:     cfg.Controller.Snapshot(),
		logs:     log.NewListener(ctx),
		help:     help.New(),
		logPane:  logpane.New(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listener.Listen(), m.load(), m.waitForChange()}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case loadedMsg:
		m.loadErr = msg.err
		if msg.err != nil {
			log.ErrorErr(log.CatUI, "reading deck", msg.err, "path", m.cfg.Path)
			m.refreshContent()
			return m, nil
		}
		m.cfg.Controller.UpdateMarkdown(msg.markdown)
		return m, nil

	case fileChangedMsg:
		return m, tea.Batch(m.load(), m.waitForChange())

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case pubsub.Event[controller.Snapshot]:
		m.snap = msg.Payload
		m.refreshContent()
		if msg.Type.Terminal() {
			return m, nil
		}
		return m, m.listener.Listen()

	case log.LogEvent:
		m.logPane.Append(msg.Payload)
		if m.logs == nil {
			return m, nil
		}
		return m, m.logs.Listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.cfg.Controller
	switch {
	case key.Matches(msg, keys.Preview.Quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, keys.Preview.Logs):
		m.logPane.Toggle()
		return m, nil
	case m.logPane.Visible():
		var cmd tea.Cmd
		m.logPane, cmd = m.logPane.Update(msg)
		return m, cmd
	case key.Matches(msg, keys.Preview.Next):
		ctrl.Next()
	case key.Matches(msg, keys.Preview.Prev):
		ctrl.Prev()
	case key.Matches(msg, keys.Preview.First):
		ctrl.GoTo(1)
	case key.Matches(msg, keys.Preview.Last):
		if m.snap.Result != nil {
			ctrl.GoTo(m.snap.Result.TotalSlides)
		}
	case key.Matches(msg, keys.Preview.Refresh):
		ctrl.Refresh()
		return m, nil
	case key.Matches(msg, keys.Preview.Help):
		m.help.ShowAll = !m.help.ShowAll
		if m.ready {
			m.resize()
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.snap = ctrl.Snapshot()
	m.refreshContent()
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	ctrl := m.cfg.Controller
	switch {
	case clicked(zonePrev, msg):
		ctrl.Prev()
	case clicked(zoneNext, msg):
		ctrl.Next()
	default:
		return m, nil
	}
	m.snap = ctrl.Snapshot()
	m.refreshContent()
	return m, nil
}

func clicked(id string, msg tea.MouseMsg) bool {
	z := zone.Get(id)
	return z != nil && z.InBounds(msg)
}

// Snapshot returns the controller state the view was last drawn from.
func (m Model) Snapshot() controller.Snapshot {
	return m.snap
}

func (m Model) load() tea.Cmd {
	source := m.cfg.Source
	return func() tea.Msg {
		md, err := source()
		return loadedMsg{markdown: md, err: err}
	}
}

func (m Model) waitForChange() tea.Cmd {
	if m.cfg.Changes == nil {
		return nil
	}
	ctx, changes := m.ctx, m.cfg.Changes
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			return fileChangedMsg{}
		}
	}
}

func (m *Model) resize() {
	bodyHeight := m.height - lipgloss.Height(m.header())
	if m.cfg.ShowStatusBar {
		bodyHeight--
	}
	if m.help.ShowAll {
		bodyHeight -= lipgloss.Height(m.fullHelp())
	}
	bodyHeight = max(bodyHeight, 1)
	m.logPane.SetSize(m.width, bodyHeight)

	if !m.ready {
		m.viewport = viewport.New(m.width, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = bodyHeight
	}

	if m.renderer == nil || m.renderer.Width() != m.width {
		r, err := markdown.New(m.width, m.cfg.MarkdownStyle)
		if err != nil {
			log.ErrorErr(log.CatUI, "creating markdown renderer", err)
		} else {
			m.renderer = r
		}
	}
	m.refreshContent()
}

func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.body())
	m.viewport.GotoTop()
}

func (m Model) body() string {
	wrap := max(m.width-2, 10)
	slide, ok := m.snap.Result.Slide(m.snap.CurrentIndex)
	switch {
	case ok && m.renderer != nil:
		out, err := m.renderer.RenderHTML(slide.HTML)
		if err != nil {
			return styles.ErrorStyle.Render(wordwrap.String(err.Error(), wrap))
		}
		return out
	case m.loadErr != nil:
		return styles.ErrorStyle.Render(wordwrap.String("Cannot read deck: "+m.loadErr.Error(), wrap))
	case m.snap.Err != nil:
		return styles.ErrorStyle.Render(wordwrap.String("Render failed: "+m.snap.Err.Error(), wrap))
	case m.snap.IsLoading:
		return styles.EmptyStyle.Render("Rendering…")
	default:
		return styles.EmptyStyle.Render("No slides yet")
	}
}

func (m Model) header() string {
	title := "slidepipe"
	position := ""
	if slide, ok := m.snap.Result.Slide(m.snap.CurrentIndex); ok {
		title = slide.Title
		position = fmt.Sprintf("%d/%d", m.snap.CurrentIndex, m.snap.Result.TotalSlides)
	}

	inner := max(m.width-2, 0)
	// Room for the arrows and their spacing.
	posWidth := runewidth.StringWidth(position) + 4
	left := styles.TitleStyle.Render(runewidth.Truncate(title, max(inner-posWidth-1, 1), "…"))
	right := ""
	if position != "" {
		right = zone.Mark(zonePrev, styles.PositionStyle.Render("‹")) + " " +
			styles.PositionStyle.Render(position) + " " +
			zone.Mark(zoneNext, styles.PositionStyle.Render("›"))
	}
	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return styles.HeaderStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) statusBar() string {
	var badge string
	switch phase := m.snap.Phase; {
	case m.loadErr != nil || phase == controller.PhaseError:
		badge = styles.PhaseErrorStyle.Render("error")
	case phase.IsLoading():
		badge = styles.PhaseLoadingStyle.Render(string(phase))
	default:
		badge = styles.PhaseReadyStyle.Render(string(phase))
	}

	detail := m.cfg.Path
	if m.snap.Err != nil && m.snap.HasRendered {
		detail = "last render failed: " + m.snap.Err.Error()
	}
	line := badge + "  " + detail + "  " + m.help.ShortHelpView(keys.Preview.ShortHelp())
	line = truncate.StringWithTail(line, uint(max(m.width-2, 1)), "…")
	return styles.StatusBarStyle.Width(m.width).Render(line)
}

func (m Model) fullHelp() string {
	h := m.help
	h.Width = m.width
	return styles.HelpStyle.Render(h.FullHelpView(keys.Preview.FullHelp()))
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}
	body := m.viewport.View()
	if m.logPane.Visible() {
		body = m.logPane.View()
	}
	parts := []string{m.header(), body}
	if m.help.ShowAll {
		parts = append(parts, m.fullHelp())
	}
	if m.cfg.ShowStatusBar {
		parts = append(parts, m.statusBar())
	}
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
