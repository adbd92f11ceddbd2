package present

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dkoosis/svcheck/pkg/machine"
	"github.com/dkoosis/svcheck/pkg/report"
)

// Browser is the alternate results view: a full-screen list of diagnostics
// with cursor navigation. Enter opens the selected location in the editor.
// Present blocks until the user quits.
type Browser struct {
	theme  Theme
	editor *Editor
	opts   []tea.ProgramOption
}

// NewBrowser creates a Browser reading keys from in and drawing to out.
func NewBrowser(theme Theme, editor *Editor, in io.Reader, out io.Writer) *Browser {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Browser{
		theme:  theme,
		editor: editor,
		opts:   []tea.ProgramOption{tea.WithAltScreen(), tea.WithInput(in), tea.WithOutput(out)},
	}
}

// Present shows diags until the user quits. An empty list has nothing to
// browse and returns immediately.
func (b *Browser) Present(title string, diags []report.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	_, err := tea.NewProgram(newBrowserModel(title, diags, b.theme, b.editor), b.opts...).Run()
	return err
}

type browserKeys struct {
	Up   key.Binding
	Down key.Binding
	Top  key.Binding
	End  key.Binding
	Open key.Binding
	Quit key.Binding
}

func (k browserKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Quit}
}

func (k browserKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Top, k.End}, {k.Open, k.Quit}}
}

func defaultBrowserKeys() browserKeys {
	return browserKeys{
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:  key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		End:  key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
		Open: key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "open in editor")),
		Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type editorFinishedMsg struct{ err error }

type browserModel struct {
	title    string
	diags    []report.Diagnostic
	theme    Theme
	editor   *Editor
	keys     browserKeys
	help     help.Model
	viewport viewport.Model
	cursor   int
	status   string
	ready    bool
}

func newBrowserModel(title string, diags []report.Diagnostic, theme Theme, editor *Editor) browserModel {
	return browserModel{
		title:    title,
		diags:    diags,
		theme:    theme,
		editor:   editor,
		keys:     defaultBrowserKeys(),
		help:     help.New(),
		viewport: viewport.New(0, 0),
	}
}

func (m browserModel) Init() tea.Cmd { return nil }

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// title + status + help
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-3, 1)
		m.help.Width = msg.Width
		m.ready = true
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.diags)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Top):
			m.cursor = 0
		case key.Matches(msg, m.keys.End):
			m.cursor = len(m.diags) - 1
		case key.Matches(msg, m.keys.Open):
			cmd := m.openSelected()
			m.refreshViewport()
			return m, cmd
		}
	case editorFinishedMsg:
		if msg.err != nil {
			m.status = "editor: " + msg.err.Error()
		} else {
			m.status = ""
		}
	}
	m.refreshViewport()
	return m, nil
}

func (m *browserModel) openSelected() tea.Cmd {
	if m.editor == nil || len(m.diags) == 0 {
		return nil
	}
	d := m.diags[m.cursor]
	cmd := m.editor.Command(d)
	m.status = "opening " + d.Location()
	return tea.ExecProcess(cmd, func(err error) tea.Msg { return editorFinishedMsg{err: err} })
}

func (m *browserModel) refreshViewport() {
	var sb strings.Builder
	for i, d := range m.diags {
		prefix := "  "
		if i == m.cursor {
			prefix = m.theme.Icons.Cursor + " "
		}
		style := m.theme.Warning
		if d.Severity == machine.SeverityError {
			style = m.theme.Error
		}
		row := fmt.Sprintf("%s%s  %s  %s", prefix,
			m.theme.Location.Render(d.Location()),
			style.Render(severityLabel(d.Severity)),
			firstLine(d.Message))
		if i == m.cursor {
			row = m.theme.Selected.Render(row)
		}
		sb.WriteString(row)
		if i < len(m.diags)-1 {
			sb.WriteString("\n")
		}
	}
	m.viewport.SetContent(sb.String())

	// Keep the cursor row on screen.
	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if h := m.viewport.Height; h > 0 && m.cursor >= m.viewport.YOffset+h {
		m.viewport.SetYOffset(m.cursor - h + 1)
	}
}

func (m browserModel) View() string {
	if !m.ready {
		return "Loading results..."
	}
	status := fmt.Sprintf("%d/%d", m.cursor+1, len(m.diags))
	if m.status != "" {
		status += "  " + m.status
	}
	return strings.Join([]string{
		m.theme.Bold.Render(m.title),
		m.viewport.View(),
		m.theme.Muted.Render(status),
		m.help.View(m.keys),
	}, "\n")
}
