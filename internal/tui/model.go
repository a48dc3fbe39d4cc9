package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"admissionsbot/internal/domain"
)

const (
	title       = "UMT ADMISSION CHATBOT"
	placeholder = "Ask a question about UMT admissions..."
	footer      = "Powered by OpenAI GPT-4o-mini"
)

// Conversation is the TUI-facing subset of a chat session.
type Conversation interface {
	Submit(ctx context.Context, text string) domain.Message
	SetCredential(credential string)
	HasCredential() bool
	Transcript() []domain.Message
}

type focus int

const (
	focusMessage focus = iota
	focusKey
)

// replyMsg carries a finished turn back into the update loop.
type replyMsg struct {
	question string
	reply    domain.Message
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	session  Conversation
	input    textinput.Model
	keyInput textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	focus    focus
	busy     bool
	pending  string
	ready    bool
}

// New creates a chat model. The key field starts empty unless the session
// already carries a credential.
func New(ctx context.Context, session Conversation) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.CharLimit = 0
	ti.Focus()

	ki := textinput.New()
	ki.Prompt = "key: "
	ki.Placeholder = "sk-..."
	ki.EchoMode = textinput.EchoPassword
	ki.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	return Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		keyInput: ki,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and turn events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 2 + 2*(ih+1) // header, status and footer, two inputs
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.input.Width = max(10, msg.Width-8)
		m.keyInput.Width = max(10, msg.Width-10)
		m.refresh()
		return m, nil
	case replyMsg:
		m.busy = false
		m.pending = ""
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyTab, tea.KeyShiftTab:
			m.toggleFocus()
			return m, textinput.Blink
		case tea.KeyEnter:
			if m.focus == focusKey {
				m.session.SetCredential(m.keyInput.Value())
				m.toggleFocus()
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.pending = q
			m.input.Reset()
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	if m.focus == focusKey {
		m.keyInput, cmd = m.keyInput.Update(msg)
		if _, ok := msg.(tea.KeyMsg); ok {
			m.session.SetCredential(m.keyInput.Value())
		}
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		return replyMsg{question: question, reply: session.Submit(ctx, question)}
	}
}

func (m *Model) toggleFocus() {
	if m.focus == focusMessage {
		m.focus = focusKey
		m.input.Blur()
		m.keyInput.Focus()
		return
	}
	m.focus = focusMessage
	m.keyInput.Blur()
	m.input.Focus()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(title)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	key := inputBoxStyle.Render(m.keyInput.View())
	return header + "\n" + transcript + "\n" + m.status() + "\n" + input + "\n" + key + "\n" + footerStyle.Render(footer)
}

func (m Model) status() string {
	switch {
	case m.busy:
		return m.spinner.View() + statusStyle.Render(" Thinking...")
	case !m.session.HasCredential():
		return warnStyle.Render("No API key set. Press Tab to enter it.")
	default:
		return statusStyle.Render("Enter to send, Tab to switch fields, Ctrl+C to quit.")
	}
}

func (m Model) renderTranscript() string {
	width := max(10, m.viewport.Width-4)
	wrap := lipgloss.NewStyle().Width(width)
	msgs := m.session.Transcript()
	if len(msgs) == 0 && m.pending == "" {
		return mutedStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for _, msg := range msgs {
		label := botStyle.Render("Bot")
		if msg.Role == domain.RoleUser {
			label = userStyle.Render("You")
		}
		b.WriteString(label + "\n" + wrap.Render(msg.Content) + "\n\n")
	}
	// the session records the question as soon as the turn starts
	if m.pending != "" && !endsWithQuestion(msgs, m.pending) {
		b.WriteString(userStyle.Render("You") + "\n" + wrap.Render(m.pending) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func endsWithQuestion(msgs []domain.Message, question string) bool {
	if len(msgs) == 0 {
		return false
	}
	last := msgs[len(msgs)-1]
	return last.Role == domain.RoleUser && last.Content == question
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	botStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	footerStyle        = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
)
