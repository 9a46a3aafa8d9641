package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"repobranch/internal/domain"
)

type NamePromptInput struct {
	Title        string
	Project      domain.Project
	Repositories []domain.Repository
	Checkout     bool
	Validate     func(name string) error
}

type NamePromptResult struct {
	Confirmed bool
	Name      string
	Checkout  bool
}

type NamePromptRunner func(NamePromptInput) (NamePromptResult, error)

func defaultIsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	textColor      = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#E6EDF3"}
	mutedTextColor = lipgloss.AdaptiveColor{Light: "#57606A", Dark: "#8B949E"}
	borderColor    = lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#30363D"}
	accentColor    = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#58A6FF"}
	successColor   = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	errorFgColor   = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}

	titleBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("31")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(textColor)
	hintStyle  = lipgloss.NewStyle().Foreground(mutedTextColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorFgColor)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(errorFgColor).
			PaddingLeft(1)

	inputFocusStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	switchOnStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Background(lipgloss.AdaptiveColor{Light: "#EAFBEF", Dark: "#0F2418"}).
			Bold(true).
			Padding(0, 2)

	switchOffStyle = lipgloss.NewStyle().
			Foreground(mutedTextColor).
			Background(lipgloss.AdaptiveColor{Light: "#F6F8FA", Dark: "#161B22"}).
			Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 2)
)

type namePromptKeyMap struct {
	Submit key.Binding
	Toggle key.Binding
	Cancel key.Binding
}

func (k namePromptKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Toggle, k.Cancel}
}

func (k namePromptKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultNamePromptKeyMap() namePromptKeyMap {
	return namePromptKeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "create branch"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle checkout"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

type namePromptModel struct {
	input NamePromptInput

	name     textinput.Model
	checkout bool

	help help.Model
	keys namePromptKeyMap

	errorText string
	confirmed bool
	cancelled bool
}

func newNamePromptModel(input NamePromptInput) *namePromptModel {
	name := textinput.New()
	name.Placeholder = "feature/my-change"
	name.Prompt = ""
	name.CharLimit = 255
	name.Focus()
	return &namePromptModel{
		input:    input,
		name:     name,
		checkout: input.Checkout,
		help:     help.New(),
		keys:     defaultNamePromptKeyMap(),
	}
}

func runNamePromptInteractive(input NamePromptInput) (NamePromptResult, error) {
	program := tea.NewProgram(newNamePromptModel(input))
	finalModel, err := program.Run()
	if err != nil {
		return NamePromptResult{}, err
	}
	m, ok := finalModel.(*namePromptModel)
	if !ok {
		return NamePromptResult{}, fmt.Errorf("unexpected name prompt model type %T", finalModel)
	}
	return m.result(), nil
}

func (m *namePromptModel) result() NamePromptResult {
	if !m.confirmed {
		return NamePromptResult{}
	}
	return NamePromptResult{
		Confirmed: true,
		Name:      strings.TrimSpace(m.name.Value()),
		Checkout:  m.checkout,
	}
}

func (m *namePromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *namePromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.checkout = !m.checkout
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			name := strings.TrimSpace(m.name.Value())
			if m.input.Validate != nil {
				if err := m.input.Validate(name); err != nil {
					m.errorText = err.Error()
					return m, nil
				}
			}
			m.confirmed = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	before := m.name.Value()
	m.name, cmd = m.name.Update(msg)
	if m.name.Value() != before {
		m.errorText = ""
	}
	return m, cmd
}

func (m *namePromptModel) View() string {
	if m.confirmed || m.cancelled {
		return ""
	}
	lines := []string{titleBadgeStyle.Render(m.input.Title), ""}
	if m.input.Project.Name != "" {
		lines = append(lines, labelStyle.Render("Project")+"  "+m.input.Project.Name)
	}
	names := make([]string, 0, len(m.input.Repositories))
	for _, r := range m.input.Repositories {
		names = append(names, r.Name)
	}
	lines = append(lines,
		labelStyle.Render("Repositories")+"  "+strings.Join(names, ", "),
		"",
		labelStyle.Render("Branch name"),
		inputFocusStyle.Render(m.name.View()),
		labelStyle.Render("Checkout")+"  "+renderSwitch(m.checkout),
	)
	if m.errorText != "" {
		lines = append(lines, "", alertStyle.Render(errorStyle.Render(m.errorText)))
	}
	lines = append(lines, "", hintStyle.Render(m.help.View(m.keys)))
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)) + "\n"
}

func renderSwitch(on bool) string {
	if on {
		return switchOnStyle.Render("ON")
	}
	return switchOffStyle.Render("OFF")
}

// terminalPrompter asks for the branch name with the interactive prompt.
type terminalPrompter struct {
	run      NamePromptRunner
	checkout bool
	validate func(name string, repos []domain.Repository) error
}

func (p terminalPrompter) PromptForBranchName(ctx context.Context, project domain.Project, repos []domain.Repository, title string) (domain.BranchOptions, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.BranchOptions{}, false, err
	}
	result, err := p.run(NamePromptInput{
		Title:        title,
		Project:      project,
		Repositories: repos,
		Checkout:     p.checkout,
		Validate: func(name string) error {
			return p.validate(name, repos)
		},
	})
	if err != nil {
		return domain.BranchOptions{}, false, err
	}
	if !result.Confirmed {
		return domain.BranchOptions{}, false, nil
	}
	return domain.BranchOptions{Name: result.Name, Checkout: result.Checkout}, true, nil
}

// fixedPrompter answers with a name given on the command line.
type fixedPrompter struct {
	options domain.BranchOptions
}

func (p fixedPrompter) PromptForBranchName(context.Context, domain.Project, []domain.Repository, string) (domain.BranchOptions, bool, error) {
	return p.options, true, nil
}
