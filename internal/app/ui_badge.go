package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"repobranch/internal/domain"
)

type badgeTone int

const (
	badgeToneNeutral badgeTone = iota
	badgeToneSuccess
	badgeToneWarning
)

func renderBadge(label string, tone badgeTone) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch tone {
	case badgeToneSuccess:
		return base.
			Foreground(lipgloss.AdaptiveColor{Light: "#0F5132", Dark: "#0D1117"}).
			Background(lipgloss.AdaptiveColor{Light: "#D1FADF", Dark: "#3FB950"}).
			Render(label)
	case badgeToneWarning:
		return base.
			Foreground(lipgloss.AdaptiveColor{Light: "#663C00", Dark: "#161B22"}).
			Background(lipgloss.AdaptiveColor{Light: "#F8D66D", Dark: "#D29922"}).
			Render(label)
	default:
		return base.
			Foreground(mutedTextColor).
			Background(lipgloss.AdaptiveColor{Light: "#F6F8FA", Dark: "#161B22"}).
			Render(label)
	}
}

func intentBadge(in domain.Intent) string {
	p := domain.Enablement(in)
	switch {
	case p.Enabled:
		return renderBadge(domain.IntentName(in), badgeToneSuccess)
	case p.Visible:
		return renderBadge(domain.IntentName(in), badgeToneWarning)
	default:
		return renderBadge(domain.IntentName(in), badgeToneNeutral)
	}
}
