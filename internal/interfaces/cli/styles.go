package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

const (
	ColorPrimary    = "#7C3AED"
	ColorSuccess    = "#10B981"
	ColorWarning    = "#F59E0B"
	ColorError      = "#EF4444"
	ColorSecondary  = "#6B7280"
	ColorBgSelected = "#1E1B4B"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary))

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondary)).
			Width(14)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSuccess))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWarning))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)).
			Bold(true)

	NoopStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondary))

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondary))

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorPrimary)).
			Background(lipgloss.Color(ColorBgSelected)).
			Bold(true)

	DetailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorSecondary)).
			Padding(0, 1)
)

// changeMark renders the prefix of a mutating (✓) or no-op (=) result.
func changeMark(changed bool) string {
	if changed {
		return SuccessStyle.Render("✓")
	}
	return NoopStyle.Render("=")
}

func transferStateStyle(state entity.TransferState) lipgloss.Style {
	switch state {
	case entity.TransferCompleted:
		return SuccessStyle
	case entity.TransferFailed:
		return ErrorStyle
	case entity.TransferPending, entity.TransferRequested:
		return WarningStyle
	default:
		return NoopStyle
	}
}

func notificationStyle(t entity.NotificationType) lipgloss.Style {
	switch t {
	case entity.NotificationTransferIn, entity.NotificationRenewed:
		return SuccessStyle
	case entity.NotificationTransferOut, entity.NotificationSuspended, entity.NotificationDeleted:
		return ErrorStyle
	default:
		return WarningStyle
	}
}
