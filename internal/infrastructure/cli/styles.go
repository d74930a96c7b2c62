package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/doeshing/sgpt-go/internal/domain"
)

var (
	styleCommand = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	styleHint    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	styleDanger  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func riskStyle(level domain.RiskLevel) lipgloss.Style {
	switch level {
	case domain.RiskHigh, domain.RiskCritical:
		return styleDanger
	case domain.RiskMedium, domain.RiskLow:
		return styleWarn
	default:
		return styleOK
	}
}
