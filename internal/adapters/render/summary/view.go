package summary

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Row is one account's outcome within a pass.
type Row struct {
	Account  int
	Identity string
	IP       string
	Took     time.Duration
	Err      string
}

// Report summarizes one full pass over the account list.
type Report struct {
	Pass    int
	Started time.Time
	Rows    []Row
}

// Render produces the console summary printed after each pass.
func Render(report Report) string {
	s := newStyles()

	lines := []string{
		s.title.Render(fmt.Sprintf("Pass %d summary", report.Pass)),
		s.header.Render(fmt.Sprintf("accounts: %d, started %s", len(report.Rows), report.Started.Format("15:04:05"))),
	}

	failures := 0
	for _, row := range report.Rows {
		lines = append(lines, renderRow(row, s))
		if row.Err != "" {
			failures++
		}
	}

	lines = append(lines, s.footer.Render(fmt.Sprintf("%d ok, %d failed",
		len(report.Rows)-failures, failures)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRow(row Row, s styles) string {
	ip := row.IP
	if ip == "" {
		ip = "local"
	}
	label := s.detail.Render(fmt.Sprintf("#%d %s [%s] %s", row.Account, row.Identity, ip, row.Took.Round(time.Second)))

	if row.Err != "" {
		return lipgloss.JoinHorizontal(lipgloss.Top, s.failed.Render("✗ "), label, s.failed.Render(" "+row.Err))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, s.ok.Render("✓ "), label)
}

// Banner is printed once at startup.
func Banner() string {
	s := newStyles()
	return lipgloss.JoinVertical(lipgloss.Left,
		s.banner.Render("Spekter farm orchestrator"),
		s.tagline.Render("multi-account stage runner"))
}
