package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/inspect"
	"github.com/pkgfoundry/wheelscan/pkg/schema"
	"github.com/pkgfoundry/wheelscan/pkg/verify"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// detailWidth caps the detail column so digest dumps don't wrap the table.
const detailWidth = 56

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse <report.json>",
		Short: "Explore a report's findings interactively",
		Long: `Open a report produced by inspect or fetch in an interactive viewer.

The viewer lists one finding per path with its verification status.
Navigate with the arrow keys or j/k, press tab to hide verified paths,
and q to leave.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := readReport(args[0])
			if err != nil {
				return err
			}
			return c.browseReport(rep, filepath.Base(args[0]))
		},
	}
	return cmd
}

// readReport loads a report file, checking it against the report schema so
// arbitrary JSON is rejected up front.
func readReport(path string) (*inspect.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var rep inspect.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s is not a wheelscan report", path)
	}

	kind := schema.KindDistInfo
	if rep.WheelIdentity != nil {
		kind = schema.KindWheel
	}
	if err := schema.ValidateReport(data, kind); err != nil {
		return nil, err
	}
	return &rep, nil
}

// browseReport runs the findings viewer on a report.
func (c *CLI) browseReport(rep *inspect.Report, title string) error {
	p := tea.NewProgram(NewFindingsModel(rep, title))
	_, err := p.Run()
	return err
}

// =============================================================================
// FindingsModel - Interactive findings viewer
// =============================================================================

// FindingsModel is the bubbletea model for browsing a report's findings.
type FindingsModel struct {
	Report       *inspect.Report
	Title        string
	Findings     []verify.Finding // current view, refiltered on toggle
	ProblemsOnly bool
	Cursor       int
	Offset       int
	Height       int
}

// NewFindingsModel creates a findings viewer for a report.
func NewFindingsModel(rep *inspect.Report, title string) FindingsModel {
	return FindingsModel{
		Report:   rep,
		Title:    title,
		Findings: rep.Findings,
		Height:   15,
	}
}

func (m FindingsModel) Init() tea.Cmd {
	return nil
}

func (m FindingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Findings)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "tab":
			m.ProblemsOnly = !m.ProblemsOnly
			m.Findings = m.filtered()
			m.Cursor = 0
			m.Offset = 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 9
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m FindingsModel) filtered() []verify.Finding {
	if !m.ProblemsOnly {
		return m.Report.Findings
	}
	problems := []verify.Finding{}
	for _, f := range m.Report.Findings {
		if f.Status != verify.StatusVerified {
			problems = append(problems, f)
		}
	}
	return problems
}

func (m FindingsModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Findings · " + m.Title))
	b.WriteString("\n")
	filterHint := "tab hide verified"
	if m.ProblemsOnly {
		filterHint = "tab show all"
	}
	b.WriteString(listDimStyle.Render("↑/↓ navigate  " + filterHint + "  q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.verdictLine())
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Findings) {
		end = len(m.Findings)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		f := m.Findings[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, f.Path, string(f.Status), truncate(f.Detail, detailWidth)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Path", "Status", "Detail").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return listHeaderStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Findings) {
				return lipgloss.NewStyle()
			}
			f := m.Findings[actualIdx]
			isCurrent := actualIdx == m.Cursor

			base := lipgloss.NewStyle()
			switch col {
			case 2:
				base = styleStatus(f.Status)
			case 3:
				base = base.Foreground(colorDim)
			default:
				if f.Status == verify.StatusVerified {
					base = base.Foreground(colorGray)
				} else {
					base = base.Foreground(colorWhite)
				}
			}
			if isCurrent {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(m.footer()))

	return b.String()
}

// verdictLine summarizes the report above the table.
func (m FindingsModel) verdictLine() string {
	verdict := StyleSuccess.Render(iconSuccess + " valid")
	if !m.Report.Valid {
		verdict = StyleError.Render(iconError + " invalid")
	}

	parts := []string{verdict}
	if m.Report.WheelIdentity != nil {
		parts = append(parts, StyleValue.Render(m.Report.Project+" "+m.Report.Version))
	}
	if !m.Report.Valid && m.Report.ValidationError != nil {
		parts = append(parts, StyleDim.Render(truncate(m.Report.ValidationError.Str, detailWidth)))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

// footer shows the cursor position and per-status counts for the current
// view.
func (m FindingsModel) footer() string {
	pos := "[0/0]"
	if len(m.Findings) > 0 {
		pos = fmt.Sprintf("[%d/%d]", m.Cursor+1, len(m.Findings))
	}

	counts := make(map[verify.Status]int, len(m.Findings))
	for _, f := range m.Findings {
		counts[f.Status]++
	}
	parts := []string{pos}
	if n := counts[verify.StatusVerified]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", n, verify.StatusVerified))
	}
	for _, s := range problemStatuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	return "  " + strings.Join(parts, " · ")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
