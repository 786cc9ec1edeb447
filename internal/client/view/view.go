// Package view renders goal store snapshots for the terminal.
package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/atinyakov/SkillMap/internal/apperr"
	"github.com/atinyakov/SkillMap/internal/client/goals"
)

const timeLayout = "2006-01-02 15:04"

// Render writes the status line, the goal table and the selected goal.
func Render(w io.Writer, st goals.State) {
	Status(w, st)
	Goals(w, st)
	if st.Result != nil {
		fmt.Fprintln(w)
		Result(w, st.Result)
	}
}

// Status writes the loading marker and the last error, if any.
func Status(w io.Writer, st goals.State) {
	if st.Loading > 0 {
		fmt.Fprintln(w, "… working")
	}
	if st.Err != nil {
		fmt.Fprintf(w, "error: %s (type \"dismiss\" to clear)\n", apperr.Message(st.Err))
	}
}

// Goals writes the goal collection as a table; the selected goal is
// marked with "*".
func Goals(w io.Writer, st goals.State) {
	if len(st.Goals) == 0 {
		fmt.Fprintln(w, "No goals yet. Create one with: new <resume.pdf> <goal title>")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "ID", "Goal", "Progress", "Updated"})
	table.SetAutoWrapText(false)
	for _, g := range st.Goals {
		mark := ""
		if g.ID == st.SelectedID {
			mark = "*"
		}
		done, total, pct := goals.Completion(g)
		updated := ""
		if !g.UpdatedAt.IsZero() {
			updated = g.UpdatedAt.Local().Format(timeLayout)
		}
		table.Append([]string{mark, g.ID, g.Title, fmt.Sprintf("%d/%d (%d%%)", done, total, pct), updated})
	}
	table.Render()
}

// Result writes the selected goal: progress, checklist and analysis.
func Result(w io.Writer, r *goals.Result) {
	fmt.Fprintf(w, "%s  [%s] %d%% (%d/%d)\n", r.Title, bar(r.Percent, 20), r.Percent, r.Completed, r.Total)
	for _, s := range r.Steps {
		box := "[ ]"
		if s.Done {
			box = "[x]"
		}
		fmt.Fprintf(w, "  %2d %s %s\n", s.Index, box, s.Text)
	}

	if len(r.Skills) > 0 {
		fmt.Fprintf(w, "\nSkills: %s\n", strings.Join(r.Skills, ", "))
	}
	if r.Assessment != "" {
		fmt.Fprintf(w, "\nAssessment:\n%s\n", indent(r.Assessment))
	}
	list(w, "Skill gaps", r.SkillGaps)
	list(w, "Learning path", r.LearningPath)
	list(w, "CV tips", r.Tips)

	if len(r.Courses) > 0 {
		fmt.Fprintln(w, "\nRecommended courses:")
		for _, c := range r.Courses {
			line := "  - " + c.Title
			if c.Provider != "" {
				line += " (" + c.Provider + ")"
			}
			if c.URL != "" {
				line += " " + c.URL
			}
			fmt.Fprintln(w, line)
		}
	}
}

func list(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func bar(pct, width int) string {
	filled := pct * width / 100
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}
