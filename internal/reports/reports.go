package reports

import (
	"fmt"
	"strings"
	"time"

	"taskie/backend/internal/models"
)

const dueSoonWindow = 7 * 24 * time.Hour

// Summary is the board/analytics rollup consumed by the dashboard endpoint
// and by emailed reports. Rendering (PDF layout, HTML templates) happens
// elsewhere; this is the data a renderer consumes.
type Summary struct {
	OwnerID        string    `json:"owner_id"`
	Total          int       `json:"total"`
	ToDo           int       `json:"to_do"`
	Ongoing        int       `json:"ongoing"`
	Completed      int       `json:"completed"`
	CompletionRate float64   `json:"completion_rate"`
	AtRisk         []string  `json:"at_risk"`
	DueSoon        []DueItem `json:"due_soon"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type DueItem struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
}

// Build computes the summary from the canonical task list. now is injected
// so the due-soon window is testable.
func Build(ownerID string, tasks []models.Task, now time.Time) Summary {
	summary := Summary{
		OwnerID:     ownerID,
		Total:       len(tasks),
		AtRisk:      []string{},
		DueSoon:     []DueItem{},
		GeneratedAt: now,
	}

	for _, task := range tasks {
		switch task.Status {
		case models.StatusToDo:
			summary.ToDo++
		case models.StatusOngoing:
			summary.Ongoing++
		case models.StatusCompleted:
			summary.Completed++
		}

		if task.IsAtRisk {
			summary.AtRisk = append(summary.AtRisk, task.Title)
		}

		if task.DueDate != nil && !task.IsCompleted {
			due, err := time.Parse("2006-01-02", *task.DueDate)
			if err != nil {
				continue
			}
			until := due.Sub(now)
			if until >= -24*time.Hour && until <= dueSoonWindow {
				summary.DueSoon = append(summary.DueSoon, DueItem{Title: task.Title, DueDate: *task.DueDate})
			}
		}
	}

	if summary.Total > 0 {
		summary.CompletionRate = float64(summary.Completed) / float64(summary.Total)
	}
	return summary
}

// RenderText formats the summary as the plain-text body of a report email.
func RenderText(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task report for %s\n", s.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Total tasks: %d\n", s.Total)
	fmt.Fprintf(&b, "To do: %d  Ongoing: %d  Completed: %d\n", s.ToDo, s.Ongoing, s.Completed)
	fmt.Fprintf(&b, "Completion rate: %.0f%%\n", s.CompletionRate*100)

	if len(s.AtRisk) > 0 {
		b.WriteString("\nAt risk:\n")
		for _, title := range s.AtRisk {
			fmt.Fprintf(&b, "  - %s\n", title)
		}
	}
	if len(s.DueSoon) > 0 {
		b.WriteString("\nDue soon:\n")
		for _, item := range s.DueSoon {
			fmt.Fprintf(&b, "  - %s (due %s)\n", item.Title, item.DueDate)
		}
	}
	return b.String()
}
