package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pweiskircher/buganize/internal/issue"
	"github.com/pweiskircher/buganize/internal/tracker"
)

// pattern: Imperative Shell

// View renders one command result for humans.
type View interface {
	Render(w io.Writer) error
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	_, err := fmt.Fprintln(w, newTable(headers, rows).Render())
	return err
}

// IssueTable lists issues with a running index and the selected extras.
type IssueTable struct {
	Issues []issue.Issue
	Fields []ExtraField
}

func (v IssueTable) Render(w io.Writer) error {
	if len(v.Issues) == 0 {
		return nil
	}

	headers := []string{"#", "Priority", "ID", "Type", "Title", "Status", "Modified"}
	for _, field := range v.Fields {
		headers = append(headers, field.Header())
	}

	rows := make([][]string, 0, len(v.Issues))
	for index, item := range v.Issues {
		row := []string{
			strconv.Itoa(index + 1),
			item.Priority.String(),
			strconv.FormatInt(item.ID, 10),
			item.Type.String(),
			item.Title,
			strings.ToLower(item.Status.String()),
			formatTime(item.ModifiedAt, listDateLayout),
		}
		for _, field := range v.Fields {
			row = append(row, field.Value(item))
		}
		rows = append(rows, row)
	}

	return writeTable(w, headers, rows)
}

// SearchView is an issue table framed by the search totals.
type SearchView struct {
	Query   string
	Issues  []issue.Issue
	Total   int64
	HasMore bool
	Fields  []ExtraField
}

func (v SearchView) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Got %d of ~%d+ issues for '%s'\n\n", len(v.Issues), v.Total, v.Query); err != nil {
		return err
	}
	if err := (IssueTable{Issues: v.Issues, Fields: v.Fields}).Render(w); err != nil {
		return err
	}
	if v.HasMore {
		remaining := v.Total - int64(len(v.Issues))
		if remaining < 0 {
			remaining = 0
		}
		if _, err := fmt.Fprintf(w, "\n~%d+ more results available\n", remaining); err != nil {
			return err
		}
	}
	return nil
}

// IssueDetail prints one issue as a labelled block. Extras with a label are
// printed only when selected and non-empty.
type IssueDetail struct {
	Issue     issue.Issue
	Fields    []ExtraField
	AllFields bool
}

func (v IssueDetail) Render(w io.Writer) error {
	item := v.Issue
	var b strings.Builder

	line := func(label, value string) {
		fmt.Fprintf(&b, "  %-15s%s\n", label+":", value)
	}

	fmt.Fprintf(&b, "\nIssue #%d\n", item.ID)
	line("URL", item.URL())
	line("Title", item.Title)
	line("Status", item.Status.String())
	line("Priority", item.Priority.String())
	if item.Severity != nil {
		line("Severity", item.Severity.String())
	}
	if item.HasType() {
		line("Type", item.Type.String())
	}
	if item.Reporter != "" {
		line("Reporter", item.Reporter)
	}
	if item.Owner != "" {
		line("Owner", item.Owner)
	}
	if item.ComponentID != nil {
		line("Component", strconv.FormatInt(*item.ComponentID, 10))
	}
	if item.CreatedAt != nil {
		line("Created", isoTime(item.CreatedAt))
	}
	if item.ModifiedAt != nil {
		line("Modified", isoTime(item.ModifiedAt))
	}
	line("Comments", strconv.FormatInt(item.CommentCount, 10))

	for _, field := range v.Fields {
		if field.Label == "" {
			continue
		}
		if value := field.Value(item); value != "" {
			line(field.Label, value)
		}
	}

	if v.AllFields && len(item.CustomFields) > 0 {
		b.WriteString("  Other Fields:\n")
		names := make([]string, 0, len(item.CustomFields))
		for name := range item.CustomFields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "    %s: %s\n", name, item.CustomFields[name].String())
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type CommentTable struct {
	IssueID  int64
	Comments []issue.Comment
}

func (v CommentTable) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Issue #%d - %d comments\n\n", v.IssueID, len(v.Comments)); err != nil {
		return err
	}
	if len(v.Comments) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(v.Comments))
	for _, comment := range v.Comments {
		rows = append(rows, []string{
			strconv.FormatInt(comment.Number, 10),
			authorOrUnknown(comment.Author),
			formatTime(comment.Timestamp, commentDateLayout),
			comment.Body,
		})
	}
	return writeTable(w, []string{"#", "Author", "Date", "Body"}, rows)
}

// UpdateTable lists updates newest first with the names of changed fields.
type UpdateTable struct {
	IssueID int64
	Result  issue.UpdatesResult
}

func (v UpdateTable) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Issue #%d - %d updates\n\n", v.IssueID, len(v.Result.Updates)); err != nil {
		return err
	}
	if len(v.Result.Updates) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(v.Result.Updates))
	for _, update := range v.Result.Updates {
		sequence := ""
		if update.SequenceNumber != nil {
			sequence = strconv.FormatInt(*update.SequenceNumber, 10)
		}
		body := ""
		if update.Comment != nil {
			body = update.Comment.Body
		}
		rows = append(rows, []string{
			sequence,
			authorOrUnknown(update.Author),
			formatTime(update.Timestamp, commentDateLayout),
			changedFields(update.FieldChanges),
			body,
		})
	}
	if err := writeTable(w, []string{"#", "Author", "Date", "Changed Fields", "Comment"}, rows); err != nil {
		return err
	}
	if v.Result.HasMore() {
		_, err := fmt.Fprintf(w, "\n%d updates in total; older updates were not fetched\n", v.Result.TotalCount)
		return err
	}
	return nil
}

type TrackerTable struct {
	Trackers []tracker.Tracker
}

func (v TrackerTable) Render(w io.Writer) error {
	rows := make([][]string, 0, len(v.Trackers))
	for _, known := range v.Trackers {
		rows = append(rows, []string{known.ID, known.Name, known.URL})
	}
	return writeTable(w, []string{"ID", "Name", "URL"}, rows)
}
