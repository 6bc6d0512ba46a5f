package output

import (
	"strings"
	"time"

	"github.com/pweiskircher/buganize/internal/export"
	"github.com/pweiskircher/buganize/internal/issue"
)

// pattern: Functional Core

const (
	listDateLayout    = "2006-01-02 15:04"
	commentDateLayout = "2006-01-02 15:04 UTC"
	rowDateLayout     = "2006-01-02 15:04:05"
)

// IssueRows converts issues into export rows: the fixed columns followed by
// one column per selected extra field.
func IssueRows(issues []issue.Issue, fields []ExtraField) []export.Row {
	rows := make([]export.Row, 0, len(issues))
	for _, item := range issues {
		row := export.Row{
			{Column: "P", Value: item.Priority.String()},
			{Column: "ID", Value: item.ID},
			{Column: "Type", Value: item.Type.String()},
			{Column: "Title", Value: item.Title},
			{Column: "Status", Value: strings.ToLower(item.Status.String())},
			{Column: "Last Modified", Value: isoTime(item.ModifiedAt)},
		}
		for _, field := range fields {
			row = append(row, export.Cell{Column: field.Header(), Value: field.Value(item)})
		}
		rows = append(rows, row)
	}
	return rows
}

func CommentRows(comments []issue.Comment) []export.Row {
	rows := make([]export.Row, 0, len(comments))
	for _, comment := range comments {
		rows = append(rows, export.Row{
			{Column: "#", Value: comment.Number},
			{Column: "Author", Value: authorOrUnknown(comment.Author)},
			{Column: "Date", Value: formatTime(comment.Timestamp, rowDateLayout)},
			{Column: "Body", Value: comment.Body},
		})
	}
	return rows
}

func UpdateRows(updates []issue.Update) []export.Row {
	rows := make([]export.Row, 0, len(updates))
	for _, update := range updates {
		var sequence any = ""
		if update.SequenceNumber != nil {
			sequence = *update.SequenceNumber
		}
		body := ""
		if update.Comment != nil {
			body = update.Comment.Body
		}
		rows = append(rows, export.Row{
			{Column: "#", Value: sequence},
			{Column: "Author", Value: authorOrUnknown(update.Author)},
			{Column: "Date", Value: formatTime(update.Timestamp, rowDateLayout)},
			{Column: "Changed Fields", Value: changedFields(update.FieldChanges)},
			{Column: "Comment", Value: body},
		})
	}
	return rows
}

func changedFields(changes []issue.FieldChange) string {
	names := make([]string, 0, len(changes))
	for _, change := range changes {
		names = append(names, change.Field)
	}
	return strings.Join(names, ", ")
}

func authorOrUnknown(author string) string {
	if author == "" {
		return "unknown"
	}
	return author
}

func formatTime(value *time.Time, layout string) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(layout)
}
