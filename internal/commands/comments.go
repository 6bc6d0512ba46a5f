package commands

import (
	"context"
	"fmt"

	"github.com/pweiskircher/buganize/internal/contracts"
	"github.com/pweiskircher/buganize/internal/output"
	"github.com/pweiskircher/buganize/internal/tracker"
)

func RunComments(ctx context.Context, api tracker.API, id int64) (output.Report, error) {
	report := output.Report{CommandName: string(contracts.CommandComments)}

	comments, err := api.Comments(ctx, id)
	if err != nil {
		return report, fmt.Errorf("failed to get comments for issue %d: %w", id, err)
	}

	report.Counts = contracts.AggregateCounts{Returned: len(comments)}
	report.Data = comments
	report.View = output.CommentTable{IssueID: id, Comments: comments}
	report.Rows = output.CommentRows(comments)
	return report, nil
}

func RunUpdates(ctx context.Context, api tracker.API, id int64) (output.Report, error) {
	report := output.Report{CommandName: string(contracts.CommandUpdates)}

	result, err := api.Updates(ctx, id)
	if err != nil {
		return report, fmt.Errorf("failed to get updates for issue %d: %w", id, err)
	}

	report.Counts = contracts.AggregateCounts{Returned: len(result.Updates), Total: result.TotalCount}
	report.Data = result
	report.View = output.UpdateTable{IssueID: id, Result: result}
	report.Rows = output.UpdateRows(result.Updates)
	return report, nil
}
