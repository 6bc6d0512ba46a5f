package commands

import (
	"context"
	"fmt"

	"github.com/pweiskircher/buganize/internal/contracts"
	"github.com/pweiskircher/buganize/internal/issue"
	"github.com/pweiskircher/buganize/internal/output"
	"github.com/pweiskircher/buganize/internal/tracker"
)

type IssueOptions struct {
	Fields    []output.ExtraField
	AllFields bool
}

func RunIssue(ctx context.Context, api tracker.API, id int64, options IssueOptions) (output.Report, error) {
	report := output.Report{CommandName: string(contracts.CommandIssue)}

	found, err := api.Issue(ctx, id)
	if err != nil {
		return report, fmt.Errorf("failed to get issue %d: %w", id, err)
	}

	report.Counts = contracts.AggregateCounts{Returned: 1}
	report.Data = found
	report.View = output.IssueDetail{Issue: found, Fields: options.Fields, AllFields: options.AllFields}
	report.Rows = output.IssueRows([]issue.Issue{found}, options.Fields)
	return report, nil
}

// RunIssues fetches several issues at once. Requested IDs the tracker does
// not return are reported as warnings and counted as missing.
func RunIssues(ctx context.Context, api tracker.API, ids []int64, options IssueOptions) (output.Report, error) {
	report := output.Report{CommandName: string(contracts.CommandIssues)}

	requested := dedupeIDs(ids)
	if len(requested) == 0 {
		return report, fmt.Errorf("failed to get issues: at least one issue ID is required")
	}

	found, err := api.Issues(ctx, requested)
	if err != nil {
		return report, fmt.Errorf("failed to get issues: %w", err)
	}

	returned := make(map[int64]struct{}, len(found))
	for _, item := range found {
		returned[item.ID] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := returned[id]; !ok {
			report.Warnings = append(report.Warnings, fmt.Sprintf("issue %d was not returned by the tracker", id))
		}
	}

	report.Counts = contracts.AggregateCounts{Returned: len(found), Missing: len(report.Warnings)}
	report.Data = found
	report.View = output.IssueTable{Issues: found, Fields: options.Fields}
	report.Rows = output.IssueRows(found, options.Fields)
	return report, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	deduped := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped
}
