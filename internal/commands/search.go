package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pweiskircher/buganize/internal/contracts"
	"github.com/pweiskircher/buganize/internal/issue"
	"github.com/pweiskircher/buganize/internal/output"
	"github.com/pweiskircher/buganize/internal/tracker"
)

type SearchOptions struct {
	Query    string
	PageSize int
	// Limit is the total number of issues to collect across pages. Zero
	// means a single page.
	Limit  int
	Fields []output.ExtraField
}

// RunSearch pages through search results until Limit issues are collected
// or the tracker reports no further pages. When the last page is cut to fit
// Limit the result carries no next-page token, since resuming from it would
// skip the cut issues.
func RunSearch(ctx context.Context, api tracker.API, options SearchOptions) (output.Report, error) {
	report := output.Report{CommandName: string(contracts.CommandSearch)}

	query := strings.TrimSpace(options.Query)
	if query == "" {
		return report, fmt.Errorf("failed to search: query must not be empty")
	}
	if options.Limit < 0 {
		return report, fmt.Errorf("failed to search: --limit must not be negative")
	}
	pageSize := options.PageSize
	if pageSize == 0 {
		pageSize = contracts.DefaultPageSize
	}

	page, err := api.Search(ctx, tracker.SearchRequest{Query: query, PageSize: pageSize})
	if err != nil {
		return report, fmt.Errorf("failed to search issues: %w", err)
	}

	collected := append([]issue.Issue(nil), page.Issues...)
	last := page
	truncated := false
	if options.Limit > 0 {
		for len(collected) < options.Limit && last.HasMore() {
			next, ok, err := api.NextPage(ctx, last)
			if err != nil {
				return report, fmt.Errorf("failed to fetch next search page: %w", err)
			}
			if !ok {
				break
			}
			collected = append(collected, next.Issues...)
			last = next
			if len(next.Issues) == 0 {
				break
			}
		}
		if len(collected) > options.Limit {
			collected = collected[:options.Limit]
			truncated = true
		}
	}

	// A token after truncation would resume past the dropped issues.
	nextPageToken := last.NextPageToken
	if truncated {
		nextPageToken = ""
	}

	result := issue.SearchResult{
		Issues:        collected,
		TotalCount:    last.TotalCount,
		NextPageToken: nextPageToken,
		Query:         query,
		PageSize:      pageSize,
	}

	report.Counts = contracts.AggregateCounts{Returned: len(collected), Total: last.TotalCount}
	report.Data = result
	report.View = output.SearchView{
		Query:   query,
		Issues:  collected,
		Total:   last.TotalCount,
		HasMore: last.HasMore(),
		Fields:  options.Fields,
	}
	report.Rows = output.IssueRows(collected, options.Fields)
	return report, nil
}
