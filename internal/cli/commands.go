package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pweiskircher/buganize/internal/commands"
	"github.com/pweiskircher/buganize/internal/contracts"
	"github.com/pweiskircher/buganize/internal/output"
)

type commandRunner func(ctx context.Context, env *commandEnv, args []string) (output.Report, error)

type commandDefinition struct {
	Name  contracts.CommandName
	Use   string
	Short string
	Args  cobra.PositionalArgs
	// Build registers command-local flags and returns the runner bound to
	// them.
	Build func(cmd *cobra.Command) commandRunner
}

func commandDefinitions() []commandDefinition {
	return []commandDefinition{
		{
			Name:  contracts.CommandSearch,
			Use:   "search QUERY",
			Short: "Search for issues",
			Args:  cobra.ExactArgs(1),
			Build: buildSearch,
		},
		{
			Name:  contracts.CommandIssue,
			Use:   "issue ID",
			Short: "Get a single issue",
			Args:  cobra.ExactArgs(1),
			Build: func(*cobra.Command) commandRunner {
				return func(ctx context.Context, env *commandEnv, args []string) (output.Report, error) {
					id, err := parseIssueID(args[0])
					if err != nil {
						return output.Report{CommandName: string(contracts.CommandIssue)}, err
					}
					return commands.RunIssue(ctx, env.api, id, env.issueOptions())
				}
			},
		},
		{
			Name:  contracts.CommandIssues,
			Use:   "issues ID...",
			Short: "Get several issues in one request",
			Args:  cobra.MinimumNArgs(1),
			Build: func(*cobra.Command) commandRunner {
				return func(ctx context.Context, env *commandEnv, args []string) (output.Report, error) {
					ids := make([]int64, 0, len(args))
					for _, arg := range args {
						id, err := parseIssueID(arg)
						if err != nil {
							return output.Report{CommandName: string(contracts.CommandIssues)}, err
						}
						ids = append(ids, id)
					}
					return commands.RunIssues(ctx, env.api, ids, env.issueOptions())
				}
			},
		},
		{
			Name:  contracts.CommandComments,
			Use:   "comments ID",
			Short: "Get the comments on an issue",
			Args:  cobra.ExactArgs(1),
			Build: func(*cobra.Command) commandRunner {
				return func(ctx context.Context, env *commandEnv, args []string) (output.Report, error) {
					id, err := parseIssueID(args[0])
					if err != nil {
						return output.Report{CommandName: string(contracts.CommandComments)}, err
					}
					return commands.RunComments(ctx, env.api, id)
				}
			},
		},
		{
			Name:  contracts.CommandUpdates,
			Use:   "updates ID",
			Short: "Get the update history of an issue",
			Args:  cobra.ExactArgs(1),
			Build: func(*cobra.Command) commandRunner {
				return func(ctx context.Context, env *commandEnv, args []string) (output.Report, error) {
					id, err := parseIssueID(args[0])
					if err != nil {
						return output.Report{CommandName: string(contracts.CommandUpdates)}, err
					}
					return commands.RunUpdates(ctx, env.api, id)
				}
			},
		},
		{
			Name:  contracts.CommandTrackers,
			Use:   "trackers",
			Short: "List known trackers",
			Args:  cobra.NoArgs,
			Build: func(*cobra.Command) commandRunner {
				return func(_ context.Context, env *commandEnv, _ []string) (output.Report, error) {
					return commands.RunTrackers(env.registry), nil
				}
			},
		},
	}
}

func buildSearch(cmd *cobra.Command) commandRunner {
	var (
		perPage int
		limit   int
	)
	cmd.Flags().IntVarP(&perPage, "per-page", "n", contracts.DefaultPageSize, "results per page: 25, 50, 100 or 250")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "total results to fetch, paginating as needed")

	return func(ctx context.Context, env *commandEnv, args []string) (output.Report, error) {
		pageSize := perPage
		if !cmd.Flags().Changed("per-page") {
			pageSize = env.settings.PageSize
		}
		if !contracts.IsAllowedPageSize(pageSize) {
			return output.Report{CommandName: string(contracts.CommandSearch)}, fmt.Errorf("invalid --per-page %d: must be one of %v", pageSize, contracts.AllowedPageSizes)
		}

		return commands.RunSearch(ctx, env.api, commands.SearchOptions{
			Query:    args[0],
			PageSize: pageSize,
			Limit:    limit,
			Fields:   env.fields,
		})
	}
}

func parseIssueID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue ID %q: must be a positive integer", raw)
	}
	return id, nil
}
