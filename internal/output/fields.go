package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pweiskircher/buganize/internal/issue"
)

// pattern: Functional Core

// ExtraField is an optional issue column selectable with --field.
type ExtraField struct {
	Name string
	// Label is the detail-view label; empty for fields the detail view
	// always prints in its basic section.
	Label string
	Value func(issue.Issue) string
}

func (f ExtraField) Header() string {
	return ColumnHeader(f.Name)
}

var extraFields = []ExtraField{
	{Name: "owner", Value: func(i issue.Issue) string { return i.Owner }},
	{Name: "reporter", Value: func(i issue.Issue) string { return i.Reporter }},
	{Name: "verifier", Label: "Verifier", Value: func(i issue.Issue) string { return i.Verifier }},
	{Name: "type", Value: func(i issue.Issue) string { return i.Type.String() }},
	{Name: "component", Value: func(i issue.Issue) string { return optionalInt(i.ComponentID) }},
	{Name: "tags", Label: "Comp. Tags", Value: func(i issue.Issue) string { return joinList(i.ComponentTags) }},
	{Name: "ancestor_tags", Label: "Ancestor Tags", Value: func(i issue.Issue) string { return joinList(i.ComponentAncestorTags) }},
	{Name: "labels", Label: "Labels", Value: func(i issue.Issue) string { return joinList(i.Labels) }},
	{Name: "os", Label: "OS", Value: func(i issue.Issue) string { return joinList(i.OS) }},
	{Name: "milestone", Label: "Milestone", Value: func(i issue.Issue) string { return joinList(i.Milestone) }},
	{Name: "ccs", Label: "CCs", Value: func(i issue.Issue) string { return joinList(i.CCs) }},
	{Name: "hotlists", Label: "Hotlists", Value: func(i issue.Issue) string { return joinIDs(i.HotlistIDs) }},
	{Name: "severity", Value: func(i issue.Issue) string {
		if i.Severity == nil {
			return ""
		}
		return i.Severity.String()
	}},
	{Name: "collaborators", Label: "Collaborators", Value: func(i issue.Issue) string { return joinList(i.Collaborators) }},
	{Name: "found_in", Label: "Found In", Value: func(i issue.Issue) string { return joinList(i.FoundIn) }},
	{Name: "in_prod", Label: "In Prod", Value: func(i issue.Issue) string {
		if i.InProd != nil && *i.InProd {
			return "Yes"
		}
		return ""
	}},
	{Name: "blocking", Label: "Blocking", Value: func(i issue.Issue) string { return joinIDs(i.BlockingIssueIDs) }},
	{Name: "cve", Label: "CVE", Value: func(i issue.Issue) string { return joinList(i.CVE) }},
	{Name: "cwe", Label: "CWE ID", Value: func(i issue.Issue) string {
		if i.CWEID == nil {
			return ""
		}
		return strconv.FormatInt(int64(*i.CWEID), 10)
	}},
	{Name: "build", Label: "Build", Value: func(i issue.Issue) string { return i.BuildNumber }},
	{Name: "introduced_in", Label: "Introduced In", Value: func(i issue.Issue) string { return i.IntroducedIn }},
	{Name: "merge", Label: "Merge", Value: func(i issue.Issue) string { return joinList(i.Merge) }},
	{Name: "merge_request", Label: "Merge Req.", Value: func(i issue.Issue) string { return joinList(i.MergeRequest) }},
	{Name: "release_block", Label: "Release Block", Value: func(i issue.Issue) string { return joinList(i.ReleaseBlock) }},
	{Name: "notice", Label: "Notice", Value: func(i issue.Issue) string { return i.Notice }},
	{Name: "flaky_test", Label: "Flaky Test", Value: func(i issue.Issue) string { return i.FlakyTest }},
	{Name: "est_days", Label: "Est. Days", Value: func(i issue.Issue) string { return optionalNumber(i.EstimatedDays) }},
	{Name: "next_action", Label: "Next Action", Value: func(i issue.Issue) string { return i.NextAction }},
	{Name: "vrp_reward", Label: "VRP Reward", Value: func(i issue.Issue) string { return optionalNumber(i.VRPReward) }},
	{Name: "irm_link", Label: "IRM Link", Value: func(i issue.Issue) string { return i.IRMLink }},
	{Name: "sec_release", Label: "Sec. Release", Value: func(i issue.Issue) string { return joinList(i.SecurityRelease) }},
	{Name: "fixed_by", Label: "Fixed By", Value: func(i issue.Issue) string { return joinList(i.FixedByCodeChanges) }},
	{Name: "created", Value: func(i issue.Issue) string { return isoTime(i.CreatedAt) }},
	{Name: "modified", Value: func(i issue.Issue) string { return isoTime(i.ModifiedAt) }},
	{Name: "verified", Label: "Verified", Value: func(i issue.Issue) string { return isoTime(i.VerifiedAt) }},
	{Name: "comments", Value: func(i issue.Issue) string { return strconv.FormatInt(i.CommentCount, 10) }},
	{Name: "stars", Label: "Stars", Value: func(i issue.Issue) string { return strconv.FormatInt(i.StarCount, 10) }},
	{Name: "last_modifier", Label: "Last Modifier", Value: func(i issue.Issue) string { return i.LastModifier }},
	{Name: "24h_views", Label: "24h Views", Value: func(i issue.Issue) string { return nonZero(i.Views24h) }},
	{Name: "7d_views", Label: "7d Views", Value: func(i issue.Issue) string { return nonZero(i.Views7d) }},
	{Name: "30d_views", Label: "30d Views", Value: func(i issue.Issue) string { return nonZero(i.Views30d) }},
}

// ExtraFields returns the registry in display order.
func ExtraFields() []ExtraField {
	return append([]ExtraField(nil), extraFields...)
}

func FieldNames() []string {
	names := make([]string, len(extraFields))
	for index, field := range extraFields {
		names[index] = field.Name
	}
	return names
}

func LookupField(name string) (ExtraField, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, field := range extraFields {
		if field.Name == normalized {
			return field, true
		}
	}
	return ExtraField{}, false
}

// SelectFields resolves requested names in request order, dropping
// duplicates. all selects the whole registry.
func SelectFields(names []string, all bool) ([]ExtraField, error) {
	if all {
		return ExtraFields(), nil
	}

	var (
		selected []ExtraField
		unknown  []string
	)
	seen := map[string]struct{}{}
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			field, ok := LookupField(part)
			if !ok {
				unknown = append(unknown, strings.TrimSpace(part))
				continue
			}
			if _, dup := seen[field.Name]; dup {
				continue
			}
			seen[field.Name] = struct{}{}
			selected = append(selected, field)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown field(s) %s; available: %s", strings.Join(unknown, ", "), strings.Join(FieldNames(), ", "))
	}
	return selected, nil
}

// ColumnHeader turns a field name into a header: "merge_request" becomes
// "Merge Request".
func ColumnHeader(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for index, word := range words {
		words[index] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func joinList(values []string) string {
	return strings.Join(values, ", ")
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for index, id := range ids {
		parts[index] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

func optionalInt(value *int64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatInt(*value, 10)
}

func optionalNumber(value *float64) string {
	if value == nil {
		return ""
	}
	return issue.FormatNumber(*value)
}

func nonZero(value int64) string {
	if value == 0 {
		return ""
	}
	return strconv.FormatInt(value, 10)
}

func isoTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
