package issue

import (
	"strconv"
	"time"
)

const URLPrefix = "https://issuetracker.google.com/issues/"

// Issue is one tracker issue reconstructed from a wire entry.
type Issue struct {
	ID           int64      `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Status       Status     `json:"status" yaml:"status"`
	Priority     Priority   `json:"priority" yaml:"priority"`
	Type         IssueType  `json:"issue_type,omitempty" yaml:"issue_type,omitempty"`
	Severity     *Severity  `json:"severity,omitempty" yaml:"severity,omitempty"`
	Reporter     string     `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	Owner        string     `json:"owner,omitempty" yaml:"owner,omitempty"`
	Verifier     string     `json:"verifier,omitempty" yaml:"verifier,omitempty"`
	LastModifier string     `json:"last_modifier,omitempty" yaml:"last_modifier,omitempty"`
	ComponentID  *int64     `json:"component_id,omitempty" yaml:"component_id,omitempty"`
	TrackerID    *int64     `json:"tracker_id,omitempty" yaml:"tracker_id,omitempty"`
	CCs          []string   `json:"ccs,omitempty" yaml:"ccs,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ModifiedAt   *time.Time `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty" yaml:"verified_at,omitempty"`
	CommentCount int64      `json:"comment_count" yaml:"comment_count"`
	StarCount    int64      `json:"star_count" yaml:"star_count"`

	HotlistIDs       []int64  `json:"hotlist_ids,omitempty" yaml:"hotlist_ids,omitempty"`
	BlockingIssueIDs []int64  `json:"blocking_issue_ids,omitempty" yaml:"blocking_issue_ids,omitempty"`
	Collaborators    []string `json:"collaborators,omitempty" yaml:"collaborators,omitempty"`
	FoundIn          []string `json:"found_in,omitempty" yaml:"found_in,omitempty"`
	InProd           *bool    `json:"in_prod,omitempty" yaml:"in_prod,omitempty"`
	Views24h         int64    `json:"views_24h" yaml:"views_24h"`
	Views7d          int64    `json:"views_7d" yaml:"views_7d"`
	Views30d         int64    `json:"views_30d" yaml:"views_30d"`

	ComponentTags         []string `json:"component_tags,omitempty" yaml:"component_tags,omitempty"`
	ComponentAncestorTags []string `json:"component_ancestor_tags,omitempty" yaml:"component_ancestor_tags,omitempty"`
	Labels                []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	OS                    []string `json:"os,omitempty" yaml:"os,omitempty"`
	Milestone             []string `json:"milestone,omitempty" yaml:"milestone,omitempty"`
	Merge                 []string `json:"merge,omitempty" yaml:"merge,omitempty"`
	MergeRequest          []string `json:"merge_request,omitempty" yaml:"merge_request,omitempty"`
	ReleaseBlock          []string `json:"release_block,omitempty" yaml:"release_block,omitempty"`
	CVE                   []string `json:"cve,omitempty" yaml:"cve,omitempty"`
	SecurityRelease       []string `json:"security_release,omitempty" yaml:"security_release,omitempty"`
	FixedByCodeChanges    []string `json:"fixed_by_code_changes,omitempty" yaml:"fixed_by_code_changes,omitempty"`
	Respin                []string `json:"respin,omitempty" yaml:"respin,omitempty"`

	CWEID         *float64 `json:"cwe_id,omitempty" yaml:"cwe_id,omitempty"`
	VRPReward     *float64 `json:"vrp_reward,omitempty" yaml:"vrp_reward,omitempty"`
	EstimatedDays *float64 `json:"estimated_days,omitempty" yaml:"estimated_days,omitempty"`
	BacklogRank   *float64 `json:"backlog_rank,omitempty" yaml:"backlog_rank,omitempty"`

	BuildNumber   string `json:"build_number,omitempty" yaml:"build_number,omitempty"`
	FlakyTest     string `json:"flaky_test,omitempty" yaml:"flaky_test,omitempty"`
	NextAction    string `json:"next_action,omitempty" yaml:"next_action,omitempty"`
	Notice        string `json:"notice,omitempty" yaml:"notice,omitempty"`
	IntroducedIn  string `json:"introduced_in,omitempty" yaml:"introduced_in,omitempty"`
	IRMLink       string `json:"irm_link,omitempty" yaml:"irm_link,omitempty"`
	DesignDoc     string `json:"design_doc,omitempty" yaml:"design_doc,omitempty"`
	DesignSummary string `json:"design_summary,omitempty" yaml:"design_summary,omitempty"`

	// CustomFields holds every decoded custom field that has no dedicated
	// attribute above. Promoted names never appear here.
	CustomFields map[string]FieldValue `json:"custom_fields,omitempty" yaml:"custom_fields,omitempty"`
}

// URL is the public issue page derived from the ID.
func (i Issue) URL() string {
	return URLPrefix + strconv.FormatInt(i.ID, 10)
}

// HasType reports whether the wire entry carried a non-zero issue type.
func (i Issue) HasType() bool {
	return i.Type != IssueTypeNone
}

type Comment struct {
	IssueID int64 `json:"issue_id" yaml:"issue_id"`
	// Number is 1-indexed; the wire sequence number is 0-indexed.
	Number    int64      `json:"comment_number" yaml:"comment_number"`
	Author    string     `json:"author,omitempty" yaml:"author,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Body      string     `json:"body" yaml:"body"`
}

// FieldChange names one field touched by an update. Old and new values are
// not reliably present on the wire and are usually nil.
type FieldChange struct {
	Field    string  `json:"field" yaml:"field"`
	OldValue *string `json:"old_value,omitempty" yaml:"old_value,omitempty"`
	NewValue *string `json:"new_value,omitempty" yaml:"new_value,omitempty"`
}

type Update struct {
	IssueID        int64         `json:"issue_id" yaml:"issue_id"`
	SequenceNumber *int64        `json:"sequence_number,omitempty" yaml:"sequence_number,omitempty"`
	Author         string        `json:"author,omitempty" yaml:"author,omitempty"`
	Timestamp      *time.Time    `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Comment        *Comment      `json:"comment,omitempty" yaml:"comment,omitempty"`
	FieldChanges   []FieldChange `json:"field_changes" yaml:"field_changes"`
}

// UpdatesResult keeps updates in the order the API returned them, newest first.
type UpdatesResult struct {
	Updates       []Update `json:"updates" yaml:"updates"`
	TotalCount    int64    `json:"total_count" yaml:"total_count"`
	NextPageToken string   `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
}

// Comments returns the comment-bearing updates oldest first.
func (r UpdatesResult) Comments() []Comment {
	comments := make([]Comment, 0, len(r.Updates))
	for i := len(r.Updates) - 1; i >= 0; i-- {
		if r.Updates[i].Comment == nil {
			continue
		}
		comments = append(comments, *r.Updates[i].Comment)
	}
	return comments
}

func (r UpdatesResult) HasMore() bool {
	return r.NextPageToken != ""
}

// SearchResult is one page of search hits. Query and PageSize are carried so
// the next page can be requested without the caller repeating them.
type SearchResult struct {
	Issues        []Issue `json:"issues" yaml:"issues"`
	TotalCount    int64   `json:"total_count" yaml:"total_count"`
	NextPageToken string  `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
	Query         string  `json:"query" yaml:"query"`
	PageSize      int     `json:"page_size" yaml:"page_size"`
}

func (r SearchResult) HasMore() bool {
	return r.NextPageToken != ""
}
