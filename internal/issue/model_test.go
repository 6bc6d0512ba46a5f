package issue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusNamesAndUnknownCodes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NEW", StatusNew.String())
	assert.Equal(t, "NOT_REPRODUCIBLE", StatusNotReproducible.String())
	assert.Equal(t, "UNKNOWN_42", Status(42).String())
	assert.False(t, Status(42).Known())
	assert.Equal(t, 42, int(Status(42)))

	for _, code := range []Status{StatusNew, StatusAssigned, StatusAccepted} {
		assert.True(t, code.IsOpen(), code.String())
	}
	for _, code := range []Status{StatusFixed, StatusVerified, StatusDuplicate, Status(99)} {
		assert.False(t, code.IsOpen(), code.String())
	}
}

func TestUnknownCodesRoundTripThroughText(t *testing.T) {
	t.Parallel()

	for _, code := range []int{0, 11, 77, -3} {
		status := Status(code)
		text, err := status.MarshalText()
		require.NoError(t, err)

		var decoded Status
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, status, decoded)

		priority := Priority(code)
		text, err = priority.MarshalText()
		require.NoError(t, err)

		var decodedPriority Priority
		require.NoError(t, decodedPriority.UnmarshalText(text))
		assert.Equal(t, priority, decodedPriority)
	}

	issueType := IssueType(12)
	assert.Equal(t, "TYPE_12", issueType.String())
	parsed, err := ParseIssueType("TYPE_12")
	require.NoError(t, err)
	assert.Equal(t, issueType, parsed)
}

func TestPriorityAndSeverityNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "P0", PriorityP0.String())
	assert.Equal(t, "P4", PriorityP4.String())
	assert.Equal(t, "P7", Priority(7).String())
	assert.False(t, Priority(7).Known())
	assert.Equal(t, "S2", SeverityS2.String())
	assert.Equal(t, "S9", Severity(9).String())
}

func TestIssueTypeNoneRendersEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", IssueTypeNone.String())
	assert.Equal(t, "VULNERABILITY", IssueTypeVulnerability.String())
	assert.False(t, Issue{}.HasType())
}

func TestIssueURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://issuetracker.google.com/issues/12345", Issue{ID: 12345}.URL())
}

func TestCommentsReverseCommentBearingUpdates(t *testing.T) {
	t.Parallel()

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	result := UpdatesResult{
		Updates: []Update{
			{IssueID: 1, Timestamp: &newer, Comment: &Comment{IssueID: 1, Number: 3, Body: "newer", Timestamp: &newer}},
			{IssueID: 1, FieldChanges: []FieldChange{{Field: "status"}}},
			{IssueID: 1, Timestamp: &older, Comment: &Comment{IssueID: 1, Number: 1, Body: "older", Timestamp: &older}},
		},
		TotalCount: 3,
	}

	comments := result.Comments()
	require.Len(t, comments, 2)
	assert.Equal(t, "older", comments[0].Body)
	assert.Equal(t, "newer", comments[1].Body)
	assert.False(t, comments[1].Timestamp.Before(*comments[0].Timestamp))
	assert.Len(t, result.Updates, 3)
	assert.Equal(t, "newer", result.Updates[0].Comment.Body)
	assert.False(t, result.HasMore())
}

func TestHasMoreFollowsToken(t *testing.T) {
	t.Parallel()

	assert.True(t, SearchResult{NextPageToken: "abc"}.HasMore())
	assert.False(t, SearchResult{}.HasMore())
	assert.True(t, UpdatesResult{NextPageToken: "abc"}.HasMore())
}

func TestFieldValueJSONShapes(t *testing.T) {
	t.Parallel()

	encoded, err := json.Marshal(map[string]FieldValue{
		"n": NumberValue(5),
		"v": ValuesValue([]string{"a", "b"}),
		"s": TextValue("x"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":5,"v":["a","b"],"s":"x"}`, string(encoded))

	var decoded map[string]FieldValue
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, FieldKindNumber, decoded["n"].Kind)
	assert.Equal(t, []string{"a", "b"}, decoded["v"].Values)
	assert.Equal(t, "x", decoded["s"].Text)
}

func TestFieldValueString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "5", NumberValue(5).String())
	assert.Equal(t, "2.5", NumberValue(2.5).String())
	assert.Equal(t, "a, b", ValuesValue([]string{"a", "b"}).String())
}

func TestIssueJSONUsesEnumNames(t *testing.T) {
	t.Parallel()

	severity := SeverityS1
	encoded, err := json.Marshal(Issue{ID: 1, Status: StatusFixed, Priority: PriorityP1, Type: IssueTypeBug, Severity: &severity})
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(encoded, &generic))
	assert.Equal(t, "FIXED", generic["status"])
	assert.Equal(t, "P1", generic["priority"])
	assert.Equal(t, "BUG", generic["issue_type"])
	assert.Equal(t, "S1", generic["severity"])
}
