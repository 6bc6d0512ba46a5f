package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeComment(body string, author string, seconds int, sequence int) []any {
	comment := make([]any, 18)
	comment[0] = body
	comment[2] = userRef(author)
	comment[3] = []any{seconds, 0}
	comment[5] = 40060244
	comment[6] = sequence
	return comment
}

func makeUpdate(author string, seconds int, comment any, sequence int, changes any) []any {
	update := make([]any, 10)
	update[0] = userRef(author)
	update[1] = []any{seconds}
	update[2] = comment
	update[3] = sequence
	update[5] = changes
	update[9] = 40060244
	return update
}

func TestDecodeUpdatesOrderingAndComments(t *testing.T) {
	t.Parallel()

	newer := makeUpdate("bob@test.com", 1700000100, makeComment("newer", "bob@test.com", 1700000100, 1), 2, nil)
	older := makeUpdate("alice@test.com", 1700000000, makeComment("older", "alice@test.com", 1700000000, 0), 1, nil)
	envelope := []any{[]any{"b.ListIssueUpdatesResponse", []any{[]any{newer, older}, nil, 2}}}

	result, err := NewDecoder(nil).DecodeUpdates(withPrefix(mustJSON(t, envelope)))
	require.NoError(t, err)

	require.Len(t, result.Updates, 2)
	assert.Equal(t, "newer", result.Updates[0].Comment.Body)
	assert.Equal(t, "older", result.Updates[1].Comment.Body)
	assert.Equal(t, int64(2), result.TotalCount)
	assert.False(t, result.HasMore())

	comments := result.Comments()
	require.Len(t, comments, 2)
	assert.Equal(t, "older", comments[0].Body)
	assert.Equal(t, "newer", comments[1].Body)
	assert.Equal(t, int64(1), comments[0].Number)
	assert.Equal(t, int64(2), comments[1].Number)
	assert.True(t, comments[0].Timestamp.Before(*comments[1].Timestamp))
}

func TestDecodeUpdatesFieldChangeOnlyUpdates(t *testing.T) {
	t.Parallel()

	changes := []any{
		[]any{"status", nil, []any{"old"}, []any{"new"}},
		[]any{12345},
		[]any{},
		"junk",
	}
	fieldOnly := makeUpdate("bot@test.com", 1700000200, nil, 3, changes)
	withComment := makeUpdate("alice@test.com", 1700000000, makeComment("hello", "alice@test.com", 1700000000, 0), 1, nil)
	emptyComment := makeUpdate("carol@test.com", 1700000050, []any{}, 2, nil)
	envelope := []any{[]any{"b.ListIssueUpdatesResponse", []any{[]any{fieldOnly, emptyComment, withComment, "junk"}, "page-2", 3}}}

	result, err := NewDecoder(nil).DecodeUpdates(mustJSON(t, envelope))
	require.NoError(t, err)

	require.Len(t, result.Updates, 3)
	assert.Nil(t, result.Updates[0].Comment)
	require.Len(t, result.Updates[0].FieldChanges, 2)
	assert.Equal(t, "status", result.Updates[0].FieldChanges[0].Field)
	assert.Equal(t, "12345", result.Updates[0].FieldChanges[1].Field)
	assert.Nil(t, result.Updates[0].FieldChanges[0].OldValue)
	assert.Nil(t, result.Updates[0].FieldChanges[0].NewValue)
	assert.Nil(t, result.Updates[1].Comment)
	assert.NotNil(t, result.Updates[2].FieldChanges)
	assert.Empty(t, result.Updates[2].FieldChanges)

	require.NotNil(t, result.Updates[0].SequenceNumber)
	assert.Equal(t, int64(3), *result.Updates[0].SequenceNumber)
	assert.Equal(t, "bot@test.com", result.Updates[0].Author)
	assert.Equal(t, int64(40060244), result.Updates[0].IssueID)

	assert.True(t, result.HasMore())
	assert.Equal(t, "page-2", result.NextPageToken)
	assert.Len(t, result.Comments(), 1)
}

func TestDecodeCommentNumbering(t *testing.T) {
	t.Parallel()

	comment := DecodeComment([]any{"body", nil, userRef("a@test.com"), []any{json.Number("1700000000")}, nil, nil, json.Number("4")}, 99)
	require.NotNil(t, comment)
	assert.Equal(t, int64(5), comment.Number)
	assert.Equal(t, int64(99), comment.IssueID)
	assert.Equal(t, "a@test.com", comment.Author)
	require.NotNil(t, comment.Timestamp)

	comment = DecodeComment([]any{nil}, 1)
	require.NotNil(t, comment)
	assert.Equal(t, "", comment.Body)
	assert.Equal(t, int64(1), comment.Number)
	assert.Nil(t, comment.Timestamp)

	assert.Nil(t, DecodeComment(nil, 1))
	assert.Nil(t, DecodeComment("text", 1))
	assert.Nil(t, DecodeComment([]any{}, 1))
}

func TestDecodeUpdatesMissingIssueIDDefaultsToZero(t *testing.T) {
	t.Parallel()

	update := DecodeUpdate([]any{nil, nil, []any{"orphan"}})
	assert.Zero(t, update.IssueID)
	require.NotNil(t, update.Comment)
	assert.Zero(t, update.Comment.IssueID)
	assert.Nil(t, update.SequenceNumber)
}

func TestDecodeUpdatesInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := NewDecoder(nil).DecodeUpdates([]byte("{"))
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeInvalidJSON))
}
