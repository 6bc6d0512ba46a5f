package wire

import (
	"github.com/pweiskircher/buganize/internal/issue"
)

// Slots of one update entry.
const (
	updateSlotAuthor    = 0
	updateSlotTimestamp = 1
	updateSlotComment   = 2
	updateSlotSequence  = 3
	updateSlotChanges   = 5
	updateSlotIssueID   = 9
)

// Slots of the comment array embedded in an update.
const (
	commentSlotBody      = 0
	commentSlotAuthor    = 2
	commentSlotTimestamp = 3
	commentSlotSequence  = 6
)

func DecodeUpdate(entry []any) issue.Update {
	issueID := intOrZero(SafeGet(entry, updateSlotIssueID))

	update := issue.Update{
		IssueID:        issueID,
		SequenceNumber: optionalInt(SafeGet(entry, updateSlotSequence)),
		Author:         ParseEmail(SafeGet(entry, updateSlotAuthor)),
		Timestamp:      ParseTimestamp(SafeGet(entry, updateSlotTimestamp)),
		FieldChanges:   DecodeFieldChanges(SafeGet(entry, updateSlotChanges)),
	}
	if raw := SafeGet(entry, updateSlotComment); truthy(raw) {
		update.Comment = DecodeComment(raw, issueID)
	}
	return update
}

// DecodeComment returns nil unless raw is a non-empty list. The wire sequence
// number is 0-indexed; Comment.Number is one more.
func DecodeComment(raw any, issueID int64) *issue.Comment {
	list, ok := asList(raw)
	if !ok || len(list) == 0 {
		return nil
	}

	body, _ := SafeGet(list, commentSlotBody).(string)
	return &issue.Comment{
		IssueID:   issueID,
		Number:    intOrZero(SafeGet(list, commentSlotSequence)) + 1,
		Author:    ParseEmail(SafeGet(list, commentSlotAuthor)),
		Timestamp: ParseTimestamp(SafeGet(list, commentSlotTimestamp)),
		Body:      body,
	}
}

// DecodeFieldChanges reads only the field name of each change. Old and new
// values are left nil.
func DecodeFieldChanges(raw any) []issue.FieldChange {
	list, ok := asList(raw)
	if !ok {
		return []issue.FieldChange{}
	}

	changes := make([]issue.FieldChange, 0, len(list))
	for _, rawChange := range list {
		change, ok := asList(rawChange)
		if !ok || len(change) == 0 {
			continue
		}
		changes = append(changes, issue.FieldChange{Field: stringify(change[0])})
	}
	return changes
}
