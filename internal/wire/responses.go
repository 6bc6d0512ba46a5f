package wire

import (
	"github.com/pweiskircher/buganize/internal/issue"
)

// Envelope paths. Every response is wrapped as [[<type tag>, ...]].
const (
	searchSlotResult = 6
	detailSlotResult = 1
	batchSlotResult  = 2
	updateSlotResult = 1

	resultSlotItems = 0
	resultSlotToken = 1
	resultSlotTotal = 2
)

// DecodeSearch decodes an issue-list response. query and pageSize are carried
// onto the result so the next page can be requested from it.
func (d *Decoder) DecodeSearch(body []byte, query string, pageSize int) (issue.SearchResult, error) {
	document, err := ParseBody(body)
	if err != nil {
		return issue.SearchResult{}, err
	}

	block := SafeGet(document, 0, searchSlotResult)
	entries, _ := asList(SafeGet(block, resultSlotItems))

	issues := make([]issue.Issue, 0, len(entries))
	for _, raw := range entries {
		entry, ok := asList(raw)
		if !ok {
			continue
		}
		issues = append(issues, d.DecodeIssueEntry(entry))
	}

	return issue.SearchResult{
		Issues:        issues,
		TotalCount:    intOrZero(SafeGet(block, resultSlotTotal)),
		NextPageToken: pageToken(SafeGet(block, resultSlotToken)),
		Query:         query,
		PageSize:      pageSize,
	}, nil
}

// DecodeIssueDetail decodes a single-issue response. The payload length
// varies, so the issue entry is found by shape: the last list whose second
// slot is an integer. Other integer-bearing lists in the payload would be
// mistaken for it.
func (d *Decoder) DecodeIssueDetail(body []byte) (issue.Issue, error) {
	document, err := ParseBody(body)
	if err != nil {
		return issue.Issue{}, err
	}

	payload, _ := asList(SafeGet(document, 0, detailSlotResult))
	for i := len(payload) - 1; i >= 0; i-- {
		if entry, ok := issueEntryShape(payload[i]); ok {
			return d.DecodeIssueEntry(entry), nil
		}
	}

	return issue.Issue{}, &Error{
		Code:    ErrorCodeIssueNotFound,
		Message: "failed to locate issue in getIssue response",
		Err:     ErrIssueNotFound,
	}
}

// DecodeBatch decodes a batch response, skipping anything that is not an
// issue entry.
func (d *Decoder) DecodeBatch(body []byte) ([]issue.Issue, error) {
	document, err := ParseBody(body)
	if err != nil {
		return nil, err
	}

	entries, _ := asList(SafeGet(document, 0, batchSlotResult, 0))
	issues := make([]issue.Issue, 0, len(entries))
	for _, raw := range entries {
		entry, ok := issueEntryShape(raw)
		if !ok {
			continue
		}
		issues = append(issues, d.DecodeIssueEntry(entry))
	}
	return issues, nil
}

// DecodeUpdates decodes an updates response, preserving the API's
// newest-first order.
func (d *Decoder) DecodeUpdates(body []byte) (issue.UpdatesResult, error) {
	document, err := ParseBody(body)
	if err != nil {
		return issue.UpdatesResult{}, err
	}

	block := SafeGet(document, 0, updateSlotResult)
	entries, _ := asList(SafeGet(block, resultSlotItems))

	updates := make([]issue.Update, 0, len(entries))
	for _, raw := range entries {
		entry, ok := asList(raw)
		if !ok {
			continue
		}
		updates = append(updates, DecodeUpdate(entry))
	}

	return issue.UpdatesResult{
		Updates:       updates,
		TotalCount:    intOrZero(SafeGet(block, resultSlotTotal)),
		NextPageToken: pageToken(SafeGet(block, resultSlotToken)),
	}, nil
}

func issueEntryShape(raw any) ([]any, bool) {
	entry, ok := asList(raw)
	if !ok {
		return nil, false
	}
	if _, ok := asInt(SafeGet(entry, entrySlotID)); !ok {
		return nil, false
	}
	return entry, true
}

// pageToken treats null, empty and non-string tokens as "no more pages".
func pageToken(raw any) string {
	if !truthy(raw) {
		return ""
	}
	return stringify(raw)
}
