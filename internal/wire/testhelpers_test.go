package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type entryOptions struct {
	id            any
	title         any
	status        any
	priority      any
	issueType     any
	severity      any
	reporter      any
	owner         any
	ccs           any
	hotlists      any
	blocking      any
	customFields  any
	foundIn       any
	inProd        any
	collaborators any
	created       any
	modified      any
	stars         any
	comments      any
	tracker       any
	views         any
}

func makeIssueEntry(options entryOptions) []any {
	details := make([]any, 31)
	details[0] = 1363614
	details[1] = options.issueType
	details[2] = options.status
	details[3] = options.priority
	details[4] = options.severity
	details[5] = options.title
	details[6] = options.reporter
	details[9] = options.ccs
	details[13] = options.hotlists
	details[14] = options.customFields
	details[16] = options.foundIn
	details[19] = options.inProd
	details[21] = options.blocking
	details[30] = options.collaborators

	entry := make([]any, 48)
	entry[1] = options.id
	entry[2] = details
	entry[4] = options.created
	entry[5] = options.modified
	entry[9] = options.stars
	entry[11] = options.comments
	entry[13] = options.owner
	entry[41] = options.tracker
	entry[46] = options.views
	return entry
}

func defaultEntry(id int) []any {
	return makeIssueEntry(entryOptions{
		id:        id,
		title:     "Test issue",
		status:    1,
		priority:  3,
		issueType: 1,
		stars:     0,
		comments:  0,
		tracker:   157,
	})
}

func fieldEntry(id int, slot int, value any) []any {
	entry := make([]any, 10)
	entry[0] = id
	entry[slot] = value
	return entry
}

func mustJSON(t *testing.T, value any) []byte {
	t.Helper()

	encoded, err := json.Marshal(value)
	require.NoError(t, err)
	return encoded
}

// withPrefix prepends the anti-hijacking prefix the live API sends.
func withPrefix(body []byte) []byte {
	return append([]byte(")]}'\n"), body...)
}

func userRef(email string) []any {
	return []any{nil, email, 1}
}
