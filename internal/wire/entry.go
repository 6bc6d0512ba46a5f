package wire

import (
	"math"
	"strconv"
	"strings"

	"github.com/pweiskircher/buganize/internal/issue"
)

// Top-level slots of an issue entry.
const (
	entrySlotID           = 1
	entrySlotDetails      = 2
	entrySlotCreated      = 4
	entrySlotModified     = 5
	entrySlotVerified     = 6
	entrySlotStars        = 9
	entrySlotComments     = 11
	entrySlotOwner        = 13
	entrySlotTracker      = 41
	entrySlotViews        = 46
	entrySlotLastModifier = 47
)

// Slots of the details array nested at entrySlotDetails.
const (
	detailSlotComponent     = 0
	detailSlotType          = 1
	detailSlotStatus        = 2
	detailSlotPriority      = 3
	detailSlotSeverity      = 4
	detailSlotTitle         = 5
	detailSlotReporter      = 6
	detailSlotVerifier      = 7
	detailSlotCCs           = 9
	detailSlotHotlists      = 13
	detailSlotCustomFields  = 14
	detailSlotFoundIn       = 16
	detailSlotInProd        = 19
	detailSlotBlocking      = 21
	detailSlotCollaborators = 30
)

// Decoder turns tracker responses into issue records. The zero value uses
// the default field table.
type Decoder struct {
	Fields FieldTable
}

func NewDecoder(fields FieldTable) *Decoder {
	if fields == nil {
		fields = DefaultFieldTable()
	}
	return &Decoder{Fields: fields}
}

func (d *Decoder) fieldTable() FieldTable {
	if d == nil || d.Fields == nil {
		return defaultFieldTable
	}
	return d.Fields
}

// DecodeIssueEntry maps one positional issue entry to an Issue. Missing or
// mistyped slots fall back to per-field defaults; it never fails.
func (d *Decoder) DecodeIssueEntry(entry []any) issue.Issue {
	details, _ := asList(SafeGet(entry, entrySlotDetails))

	id, _ := asInt(SafeGet(entry, entrySlotID))
	title, _ := SafeGet(details, detailSlotTitle).(string)

	decoded := issue.Issue{
		ID:           id,
		Title:        title,
		Status:       decodeStatus(SafeGet(details, detailSlotStatus)),
		Priority:     decodePriority(SafeGet(details, detailSlotPriority)),
		Type:         decodeIssueType(SafeGet(details, detailSlotType)),
		Severity:     decodeSeverity(SafeGet(details, detailSlotSeverity)),
		Reporter:     ParseEmail(SafeGet(details, detailSlotReporter)),
		Owner:        ParseEmail(SafeGet(entry, entrySlotOwner)),
		Verifier:     ParseEmail(SafeGet(details, detailSlotVerifier)),
		LastModifier: ParseEmail(SafeGet(entry, entrySlotLastModifier)),
		ComponentID:  optionalInt(SafeGet(details, detailSlotComponent)),
		TrackerID:    optionalInt(SafeGet(entry, entrySlotTracker)),
		CCs:          ParseCCList(SafeGet(details, detailSlotCCs)),
		CreatedAt:    ParseTimestamp(SafeGet(entry, entrySlotCreated)),
		ModifiedAt:   ParseTimestamp(SafeGet(entry, entrySlotModified)),
		VerifiedAt:   ParseTimestamp(SafeGet(entry, entrySlotVerified)),
		CommentCount: intOrZero(SafeGet(entry, entrySlotComments)),
		StarCount:    intOrZero(SafeGet(entry, entrySlotStars)),

		HotlistIDs:       ParseIntList(SafeGet(details, detailSlotHotlists)),
		BlockingIssueIDs: ParseIntList(SafeGet(details, detailSlotBlocking)),
		Collaborators:    ParseCCList(SafeGet(details, detailSlotCollaborators)),
		FoundIn:          stringItems(SafeGet(details, detailSlotFoundIn)),
		InProd:           optionalBool(SafeGet(details, detailSlotInProd)),
		Views24h:         intOrZero(SafeGet(entry, entrySlotViews, 0)),
		Views7d:          intOrZero(SafeGet(entry, entrySlotViews, 1)),
		Views30d:         intOrZero(SafeGet(entry, entrySlotViews, 2)),
	}

	fields := customFieldSet(DecodeCustomFields(SafeGet(details, detailSlotCustomFields), d.fieldTable()))
	fields.promote(&decoded)
	return decoded
}

func decodeStatus(raw any) issue.Status {
	code, ok := asInt(raw)
	if !ok || code == 0 {
		return issue.StatusNew
	}
	return issue.Status(code)
}

// decodePriority converts the 1-indexed wire code. A missing or non-integer
// code means P2.
func decodePriority(raw any) issue.Priority {
	code, ok := asInt(raw)
	if !ok {
		return issue.PriorityP2
	}
	return issue.Priority(code - 1)
}

func decodeIssueType(raw any) issue.IssueType {
	code, ok := asInt(raw)
	if !ok {
		return issue.IssueTypeNone
	}
	return issue.IssueType(code)
}

func decodeSeverity(raw any) *issue.Severity {
	code, ok := asInt(raw)
	if !ok {
		return nil
	}
	severity := issue.Severity(code - 1)
	return &severity
}

func intOrZero(raw any) int64 {
	value, _ := asInt(raw)
	return value
}

func optionalBool(raw any) *bool {
	value, ok := raw.(bool)
	if !ok {
		return nil
	}
	return &value
}

func stringItems(raw any) []string {
	list, ok := asList(raw)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(list))
	for _, item := range list {
		if text, ok := item.(string); ok {
			values = append(values, text)
		}
	}
	return values
}

// customFieldSet is the decoded name to value mapping that known names are
// taken out of. What remains becomes Issue.CustomFields.
type customFieldSet map[string]issue.FieldValue

func (f customFieldSet) promote(target *issue.Issue) {
	target.ComponentTags = f.takeStrings("component_tags")
	target.ComponentAncestorTags = f.takeStrings("component_ancestor_tags")
	target.Labels = append(f.takeStrings("chromium_labels"), f.takeStrings("labels")...)
	target.OS = f.takeStrings("os")
	target.Milestone = f.takeStrings("milestone")
	target.Merge = f.takeStrings("merge")
	target.MergeRequest = f.takeStrings("merge_request")
	target.ReleaseBlock = f.takeStrings("release_block")
	target.CVE = f.takeStrings("cve")
	target.SecurityRelease = f.takeStrings("security_release")
	target.FixedByCodeChanges = f.takeStrings("fixed_by_code_changes")
	target.Respin = f.takeStrings("respin")

	target.CWEID = f.takeFloat("cwe_id")
	target.VRPReward = f.takeFloat("vrp_reward")
	target.EstimatedDays = f.takeFloat("estimated_days")
	target.BacklogRank = f.takeFloat("backlog_rank")

	target.BuildNumber = f.takeString("build_number")
	target.FlakyTest = f.takeString("flaky_test")
	target.NextAction = f.takeString("next_action")
	target.Notice = f.takeString("notice")
	target.IntroducedIn = f.takeString("introduced_in")
	target.IRMLink = f.takeString("irm_link")
	target.DesignDoc = f.takeString("design_doc")
	target.DesignSummary = f.takeString("design_summary")

	if len(f) > 0 {
		target.CustomFields = map[string]issue.FieldValue(f)
	}
}

func (f customFieldSet) take(name string) (issue.FieldValue, bool) {
	value, ok := f[name]
	if ok {
		delete(f, name)
	}
	return value, ok
}

// takeStrings keeps lists as they are and splits text on commas.
func (f customFieldSet) takeStrings(name string) []string {
	value, ok := f.take(name)
	if !ok {
		return nil
	}

	switch value.Kind {
	case issue.FieldKindValues:
		return append([]string(nil), value.Values...)
	case issue.FieldKindText:
		parts := strings.Split(value.Text, ",")
		values := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				values = append(values, trimmed)
			}
		}
		return values
	default:
		return nil
	}
}

// takeString keeps text as is and joins lists with ", ". Numbers use
// issue.FormatNumber, so an integral wire value such as 12.0 reads "12".
func (f customFieldSet) takeString(name string) string {
	value, ok := f.take(name)
	if !ok {
		return ""
	}
	return value.String()
}

// takeFloat accepts numbers and numeric text. NaN and infinities are dropped
// so the issue stays JSON-encodable.
func (f customFieldSet) takeFloat(name string) *float64 {
	value, ok := f.take(name)
	if !ok {
		return nil
	}

	var number float64
	switch value.Kind {
	case issue.FieldKindNumber:
		number = value.Number
	case issue.FieldKindText:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value.Text), 64)
		if err != nil {
			return nil
		}
		number = parsed
	default:
		return nil
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return nil
	}
	return &number
}
