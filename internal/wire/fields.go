package wire

import (
	"encoding/json"
	"maps"
	"strconv"

	"github.com/pweiskircher/buganize/internal/issue"
)

// FieldTable maps numeric custom-field IDs to canonical names.
type FieldTable map[int64]string

var defaultFieldTable = FieldTable{
	1225362: "backlog_rank",
	1223033: "build_number",
	1223031: "chromium_labels",
	1222907: "component_tags",
	1223136: "cve",
	1410892: "cwe_id",
	1223032: "design_doc",
	1223131: "design_summary",
	1225337: "estimated_days",
	1223081: "flaky_test",
	1223087: "merge",
	1223134: "merge_request",
	1223085: "milestone",
	1225154: "next_action",
	1223083: "notice",
	1223084: "os",
	1223086: "release_block",
	1223034: "respin",
	1300460: "irm_link",
	1223088: "security_release",
	1223135: "vrp_reward",
	1358989: "fixed_by_code_changes",
	1253656: "component_ancestor_tags",
	1544844: "introduced_in",
}

// DefaultFieldTable returns a copy of the well-known Chromium tracker fields.
func DefaultFieldTable() FieldTable {
	return maps.Clone(defaultFieldTable)
}

// Merge returns a new table with overrides applied on top of t.
func (t FieldTable) Merge(overrides FieldTable) FieldTable {
	merged := make(FieldTable, len(t)+len(overrides))
	maps.Copy(merged, t)
	maps.Copy(merged, overrides)
	return merged
}

func (t FieldTable) Name(id int64) string {
	if name, ok := t[id]; ok {
		return name
	}
	return "field_" + strconv.FormatInt(id, 10)
}

func (t FieldTable) nameFor(rawID any) string {
	if id, ok := asInt(rawID); ok {
		return t.Name(id)
	}
	return "field_" + stringify(rawID)
}

// Slots inside a custom-field entry.
const (
	fieldSlotID      = 0
	fieldSlotNumber  = 4
	fieldSlotLabels  = 5
	fieldSlotEnums   = 7
	fieldSlotDisplay = 9
	fieldEntryWidth  = 10
)

type fieldProbe func(entry []any) (issue.FieldValue, bool)

// fieldProbes run in priority order; the first match classifies the entry.
var fieldProbes = []fieldProbe{
	probeNumber,
	probeGroupedStrings(fieldSlotLabels),
	probeGroupedStrings(fieldSlotEnums),
	probeDisplayString,
}

func probeNumber(entry []any) (issue.FieldValue, bool) {
	number, ok := asNumber(SafeGet(entry, fieldSlotNumber))
	if !ok {
		return issue.FieldValue{}, false
	}
	return issue.NumberValue(number), true
}

func probeGroupedStrings(slot int) fieldProbe {
	return func(entry []any) (issue.FieldValue, bool) {
		groups, ok := asList(SafeGet(entry, slot))
		if !ok {
			return issue.FieldValue{}, false
		}

		flattened := make([]string, 0, len(groups))
		for _, group := range groups {
			switch typed := group.(type) {
			case []any:
				for _, item := range typed {
					if text, ok := item.(string); ok {
						flattened = append(flattened, text)
					}
				}
			case string:
				flattened = append(flattened, typed)
			}
		}
		if len(flattened) == 0 {
			return issue.FieldValue{}, false
		}
		return issue.ValuesValue(flattened), true
	}
}

func probeDisplayString(entry []any) (issue.FieldValue, bool) {
	text, ok := SafeGet(entry, fieldSlotDisplay).(string)
	if !ok || text == "" {
		return issue.FieldValue{}, false
	}
	return issue.TextValue(text), true
}

// DecodeCustomFields classifies every field entry and keys it by name. Later
// entries with the same name replace earlier ones. Entries that match no
// probe contribute nothing.
func DecodeCustomFields(raw any, table FieldTable) map[string]issue.FieldValue {
	entries, ok := asList(raw)
	if !ok || len(entries) == 0 {
		return map[string]issue.FieldValue{}
	}
	if table == nil {
		table = defaultFieldTable
	}

	decoded := make(map[string]issue.FieldValue, len(entries))
	for _, rawEntry := range entries {
		entry, ok := asList(rawEntry)
		if !ok || len(entry) == 0 {
			continue
		}

		name := table.nameFor(entry[fieldSlotID])
		for _, probe := range fieldProbes {
			if value, ok := probe(entry); ok {
				decoded[name] = value
				break
			}
		}
	}
	return decoded
}

// EncodeFieldEntry builds the wire entry that DecodeCustomFields classifies
// back into value.
func EncodeFieldEntry(id int64, value issue.FieldValue) []any {
	entry := make([]any, fieldEntryWidth)
	entry[fieldSlotID] = json.Number(strconv.FormatInt(id, 10))

	switch value.Kind {
	case issue.FieldKindNumber:
		entry[fieldSlotNumber] = json.Number(issue.FormatNumber(value.Number))
	case issue.FieldKindValues:
		group := make([]any, 0, len(value.Values))
		for _, item := range value.Values {
			group = append(group, item)
		}
		entry[fieldSlotLabels] = []any{group}
	case issue.FieldKindText:
		entry[fieldSlotDisplay] = value.Text
	}
	return entry
}
