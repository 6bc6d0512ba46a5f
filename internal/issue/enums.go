package issue

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the tracker's numeric issue state. Codes outside the known set
// stay representable and render as UNKNOWN_<n>.
type Status int

const (
	StatusNew              Status = 1
	StatusAssigned         Status = 2
	StatusAccepted         Status = 3
	StatusFixed            Status = 4
	StatusVerified         Status = 5
	StatusNotReproducible  Status = 6
	StatusIntendedBehavior Status = 7
	StatusObsolete         Status = 8
	StatusInfeasible       Status = 9
	StatusDuplicate        Status = 10
)

var statusNames = map[Status]string{
	StatusNew:              "NEW",
	StatusAssigned:         "ASSIGNED",
	StatusAccepted:         "ACCEPTED",
	StatusFixed:            "FIXED",
	StatusVerified:         "VERIFIED",
	StatusNotReproducible:  "NOT_REPRODUCIBLE",
	StatusIntendedBehavior: "INTENDED_BEHAVIOR",
	StatusObsolete:         "OBSOLETE",
	StatusInfeasible:       "INFEASIBLE",
	StatusDuplicate:        "DUPLICATE",
}

const unknownStatusPrefix = "UNKNOWN_"

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return unknownStatusPrefix + strconv.Itoa(int(s))
}

func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// IsOpen is true for NEW, ASSIGNED and ACCEPTED.
func (s Status) IsOpen() bool {
	return s == StatusNew || s == StatusAssigned || s == StatusAccepted
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseStatus(name string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for code, known := range statusNames {
		if known == normalized {
			return code, nil
		}
	}
	if raw, ok := strings.CutPrefix(normalized, unknownStatusPrefix); ok {
		if code, err := strconv.Atoi(raw); err == nil {
			return Status(code), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// Priority is 0-indexed: P0 is the most urgent. The wire carries it 1-indexed.
type Priority int

const (
	PriorityP0 Priority = 0
	PriorityP1 Priority = 1
	PriorityP2 Priority = 2
	PriorityP3 Priority = 3
	PriorityP4 Priority = 4
)

func (p Priority) String() string {
	return "P" + strconv.Itoa(int(p))
}

func (p Priority) Known() bool {
	return p >= PriorityP0 && p <= PriorityP4
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func ParsePriority(name string) (Priority, error) {
	raw, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(name)), "P")
	if !ok {
		return 0, fmt.Errorf("unknown priority %q", name)
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unknown priority %q", name)
	}
	return Priority(code), nil
}

// IssueType is the tracker's issue category. The zero value means the entry
// carried no type.
type IssueType int

const (
	IssueTypeNone            IssueType = 0
	IssueTypeBug             IssueType = 1
	IssueTypeFeatureRequest  IssueType = 2
	IssueTypeCustomerIssue   IssueType = 3
	IssueTypeInternalCleanup IssueType = 4
	IssueTypeProcess         IssueType = 5
	IssueTypeVulnerability   IssueType = 6
)

var issueTypeNames = map[IssueType]string{
	IssueTypeBug:             "BUG",
	IssueTypeFeatureRequest:  "FEATURE_REQUEST",
	IssueTypeCustomerIssue:   "CUSTOMER_ISSUE",
	IssueTypeInternalCleanup: "INTERNAL_CLEANUP",
	IssueTypeProcess:         "PROCESS",
	IssueTypeVulnerability:   "VULNERABILITY",
}

const unknownTypePrefix = "TYPE_"

func (t IssueType) String() string {
	if t == IssueTypeNone {
		return ""
	}
	if name, ok := issueTypeNames[t]; ok {
		return name
	}
	return unknownTypePrefix + strconv.Itoa(int(t))
}

func (t IssueType) Known() bool {
	_, ok := issueTypeNames[t]
	return ok
}

func (t IssueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *IssueType) UnmarshalText(text []byte) error {
	parsed, err := ParseIssueType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseIssueType(name string) (IssueType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	if normalized == "" {
		return IssueTypeNone, nil
	}
	for code, known := range issueTypeNames {
		if known == normalized {
			return code, nil
		}
	}
	if raw, ok := strings.CutPrefix(normalized, unknownTypePrefix); ok {
		if code, err := strconv.Atoi(raw); err == nil {
			return IssueType(code), nil
		}
	}
	return IssueTypeNone, fmt.Errorf("unknown issue type %q", name)
}

// Severity mirrors Priority: S0 is the most severe and the wire is 1-indexed.
type Severity int

const (
	SeverityS0 Severity = 0
	SeverityS1 Severity = 1
	SeverityS2 Severity = 2
	SeverityS3 Severity = 3
	SeverityS4 Severity = 4
)

func (s Severity) String() string {
	return "S" + strconv.Itoa(int(s))
}

func (s Severity) Known() bool {
	return s >= SeverityS0 && s <= SeverityS4
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	raw, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(string(text))), "S")
	if !ok {
		return fmt.Errorf("unknown severity %q", text)
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("unknown severity %q", text)
	}
	*s = Severity(code)
	return nil
}
