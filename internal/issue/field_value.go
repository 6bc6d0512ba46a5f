package issue

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type FieldKind int

const (
	FieldKindNumber FieldKind = iota + 1
	FieldKindValues
	FieldKindText
)

func (k FieldKind) String() string {
	switch k {
	case FieldKindNumber:
		return "number"
	case FieldKindValues:
		return "values"
	case FieldKindText:
		return "text"
	default:
		return "unset"
	}
}

// FieldValue is one classified custom-field value. Exactly one of Number,
// Values or Text is meaningful, selected by Kind.
type FieldValue struct {
	Kind   FieldKind
	Number float64
	Values []string
	Text   string
}

func NumberValue(number float64) FieldValue {
	return FieldValue{Kind: FieldKindNumber, Number: number}
}

func ValuesValue(values []string) FieldValue {
	return FieldValue{Kind: FieldKindValues, Values: append([]string(nil), values...)}
}

func TextValue(text string) FieldValue {
	return FieldValue{Kind: FieldKindText, Text: text}
}

func (v FieldValue) String() string {
	switch v.Kind {
	case FieldKindNumber:
		return FormatNumber(v.Number)
	case FieldKindValues:
		return strings.Join(v.Values, ", ")
	case FieldKindText:
		return v.Text
	default:
		return ""
	}
}

// FormatNumber prints integral values without a fractional part.
func FormatNumber(number float64) string {
	return strconv.FormatFloat(number, 'f', -1, 64)
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case FieldKindNumber:
		return json.Marshal(v.Number)
	case FieldKindValues:
		values := v.Values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	case FieldKindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch typed := raw.(type) {
	case nil:
		*v = FieldValue{}
	case float64:
		*v = NumberValue(typed)
	case string:
		*v = TextValue(typed)
	case []any:
		values := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				return errors.New("custom field list must contain only strings")
			}
			values = append(values, text)
		}
		*v = ValuesValue(values)
	default:
		return errors.New("unsupported custom field value")
	}
	return nil
}

func (v FieldValue) MarshalYAML() (any, error) {
	switch v.Kind {
	case FieldKindNumber:
		return v.Number, nil
	case FieldKindValues:
		return v.Values, nil
	case FieldKindText:
		return v.Text, nil
	default:
		return nil, nil
	}
}
