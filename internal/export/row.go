package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Cell is one named value of a Row.
type Cell struct {
	Column string
	Value  any
}

// Row is an ordered record. Column order is preserved in every export
// format.
type Row []Cell

func (r Row) Columns() []string {
	columns := make([]string, len(r))
	for index, cell := range r {
		columns[index] = cell.Column
	}
	return columns
}

func (r Row) Get(column string) (any, bool) {
	for _, cell := range r {
		if cell.Column == column {
			return cell.Value, true
		}
	}
	return nil, false
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for index, cell := range r {
		if index > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cell.Column)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(cell.Value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cell.Column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Row) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, cell := range r {
		var value yaml.Node
		if err := value.Encode(cell.Value); err != nil {
			return nil, fmt.Errorf("column %q: %w", cell.Column, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: cell.Column},
			&value,
		)
	}
	return node, nil
}

func (c Cell) String() string {
	switch value := c.Value.(type) {
	case nil:
		return ""
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}
