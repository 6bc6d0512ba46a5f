package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Anti-hijacking prefixes, in the order they are tried. The second variant is
// a literal backslash followed by n.
var responsePrefixes = [][]byte{
	[]byte(")]}'\n"),
	[]byte(")]}'\\n"),
	[]byte(")]}'\r\n"),
}

// StripPrefix removes the first matching anti-hijacking prefix. A body
// without one is returned unchanged.
func StripPrefix(body []byte) []byte {
	for _, prefix := range responsePrefixes {
		if bytes.HasPrefix(body, prefix) {
			return body[len(prefix):]
		}
	}
	return body
}

// ParseBody strips the prefix and decodes the JSON document. Numbers are kept
// as json.Number so integers and floats stay distinguishable.
func ParseBody(body []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(StripPrefix(body)))
	decoder.UseNumber()

	var document any
	if err := decoder.Decode(&document); err != nil {
		return nil, &Error{Code: ErrorCodeInvalidJSON, Message: "failed to decode tracker response JSON", Err: err}
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected trailing JSON content")
		}
		return nil, &Error{Code: ErrorCodeInvalidJSON, Message: "failed to decode tracker response JSON", Err: err}
	}
	return document, nil
}
