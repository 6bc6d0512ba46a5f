package wire

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorCodeInvalidJSON   ErrorCode = "invalid_json"
	ErrorCodeIssueNotFound ErrorCode = "issue_not_found"
)

// ErrIssueNotFound matches, via errors.Is, a detail response whose payload
// holds no issue entry.
var ErrIssueNotFound = errors.New("issue entry not found")

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (err *Error) Error() string {
	if err == nil {
		return ""
	}

	base := err.Message
	if base == "" {
		base = "failed to decode tracker response"
	}
	if err.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, err.Err)
}

func (err *Error) Unwrap() error {
	if err == nil {
		return nil
	}
	return err.Err
}

func IsErrorCode(err error, code ErrorCode) bool {
	var wireErr *Error
	if !errors.As(err, &wireErr) {
		return false
	}
	return wireErr.Code == code
}
