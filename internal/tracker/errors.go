package tracker

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorCodeInvalidInput     ErrorCode = "invalid_input"
	ErrorCodeRequestEncode    ErrorCode = "request_encode_failed"
	ErrorCodeRequestBuild     ErrorCode = "request_build_failed"
	ErrorCodeTransport        ErrorCode = "transport_error"
	ErrorCodeUnexpectedStatus ErrorCode = "unexpected_status"
	ErrorCodeResponseDecode   ErrorCode = "response_decode_failed"
)

type Error struct {
	Code       ErrorCode
	StatusCode int
	Message    string
	Err        error
}

func (err *Error) Error() string {
	if err == nil {
		return ""
	}

	base := err.Message
	if base == "" {
		base = "tracker operation failed"
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
	var trackerErr *Error
	if !errors.As(err, &trackerErr) {
		return false
	}
	return trackerErr.Code == code
}
