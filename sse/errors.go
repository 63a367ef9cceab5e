package sse

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a completion failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotConfigured
	KindInputTooLong
	KindRateLimited
	KindHTTP
	KindBadContentType
	KindTimeout
	KindParse
	KindLengthExceeded
	KindCanceled
	KindUnavailable
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNotConfigured:
		return "NotConfigured"
	case KindInputTooLong:
		return "InputTooLong"
	case KindRateLimited:
		return "RateLimited"
	case KindHTTP:
		return "HttpError"
	case KindBadContentType:
		return "BadContentType"
	case KindTimeout:
		return "Timeout"
	case KindParse:
		return "ParseError"
	case KindLengthExceeded:
		return "LengthExceeded"
	case KindCanceled:
		return "Canceled"
	case KindUnavailable:
		return "Unavailable"
	case KindTransport:
		return "Transport"
	default:
		return "Unknown"
	}
}

// Error is returned by every Client operation. Error() yields the message
// shown to the user; the underlying cause, if any, is reachable through
// errors.Unwrap.
type Error struct {
	Kind   Kind
	Status int
	Limit  int
	Err    error
}

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrNotConfigured  = &Error{Kind: KindNotConfigured}
	ErrInputTooLong   = &Error{Kind: KindInputTooLong}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrHTTP           = &Error{Kind: KindHTTP}
	ErrBadContentType = &Error{Kind: KindBadContentType}
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrLengthExceeded = &Error{Kind: KindLengthExceeded}
	ErrCanceled       = &Error{Kind: KindCanceled}
	ErrUnavailable    = &Error{Kind: KindUnavailable}
	ErrTransport      = &Error{Kind: KindTransport}
)

var errMissingAPIKey = errors.New("api key not set")

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotConfigured:
		if errors.Is(e.Err, errMissingAPIKey) {
			return "API 키가 설정되지 않았습니다"
		}
		return "SSE 클라이언트가 설정되지 않았습니다"
	case KindInputTooLong:
		limit := e.Limit
		if limit == 0 {
			limit = DefaultMaxInputLength
		}
		return fmt.Sprintf("입력 텍스트가 너무 깁니다 (최대 %d자)", limit)
	case KindRateLimited:
		return "요청 한도를 초과했습니다. 잠시 후 다시 시도해주세요."
	case KindHTTP:
		return fmt.Sprintf("요청이 실패했습니다: %d", e.Status)
	case KindBadContentType:
		return "잘못된 응답 형식입니다"
	case KindTimeout:
		return "요청 시간이 초과되었습니다"
	case KindParse:
		return "응답을 해석할 수 없습니다"
	case KindLengthExceeded:
		return "응답이 너무 깁니다"
	case KindCanceled:
		return "요청이 취소되었습니다"
	case KindUnavailable:
		return "서비스를 일시적으로 사용할 수 없습니다. 잠시 후 다시 시도해주세요."
	case KindTransport:
		return "서버에 연결할 수 없습니다"
	default:
		return "알 수 없는 오류가 발생했습니다."
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AsError maps err onto an *Error for display. Context errors become
// KindCanceled or KindTimeout. Any other foreign error becomes KindUnknown
// with err kept as the cause.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Err: err}
	default:
		return &Error{Kind: KindUnknown, Err: err}
	}
}

// Retryable reports whether err is a failure worth retrying: the server
// could not be reached or answered with a 5xx.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindTransport:
		return true
	case KindHTTP:
		return e.Status >= 500
	default:
		return false
	}
}
