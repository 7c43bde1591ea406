package service

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind int

const (
	KindInput Kind = iota + 1
	KindAdmission
	KindResource
	KindDispatch
	KindExtraction
	KindPolicy
	KindDelivery
)

var kindNames = map[Kind]string{
	KindInput:      "input",
	KindAdmission:  "admission",
	KindResource:   "resource",
	KindDispatch:   "dispatch",
	KindExtraction: "extraction",
	KindPolicy:     "policy",
	KindDelivery:   "delivery",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// 错误定义
var (
	ErrEmptyInput          = errors.New("empty input")
	ErrRateLimited         = errors.New("rate limited")
	ErrBusy                = errors.New("too many downloads in progress")
	ErrInsufficientSpace   = errors.New("insufficient disk space")
	ErrDiskCheckFailed     = errors.New("disk check failed")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrMissingOutput       = errors.New("missing output")
	ErrOversize            = errors.New("file too large")
	ErrDeliveryFailed      = errors.New("delivery failed")
)

var reasonKinds = map[error]Kind{
	ErrEmptyInput:          KindInput,
	ErrRateLimited:         KindAdmission,
	ErrBusy:                KindAdmission,
	ErrInsufficientSpace:   KindResource,
	ErrDiskCheckFailed:     KindResource,
	ErrStorageUnavailable:  KindResource,
	ErrUnsupportedPlatform: KindDispatch,
	ErrExtractionFailed:    KindExtraction,
	ErrMissingOutput:       KindExtraction,
	ErrOversize:            KindPolicy,
	ErrDeliveryFailed:      KindDelivery,
}

var reasonCodes = map[error]string{
	ErrEmptyInput:          "empty_input",
	ErrRateLimited:         "rate_limited",
	ErrBusy:                "busy",
	ErrInsufficientSpace:   "insufficient_space",
	ErrDiskCheckFailed:     "disk_check_failed",
	ErrStorageUnavailable:  "storage_unavailable",
	ErrUnsupportedPlatform: "unsupported_platform",
	ErrExtractionFailed:    "extraction_failed",
	ErrMissingOutput:       "missing_output",
	ErrOversize:            "oversize",
	ErrDeliveryFailed:      "delivery_failed",
}

// Error 面向用户的下载错误, Message 是唯一展示给用户的文本
type Error struct {
	Kind    Kind
	Reason  error
	Message string
	Cause   error

	// InsufficientSpace: 可用 MB / 下限 MB; Oversize: 文件 MB / 上限 MB
	Actual float64
	Limit  float64
}

func newError(reason error, message string, cause error) *Error {
	return &Error{
		Kind:    reasonKinds[reason],
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason.Error()
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Reason, e.Cause}
	}
	return []error{e.Reason}
}

// Code 错误代码, 用于日志和指标
func (e *Error) Code() string {
	if code, ok := reasonCodes[e.Reason]; ok {
		return code
	}
	return "unknown"
}

// UserMessage 返回展示给用户的文本
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "Something went wrong. Please try again later."
}
