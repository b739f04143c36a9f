package api

import (
	"io"

	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/types"
)

type EmptyResponse struct{}

type DoNotCacheResponse struct {
	Payload interface{}
}

type ErrorResponse struct {
	Code         string `json:"errcode"`
	Message      string `json:"error"`
	InternalCode string `json:"sr_errcode"`
	Reason       string `json:"reason,omitempty"`
}

// FieldErrorsResponse maps request fields to the problems found with them.
type FieldErrorsResponse map[string][]string

type SampleResponse struct {
	Sample *types.Sample `json:"sample"`
}

type SamplesResponse struct {
	Samples []*types.Sample `json:"samples"`
}

// ConflictResponse carries the record which already exists for an upload.
type ConflictResponse struct {
	Sample *types.Sample `json:"sample"`
}

type DownloadResponse struct {
	ContentType string
	Filename    string
	SizeBytes   int64
	Data        io.ReadCloser
}

func InternalServerError(message string) *ErrorResponse {
	return &ErrorResponse{Code: common.ErrCodeUnknown, Message: message, InternalCode: common.ErrCodeUnknown}
}

func MethodNotAllowed() *ErrorResponse {
	return &ErrorResponse{Code: common.ErrCodeUnknown, Message: "Method Not Allowed", InternalCode: common.ErrCodeMethodNotAllowed}
}

func NotFoundError() *ErrorResponse {
	return &ErrorResponse{Code: common.ErrCodeNotFound, Message: "Not found", InternalCode: common.ErrCodeNotFound}
}

func RequestTooLarge() *ErrorResponse {
	return &ErrorResponse{Code: common.ErrCodeTooLarge, Message: "Too Large", InternalCode: common.ErrCodeTooLarge}
}

func BadRequest(message string) *ErrorResponse {
	return &ErrorResponse{Code: common.ErrCodeUnknown, Message: message, InternalCode: common.ErrCodeBadRequest}
}

func Invalid(message string) *ErrorResponse {
	return &ErrorResponse{Code: common.ErrCodeInvalid, Message: message, InternalCode: common.ErrCodeInvalid}
}

func ExtractionFailed(reason string, message string) *ErrorResponse {
	return &ErrorResponse{Code: common.ErrCodeExtraction, Message: message, InternalCode: common.ErrCodeExtraction, Reason: reason}
}
