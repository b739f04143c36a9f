package types

import (
	"github.com/t2bot/sample-repo/common"
)

// Sample is the public view of an ingested record.
type Sample struct {
	Sha256Digest   string                 `json:"sha256_digest"`
	FileType       common.FileType        `json:"file_type"`
	SubmissionType string                 `json:"submission_type"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Tags           string                 `json:"tags,omitempty"`
	Mime           string                 `json:"mime,omitempty"`
	Size           int64                  `json:"size"`
	Timestamp      int64                  `json:"timestamp"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}
