package common

import (
	"fmt"
	"strings"
)

// FileType classifies an ingested sample. It is stored alongside the digest but is not part of
// the digest itself.
type FileType string

const (
	FileTypeFile   FileType = "file"
	FileTypeMemory FileType = "memory"
)

type SubmissionType string

const (
	SubmissionUploadFile   SubmissionType = "upload:file"
	SubmissionUploadMemory SubmissionType = "upload:memory"
)

const KindAll = "all"

var AllFileTypes = []FileType{FileTypeFile, FileTypeMemory}

func ParseFileType(s string) (FileType, error) {
	switch FileType(strings.ToLower(s)) {
	case FileTypeFile:
		return FileTypeFile, nil
	case FileTypeMemory:
		return FileTypeMemory, nil
	}
	return "", fmt.Errorf("unknown file type: %s", s)
}

// SubmissionTypeFor returns the tag recorded for uploads of the given classification.
func SubmissionTypeFor(fileType FileType) SubmissionType {
	if fileType == FileTypeMemory {
		return SubmissionUploadMemory
	}
	return SubmissionUploadFile
}
