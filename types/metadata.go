package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common"
)

// Metadata is the caller supplied description of an upload, after validation.
type Metadata struct {
	Name           string                 `json:"name,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Tags           string                 `json:"tags,omitempty"`
	Extract        bool                   `json:"extract,omitempty"`
	Password       string                 `json:"-"`
	SubmissionType common.SubmissionType  `json:"submission_type,omitempty"`
	Extra          map[string]interface{} `json:"-"`
}

// LogFields never includes the password.
func (m *Metadata) LogFields() logrus.Fields {
	return logrus.Fields{
		"name":           m.Name,
		"extract":        m.Extract,
		"hasPassword":    m.Password != "",
		"submissionType": m.SubmissionType,
	}
}

func (m *Metadata) Clone() *Metadata {
	c := *m
	if m.Extra != nil {
		c.Extra = make(map[string]interface{}, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// MetadataFromObject builds metadata from a decoded JSON object or form. Known keys are validated
// and everything else is kept in Extra.
func MetadataFromObject(raw map[string]interface{}) (*Metadata, error) {
	m := &Metadata{}
	var err error
	for k, v := range raw {
		switch k {
		case "name":
			m.Name, err = asString(k, v)
		case "description":
			m.Description, err = asString(k, v)
		case "password":
			m.Password, err = asString(k, v)
		case "tags":
			m.Tags, err = asTags(v)
		case "extract":
			m.Extract, err = asBool(k, v)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]interface{})
			}
			m.Extra[k] = v
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func asString(key string, v interface{}) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	}
	return "", fmt.Errorf("%s must be a string", key)
}

func asBool(key string, v interface{}) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case string:
		if b == "" {
			return false, nil
		}
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%s must be a boolean", key)
		}
		return parsed, nil
	}
	return false, fmt.Errorf("%s must be a boolean", key)
}

// asTags accepts either a comma separated string or a list of strings.
func asTags(v interface{}) (string, error) {
	if list, ok := v.([]interface{}); ok {
		tags := make([]string, 0, len(list))
		for _, t := range list {
			s, ok := t.(string)
			if !ok {
				return "", fmt.Errorf("tags must be strings")
			}
			tags = append(tags, strings.TrimSpace(s))
		}
		return strings.Join(tags, ","), nil
	}
	return asString("tags", v)
}
