package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

type AnonymousJson map[string]interface{}

// Value implements driver.Valuer
func (a *AnonymousJson) Value() (driver.Value, error) {
	if a == nil || *a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *AnonymousJson) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = AnonymousJson{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("failed to assert jsonb is bytes")
}

func (a *AnonymousJson) ApplyFrom(val interface{}) error {
	if b, err := json.Marshal(val); err != nil {
		return err
	} else {
		if err = json.Unmarshal(b, a); err != nil {
			return err
		}
	}
	return nil
}
