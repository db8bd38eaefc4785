package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringMap is a flat string map persisted as JSONB. Opening hours
// (day -> hours) and preferred collaboration dates use it.
type StringMap map[string]string

// Value marshals the map into JSON for Postgres. A nil map is stored as NULL.
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the map.
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("string map: unsupported scan type %T", value)
	}

	result := make(StringMap)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}
