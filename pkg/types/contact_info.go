package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ContactInfo is the optional store contact block persisted as JSONB.
type ContactInfo struct {
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Instagram *string `json:"instagram,omitempty"`
	Facebook  *string `json:"facebook,omitempty"`
}

func (c ContactInfo) IsZero() bool {
	return c.Phone == nil && c.Email == nil && c.Instagram == nil && c.Facebook == nil
}

func (c *ContactInfo) Value() (driver.Value, error) {
	if c == nil || c.IsZero() {
		return nil, nil
	}
	buf, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

func (c *ContactInfo) Scan(value interface{}) error {
	if value == nil {
		*c = ContactInfo{}
		return nil
	}
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("contact info: unsupported scan type %T", value)
	}
	var out ContactInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*c = out
	return nil
}
