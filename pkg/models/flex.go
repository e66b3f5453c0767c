package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexBool is a boolean that tolerates loose encodings on read: JSON booleans,
// numbers (0/1) and strings ("true", "1", "yes", ...). It always writes a
// JSON boolean.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseFlexBool(s)
		if err != nil {
			return err
		}
		*b = FlexBool(v)
		return nil
	}
	v, err := ParseFlexBool(string(data))
	if err != nil {
		return err
	}
	*b = FlexBool(v)
	return nil
}

// ParseFlexBool converts a loose textual boolean into a definite value.
func ParseFlexBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on", "active":
		return true, nil
	case "false", "0", "no", "n", "off", "inactive", "":
		return false, nil
	}
	return false, fmt.Errorf("cannot interpret %q as a boolean", s)
}

// FlexInt is an integer that also accepts numeric strings on read.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("cannot interpret %q as an integer", s)
	}
	*n = FlexInt(int(f))
	return nil
}
