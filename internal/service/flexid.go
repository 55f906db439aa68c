package service

import (
	"bytes"
	"encoding/json"
)

// FlexID is an id that may arrive as a JSON string or number.
// It keeps the raw text so validation can report a precise message.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	// objects, arrays, booleans: kept verbatim and rejected by ParseUserID
	*f = FlexID(data)
	return nil
}

func (f FlexID) String() string { return string(f) }
