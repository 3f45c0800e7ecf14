// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package inquiry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedPayload is returned when a NEW_INQUIRY payload is not a JSON object.
var ErrMalformedPayload = errors.New("inquiry: malformed payload")

// lenientString accepts "2020", 2020 and null.
type lenientString string

func (s *lenientString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}

	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = lenientString(v)
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		// Objects, arrays and booleans render as empty.
		*s = ""
		return nil //nolint:nilerr // non-scalar values are tolerated
	}
	if i, err := n.Int64(); err == nil {
		*s = lenientString(strconv.FormatInt(i, 10))
		return nil
	}
	*s = lenientString(n.String())
	return nil
}

type payload struct {
	FirstName    lenientString `json:"firstName"`
	LastName     lenientString `json:"lastName"`
	VehicleYear  lenientString `json:"vehicleYear"`
	VehicleMake  lenientString `json:"vehicleMake"`
	VehicleModel lenientString `json:"vehicleModel"`
}

// Decode parses a NEW_INQUIRY frame payload. Unknown fields are kept in Raw;
// missing known fields decode as empty strings.
func Decode(data []byte) (Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("%w: expected JSON object", ErrMalformedPayload)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return Event{
		FirstName:    string(p.FirstName),
		LastName:     string(p.LastName),
		VehicleYear:  string(p.VehicleYear),
		VehicleMake:  string(p.VehicleMake),
		VehicleModel: string(p.VehicleModel),
		Raw:          raw,
	}, nil
}
