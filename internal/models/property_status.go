package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PropertyStatus is the lifecycle state of a single inventory unit.
type PropertyStatus string

const (
	StatusAvailable        PropertyStatus = "Available"
	StatusInUse            PropertyStatus = "InUse"
	StatusUnderMaintenance PropertyStatus = "UnderMaintenance"
	StatusDamaged          PropertyStatus = "Damaged"
)

// AllStatuses lists every status in breakdown order.
var AllStatuses = []PropertyStatus{
	StatusAvailable,
	StatusInUse,
	StatusUnderMaintenance,
	StatusDamaged,
}

// ParsePropertyStatus accepts the canonical names case-insensitively.
func ParsePropertyStatus(s string) (PropertyStatus, error) {
	for _, st := range AllStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown property status %q", s)
}

func (s PropertyStatus) Valid() bool {
	_, err := ParsePropertyStatus(string(s))
	return err == nil
}

func (s PropertyStatus) String() string { return string(s) }

func (s *PropertyStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParsePropertyStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
