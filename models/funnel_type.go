// Package models contains the GORM entities and filter types for the CRM schema
package models

import (
	"database/sql/driver"
	"fmt"
)

// FunnelType identifies which of the two parallel funnels a stage or lead
// belongs to.
type FunnelType string

const (
	FunnelTypeFollowUp  FunnelType = "follow_up"
	FunnelTypeBroadcast FunnelType = "broadcast"
)

// String returns the string representation of the funnel type
func (t FunnelType) String() string {
	return string(t)
}

// Valid checks if the funnel type is valid
func (t FunnelType) Valid() bool {
	switch t {
	case FunnelTypeFollowUp, FunnelTypeBroadcast:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for FunnelType
func (t *FunnelType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = FunnelType(v)
	case []byte:
		*t = FunnelType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into FunnelType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for FunnelType
func (t FunnelType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid FunnelType: %s", t)
	}
	return string(t), nil
}
