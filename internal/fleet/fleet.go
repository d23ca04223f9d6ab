// Package fleet provides read-only access to shipment and warehouse
// records. The assistant's tools consult this data; nothing in this
// package mutates it.
package fleet

import (
	"time"
)

// Shipment is a tracked shipment record.
type Shipment struct {
	ID                int64
	TrackingNumber    string
	Status            string
	Origin            string
	Destination       string
	WeightKG          float64
	EstimatedDelivery *time.Time
	CreatedAt         time.Time
}

// Warehouse is a storage facility record.
type Warehouse struct {
	ID          int64
	Name        string
	City        string
	Address     string
	CapacityM3  int
	UtilizedPct float64
}

// SearchFilter narrows a shipment search. Empty fields are ignored;
// non-empty fields match as case-insensitive substrings.
type SearchFilter struct {
	Status      string
	Origin      string
	Destination string
}

// Empty reports whether no filter field is set.
func (f SearchFilter) Empty() bool {
	return f.Status == "" && f.Origin == "" && f.Destination == ""
}
