package fleet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MemoryStore serves the demo fleet data without a database. It backs
// the logistics tools when the app runs with the in-memory vector index,
// and matches the semantics of Store: case-insensitive substring
// filters, newest first, the same result caps.
type MemoryStore struct {
	shipments  []Shipment
	warehouses []Warehouse
}

// NewMemoryStore creates a memory store seeded with the demo fleet, the
// same records the database migrations seed.
func NewMemoryStore() *MemoryStore {
	now := time.Now()
	at := func(d time.Duration) time.Time { return now.Add(d) }
	eta := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	return &MemoryStore{
		shipments: []Shipment{
			{ID: 1, TrackingNumber: "SHIP001", Status: "in_transit", Origin: "Rotterdam", Destination: "Hamburg", WeightKG: 120.5, EstimatedDelivery: eta(48 * time.Hour), CreatedAt: at(-24 * time.Hour)},
			{ID: 2, TrackingNumber: "SHIP002", Status: "delivered", Origin: "Hamburg", Destination: "Hamburg", WeightKG: 4.2, EstimatedDelivery: eta(-24 * time.Hour), CreatedAt: at(-96 * time.Hour)},
			{ID: 3, TrackingNumber: "SHIP003", Status: "pending", Origin: "Antwerp", Destination: "Lyon", WeightKG: 48.0, CreatedAt: at(-6 * time.Hour)},
			{ID: 4, TrackingNumber: "SHIP004", Status: "in_transit", Origin: "Barcelona", Destination: "Rotterdam", WeightKG: 310.0, EstimatedDelivery: eta(96 * time.Hour), CreatedAt: at(-48 * time.Hour)},
			{ID: 5, TrackingNumber: "SHIP005", Status: "delayed", Origin: "Gdansk", Destination: "Vienna", WeightKG: 75.3, EstimatedDelivery: eta(144 * time.Hour), CreatedAt: at(-72 * time.Hour)},
			{ID: 6, TrackingNumber: "SHIP006", Status: "delivered", Origin: "Lyon", Destination: "Antwerp", WeightKG: 12.8, EstimatedDelivery: eta(-48 * time.Hour), CreatedAt: at(-168 * time.Hour)},
			{ID: 7, TrackingNumber: "SHIP007", Status: "pending", Origin: "Rotterdam", Destination: "Rotterdam", WeightKG: 2.1, CreatedAt: at(-1 * time.Hour)},
			{ID: 8, TrackingNumber: "SHIP008", Status: "in_transit", Origin: "Vienna", Destination: "Gdansk", WeightKG: 198.4, EstimatedDelivery: eta(72 * time.Hour), CreatedAt: at(-12 * time.Hour)},
		},
		warehouses: []Warehouse{
			{ID: 1, Name: "Rotterdam Central Hub", City: "Rotterdam", Address: "Waalhaven Zuidzijde 21", CapacityM3: 52000, UtilizedPct: 78.5},
			{ID: 2, Name: "Rotterdam North Depot", City: "Rotterdam", Address: "Eemhavenweg 84", CapacityM3: 18500, UtilizedPct: 63.0},
			{ID: 3, Name: "Hamburg Freight Center", City: "Hamburg", Address: "Am Saalehafen 12", CapacityM3: 44000, UtilizedPct: 82.1},
			{ID: 4, Name: "Antwerp Dock Nine", City: "Antwerp", Address: "Noorderlaan 401", CapacityM3: 31000, UtilizedPct: 55.4},
			{ID: 5, Name: "Lyon South Platform", City: "Lyon", Address: "12 Rue du Dauphiné", CapacityM3: 12750, UtilizedPct: 47.9},
			{ID: 6, Name: "Vienna East Terminal", City: "Vienna", Address: "Freudenauer Hafenstraße 8", CapacityM3: 22300, UtilizedPct: 69.2},
		},
	}
}

// ShipmentByTrackingNumber looks up a shipment by exact tracking number,
// case-insensitively. Returns ErrNotFound when no shipment matches.
func (m *MemoryStore) ShipmentByTrackingNumber(_ context.Context, trackingNumber string) (*Shipment, error) {
	tn := strings.TrimSpace(trackingNumber)
	for i := range m.shipments {
		if strings.EqualFold(m.shipments[i].TrackingNumber, tn) {
			sh := m.shipments[i]
			return &sh, nil
		}
	}
	return nil, fmt.Errorf("shipment %q: %w", trackingNumber, ErrNotFound)
}

// SearchShipments returns shipments matching the filter, newest first,
// capped at MaxShipmentResults.
func (m *MemoryStore) SearchShipments(_ context.Context, filter SearchFilter) ([]Shipment, error) {
	matches := func(field, want string) bool {
		want = strings.TrimSpace(want)
		if want == "" {
			return true
		}
		return strings.Contains(strings.ToLower(field), strings.ToLower(want))
	}

	var out []Shipment
	for _, sh := range m.shipments {
		if matches(sh.Status, filter.Status) &&
			matches(sh.Origin, filter.Origin) &&
			matches(sh.Destination, filter.Destination) {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > MaxShipmentResults {
		out = out[:MaxShipmentResults]
	}
	return out, nil
}

// WarehousesByCity returns warehouses whose city contains the given text,
// case-insensitively, capped at MaxWarehouseResults.
func (m *MemoryStore) WarehousesByCity(_ context.Context, city string) ([]Warehouse, error) {
	want := strings.ToLower(strings.TrimSpace(city))

	var out []Warehouse
	for _, w := range m.warehouses {
		if strings.Contains(strings.ToLower(w.City), want) {
			out = append(out, w)
			if len(out) == MaxWarehouseResults {
				break
			}
		}
	}
	return out, nil
}
