package fleet

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreShipmentLookup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sh, err := store.ShipmentByTrackingNumber(ctx, "ship001")
	if err != nil {
		t.Fatalf("ShipmentByTrackingNumber: %v", err)
	}
	if sh.TrackingNumber != "SHIP001" || sh.Status != "in_transit" {
		t.Errorf("shipment = %+v", sh)
	}

	_, err = store.ShipmentByTrackingNumber(ctx, "SHIP999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing shipment error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreSearchShipments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	shipments, err := store.SearchShipments(ctx, SearchFilter{Status: "in_transit"})
	if err != nil {
		t.Fatalf("SearchShipments: %v", err)
	}
	if len(shipments) != 3 {
		t.Fatalf("in_transit matches = %d, want 3", len(shipments))
	}
	for i := 1; i < len(shipments); i++ {
		if shipments[i].CreatedAt.After(shipments[i-1].CreatedAt) {
			t.Errorf("results not ordered newest first at index %d", i)
		}
	}

	// Substring filters are case-insensitive.
	shipments, err = store.SearchShipments(ctx, SearchFilter{Origin: "rotter"})
	if err != nil {
		t.Fatalf("SearchShipments: %v", err)
	}
	if len(shipments) != 2 {
		t.Errorf("rotterdam origin matches = %d, want 2", len(shipments))
	}

	// An empty filter returns everything up to the cap.
	shipments, err = store.SearchShipments(ctx, SearchFilter{})
	if err != nil {
		t.Fatalf("SearchShipments: %v", err)
	}
	if len(shipments) != 8 {
		t.Errorf("unfiltered matches = %d, want 8", len(shipments))
	}
}

func TestMemoryStoreWarehousesByCity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	warehouses, err := store.WarehousesByCity(ctx, "Rotterdam")
	if err != nil {
		t.Fatalf("WarehousesByCity: %v", err)
	}
	if len(warehouses) != 2 {
		t.Fatalf("rotterdam warehouses = %d, want 2", len(warehouses))
	}

	warehouses, err = store.WarehousesByCity(ctx, "Oslo")
	if err != nil {
		t.Fatalf("WarehousesByCity: %v", err)
	}
	if len(warehouses) != 0 {
		t.Errorf("oslo warehouses = %d, want 0", len(warehouses))
	}
}
