package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cargotrail/cargotrail/internal/fleet"
	"github.com/cargotrail/cargotrail/internal/knowledge"
	"github.com/cargotrail/cargotrail/internal/testutil"
)

// unitVector returns a vector with a 1 at the given position.
func unitVector(pos int) []float32 {
	v := make([]float32, knowledge.VectorDimension)
	v[pos] = 1
	return v
}

// TestMigratedSchema exercises the migrated schema end to end against a
// real pgvector container: the vector index and the seeded fleet data.
func TestMigratedSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	logger := testutil.DiscardLogger()

	t.Run("vector index", func(t *testing.T) {
		index := knowledge.NewPgIndex(tdb.Pool, logger)

		count, err := index.Count(ctx)
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if count != 0 {
			t.Fatalf("fresh index count = %d, want 0", count)
		}

		chunks := []struct {
			id  string
			pos int
		}{
			{"doc_a#0", 0},
			{"doc_b#0", 1},
			{"doc_c#0", 2},
		}
		for i, c := range chunks {
			err := index.Insert(ctx, knowledge.Chunk{
				ID:      c.id,
				Source:  "manual.txt",
				Ordinal: i,
				Content: "chunk " + c.id,
			}, unitVector(c.pos))
			if err != nil {
				t.Fatalf("Insert %s: %v", c.id, err)
			}
		}

		// Nearest neighbor by cosine distance.
		got, err := index.Query(ctx, unitVector(1), 2)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Query returned %d chunks, want 2", len(got))
		}
		if got[0].ID != "doc_b#0" {
			t.Errorf("nearest chunk = %s, want doc_b#0", got[0].ID)
		}
		// The two remaining chunks are equidistant; seq breaks the tie
		// in insertion order.
		if got[1].ID != "doc_a#0" {
			t.Errorf("tie-broken second chunk = %s, want doc_a#0", got[1].ID)
		}

		if err := index.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		count, err = index.Count(ctx)
		if err != nil {
			t.Fatalf("Count after clear: %v", err)
		}
		if count != 0 {
			t.Errorf("count after clear = %d, want 0", count)
		}
	})

	t.Run("seeded fleet", func(t *testing.T) {
		store := fleet.NewStore(tdb.Pool, logger)

		// Tracking numbers match case-insensitively.
		sh, err := store.ShipmentByTrackingNumber(ctx, "ship001")
		if err != nil {
			t.Fatalf("ShipmentByTrackingNumber: %v", err)
		}
		if sh.TrackingNumber != "SHIP001" || sh.Status != "in_transit" {
			t.Errorf("shipment = %+v", sh)
		}

		_, err = store.ShipmentByTrackingNumber(ctx, "SHIP999")
		if !errors.Is(err, fleet.ErrNotFound) {
			t.Errorf("missing shipment error = %v, want ErrNotFound", err)
		}

		shipments, err := store.SearchShipments(ctx, fleet.SearchFilter{Status: "in_transit"})
		if err != nil {
			t.Fatalf("SearchShipments: %v", err)
		}
		if len(shipments) != 3 {
			t.Errorf("in_transit shipments = %d, want 3", len(shipments))
		}
		for i := 1; i < len(shipments); i++ {
			if shipments[i].CreatedAt.After(shipments[i-1].CreatedAt) {
				t.Errorf("shipments not ordered newest first at index %d", i)
			}
		}

		warehouses, err := store.WarehousesByCity(ctx, "rotterdam")
		if err != nil {
			t.Fatalf("WarehousesByCity: %v", err)
		}
		if len(warehouses) != 2 {
			t.Errorf("rotterdam warehouses = %d, want 2", len(warehouses))
		}
	})
}
