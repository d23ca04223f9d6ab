package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound indicates no record matched the lookup.
var ErrNotFound = errors.New("record not found")

// Result limits for multi-row lookups.
const (
	MaxWarehouseResults = 3
	MaxShipmentResults  = 10
)

// Querier is the subset of pgx pool behavior the store needs.
// Defined by the consumer so tests can substitute a fake; *pgxpool.Pool
// satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store performs read-only queries against the fleet tables.
// Safe for concurrent use.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// NewStore creates a fleet store. A nil logger falls back to slog.Default.
func NewStore(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

const shipmentColumns = `id, tracking_number, status, origin, destination, weight_kg, estimated_delivery, created_at`

// ShipmentByTrackingNumber looks up a shipment by exact tracking number,
// case-insensitively. Returns ErrNotFound when no shipment matches.
func (s *Store) ShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (*Shipment, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.db.QueryRow(queryCtx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE upper(tracking_number) = upper($1)`,
		strings.TrimSpace(trackingNumber))

	sh, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shipment %q: %w", trackingNumber, ErrNotFound)
		}
		return nil, fmt.Errorf("querying shipment %q: %w", trackingNumber, err)
	}
	return sh, nil
}

// SearchShipments returns shipments matching the filter, newest first,
// capped at MaxShipmentResults. An empty filter returns the newest
// shipments unfiltered.
func (s *Store) SearchShipments(ctx context.Context, filter SearchFilter) ([]Shipment, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query, args := buildShipmentSearch(filter)
	rows, err := s.db.Query(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching shipments: %w", err)
	}
	defer rows.Close()

	var out []Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning shipment: %w", err)
		}
		out = append(out, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading shipment rows: %w", err)
	}

	s.logger.Debug("shipment search", "matches", len(out),
		"status", filter.Status, "origin", filter.Origin, "destination", filter.Destination)
	return out, nil
}

// WarehousesByCity returns warehouses whose city contains the given text,
// case-insensitively, capped at MaxWarehouseResults.
func (s *Store) WarehousesByCity(ctx context.Context, city string) ([]Warehouse, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.Query(queryCtx,
		`SELECT id, name, city, address, capacity_m3, utilized_pct
		 FROM warehouses WHERE city ILIKE '%' || $1 || '%'
		 ORDER BY id LIMIT $2`,
		strings.TrimSpace(city), MaxWarehouseResults)
	if err != nil {
		return nil, fmt.Errorf("querying warehouses for %q: %w", city, err)
	}
	defer rows.Close()

	var out []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.City, &w.Address, &w.CapacityM3, &w.UtilizedPct); err != nil {
			return nil, fmt.Errorf("scanning warehouse: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading warehouse rows: %w", err)
	}
	return out, nil
}

// buildShipmentSearch assembles the dynamic WHERE clause for a shipment
// search. All user input flows through positional parameters, never
// string interpolation.
func buildShipmentSearch(filter SearchFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, strings.TrimSpace(value))
		conds = append(conds, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", column, len(args)))
	}

	add("status", filter.Status)
	add("origin", filter.Origin)
	add("destination", filter.Destination)

	query := `SELECT ` + shipmentColumns + ` FROM shipments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, MaxShipmentResults)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	return query, args
}

// scanShipment reads one shipment from a row.
func scanShipment(row pgx.Row) (*Shipment, error) {
	var sh Shipment
	err := row.Scan(&sh.ID, &sh.TrackingNumber, &sh.Status, &sh.Origin,
		&sh.Destination, &sh.WeightKG, &sh.EstimatedDelivery, &sh.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}
