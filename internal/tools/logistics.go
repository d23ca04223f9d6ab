package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/cargotrail/cargotrail/internal/fleet"
)

// Tool name constants. These are the stable names the model calls; they
// must match the names advertised in the system prompt.
const (
	GetShipmentStatusName    = "get_shipment_status"
	CalculateShippingCost    = "calculate_shipping_cost"
	FindNearestWarehouseName = "find_nearest_warehouse"
	EstimateDeliveryTimeName = "estimate_delivery_time"
	SearchShipmentsName      = "search_shipments"
)

// Shipping cost parameters.
const (
	baseRate       = 10.0
	ratePerKG      = 2.5
	distanceFactor = 1.5 // applied when origin and destination differ
)

// defaultTransitDays is the delivery estimate when no faster route applies.
const defaultTransitDays = 3

// ShipmentStatusInput defines input for get_shipment_status.
type ShipmentStatusInput struct {
	TrackingNumber string `json:"tracking_number" jsonschema_description:"The shipment tracking number, e.g. SHIP001"`
}

// ShippingCostInput defines input for calculate_shipping_cost.
type ShippingCostInput struct {
	WeightKG    float64 `json:"weight_kg" jsonschema_description:"Package weight in kilograms"`
	Origin      string  `json:"origin" jsonschema_description:"Origin city"`
	Destination string  `json:"destination" jsonschema_description:"Destination city"`
}

// WarehouseLookupInput defines input for find_nearest_warehouse.
type WarehouseLookupInput struct {
	City string `json:"city" jsonschema_description:"City to find warehouses near"`
}

// DeliveryEstimateInput defines input for estimate_delivery_time.
type DeliveryEstimateInput struct {
	TrackingNumber string `json:"tracking_number" jsonschema_description:"The shipment tracking number, e.g. SHIP001"`
}

// ShipmentSearchInput defines input for search_shipments.
// All fields are optional; empty fields do not filter.
type ShipmentSearchInput struct {
	Status      string `json:"status,omitempty" jsonschema_description:"Shipment status filter, e.g. pending, in_transit, delivered, delayed"`
	Origin      string `json:"origin,omitempty" jsonschema_description:"Origin city filter (substring match)"`
	Destination string `json:"destination,omitempty" jsonschema_description:"Destination city filter (substring match)"`
}

// FleetReader is the read-only fleet access the tools need.
// Defined here by the consumer; *fleet.Store satisfies it.
type FleetReader interface {
	ShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (*fleet.Shipment, error)
	SearchShipments(ctx context.Context, filter fleet.SearchFilter) ([]fleet.Shipment, error)
	WarehousesByCity(ctx context.Context, city string) ([]fleet.Warehouse, error)
}

// Logistics holds dependencies for the logistics tool handlers.
type Logistics struct {
	fleet  FleetReader
	logger *slog.Logger
	now    func() time.Time
}

// NewLogistics creates the logistics handler set.
func NewLogistics(fleetReader FleetReader, logger *slog.Logger) (*Logistics, error) {
	if fleetReader == nil {
		return nil, fmt.Errorf("fleet reader is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Logistics{fleet: fleetReader, logger: logger, now: time.Now}, nil
}

// RegisterLogistics registers the five logistics tools with the registry
// and, when g is non-nil, with Genkit.
func RegisterLogistics(r *Registry, g *genkit.Genkit, lt *Logistics) error {
	if lt == nil {
		return fmt.Errorf("logistics handlers are required")
	}

	if err := Define(r, g, GetShipmentStatusName,
		"Look up the current status of a shipment by its tracking number. "+
			"Returns: status, origin, destination, and estimated delivery date. "+
			"Use this when the user asks where a specific shipment is.",
		lt.GetShipmentStatus); err != nil {
		return err
	}

	if err := Define(r, g, CalculateShippingCost,
		"Calculate the shipping cost for a package from its weight and route. "+
			"Returns: the estimated cost in dollars. "+
			"Use this when the user asks how much shipping will cost.",
		lt.ShippingCost); err != nil {
		return err
	}

	if err := Define(r, g, FindNearestWarehouseName,
		"Find warehouses in or near a city. City matching is case-insensitive "+
			"and matches substrings. Returns: up to 3 warehouses with address, "+
			"capacity, and utilization.",
		lt.FindNearestWarehouse); err != nil {
		return err
	}

	if err := Define(r, g, EstimateDeliveryTimeName,
		"Estimate the delivery time for a shipment by its tracking number. "+
			"Returns: the delivery date if already delivered, the scheduled "+
			"date with days remaining, or a default estimate.",
		lt.EstimateDeliveryTime); err != nil {
		return err
	}

	if err := Define(r, g, SearchShipmentsName,
		"Search shipments by status, origin, or destination. All filters are "+
			"optional substring matches. Returns: up to 10 matching shipments, "+
			"newest first.",
		lt.SearchShipments); err != nil {
		return err
	}

	return nil
}

// GetShipmentStatus handles get_shipment_status.
func (lt *Logistics) GetShipmentStatus(ctx context.Context, in ShipmentStatusInput) (string, error) {
	tn := strings.ToUpper(strings.TrimSpace(in.TrackingNumber))
	if tn == "" {
		return invalidArguments("tracking_number must not be empty"), nil
	}

	sh, err := lt.fleet.ShipmentByTrackingNumber(ctx, tn)
	if err != nil {
		if errors.Is(err, fleet.ErrNotFound) {
			return fmt.Sprintf("No shipment found with tracking number %q. Please verify the number and try again.", tn), nil
		}
		return "", err
	}

	eta := "not yet scheduled"
	if sh.EstimatedDelivery != nil {
		eta = sh.EstimatedDelivery.Format("Jan 2, 2006")
	}
	return fmt.Sprintf("Shipment %s is %s. Route: %s to %s. Weight: %.1f kg. Estimated delivery: %s.",
		sh.TrackingNumber, humanStatus(sh.Status), sh.Origin, sh.Destination, sh.WeightKG, eta), nil
}

// ShippingCost handles calculate_shipping_cost.
func (lt *Logistics) ShippingCost(_ context.Context, in ShippingCostInput) (string, error) {
	if in.WeightKG <= 0 {
		return invalidArguments(fmt.Sprintf("weight_kg must be positive, got %.2f", in.WeightKG)), nil
	}
	if strings.TrimSpace(in.Origin) == "" || strings.TrimSpace(in.Destination) == "" {
		return invalidArguments("origin and destination must not be empty"), nil
	}

	cost := baseRate + ratePerKG*in.WeightKG
	if !strings.EqualFold(strings.TrimSpace(in.Origin), strings.TrimSpace(in.Destination)) {
		cost *= distanceFactor
	}
	return fmt.Sprintf("Estimated shipping cost for %.1f kg from %s to %s: $%.2f.",
		in.WeightKG, in.Origin, in.Destination, cost), nil
}

// FindNearestWarehouse handles find_nearest_warehouse.
func (lt *Logistics) FindNearestWarehouse(ctx context.Context, in WarehouseLookupInput) (string, error) {
	city := strings.TrimSpace(in.City)
	if city == "" {
		return invalidArguments("city must not be empty"), nil
	}

	warehouses, err := lt.fleet.WarehousesByCity(ctx, city)
	if err != nil {
		return "", err
	}
	if len(warehouses) == 0 {
		return fmt.Sprintf("No warehouses found near %q.", city), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Warehouses near %q:\n", city)
	for _, w := range warehouses {
		fmt.Fprintf(&b, "- %s (%s): %s, capacity %d m3, %.0f%% utilized\n",
			w.Name, w.City, w.Address, w.CapacityM3, w.UtilizedPct)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// EstimateDeliveryTime handles estimate_delivery_time. The answer comes
// from the shipment record: already delivered, a scheduled delivery date
// with the days remaining, or the default transit estimate.
func (lt *Logistics) EstimateDeliveryTime(ctx context.Context, in DeliveryEstimateInput) (string, error) {
	tn := strings.ToUpper(strings.TrimSpace(in.TrackingNumber))
	if tn == "" {
		return invalidArguments("tracking_number must not be empty"), nil
	}

	sh, err := lt.fleet.ShipmentByTrackingNumber(ctx, tn)
	if err != nil {
		if errors.Is(err, fleet.ErrNotFound) {
			return fmt.Sprintf("No shipment found with tracking number %q. Please verify the number and try again.", tn), nil
		}
		return "", err
	}

	if sh.Status == "delivered" {
		if sh.EstimatedDelivery != nil {
			return fmt.Sprintf("Shipment %s was already delivered on %s.",
				sh.TrackingNumber, sh.EstimatedDelivery.Format("Jan 2, 2006")), nil
		}
		return fmt.Sprintf("Shipment %s has already been delivered.", sh.TrackingNumber), nil
	}

	if sh.EstimatedDelivery != nil {
		days := int(sh.EstimatedDelivery.Sub(lt.now()).Hours() / 24)
		return fmt.Sprintf("Shipment %s is estimated to be delivered on %s (approximately %d day(s) from now).",
			sh.TrackingNumber, sh.EstimatedDelivery.Format("Jan 2, 2006"), days), nil
	}

	est := lt.now().AddDate(0, 0, defaultTransitDays)
	return fmt.Sprintf("Shipment %s is estimated to be delivered by %s (approximately %d business days).",
		sh.TrackingNumber, est.Format("Jan 2, 2006"), defaultTransitDays), nil
}

// SearchShipments handles search_shipments.
func (lt *Logistics) SearchShipments(ctx context.Context, in ShipmentSearchInput) (string, error) {
	filter := fleet.SearchFilter{
		Status:      strings.TrimSpace(in.Status),
		Origin:      strings.TrimSpace(in.Origin),
		Destination: strings.TrimSpace(in.Destination),
	}

	shipments, err := lt.fleet.SearchShipments(ctx, filter)
	if err != nil {
		return "", err
	}
	if len(shipments) == 0 {
		return "No shipments matched the given criteria.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d shipment(s):\n", len(shipments))
	for _, sh := range shipments {
		fmt.Fprintf(&b, "- %s: %s, %s to %s, %.1f kg\n",
			sh.TrackingNumber, humanStatus(sh.Status), sh.Origin, sh.Destination, sh.WeightKG)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// humanStatus renders a status code like "in_transit" as "in transit".
func humanStatus(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
