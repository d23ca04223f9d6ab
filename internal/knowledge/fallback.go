package knowledge

// fallback.go defines the built-in operations-manual corpus used when no
// documentation directory is available. It keeps the index non-empty so
// search always has candidates.

// FallbackSource identifies chunks that came from the built-in corpus.
const FallbackSource = "builtin:operations-manual"

// fallbackDoc is one built-in manual section.
type fallbackDoc struct {
	ID      string
	Title   string
	Content string
}

// fallbackDocs returns the built-in operations manual. IDs are fixed so
// repeated fallback indexing after a Clear produces the same chunk IDs.
func fallbackDocs() []fallbackDoc {
	return []fallbackDoc{
		{
			ID:    "builtin:shipping-procedures",
			Title: "Shipping Procedures",
			Content: `Shipping Procedures

All outbound shipments must be registered in the tracking system before
leaving the warehouse. Each package receives a tracking number with the
SHIP prefix followed by a zero-padded sequence number. Standard shipping
covers domestic routes within 3 business days; express shipping within 1
business day at a 50% surcharge.

Packages over 50 kg require a freight carrier and must be palletized.
Fragile goods are double-boxed with at least 5 cm of cushioning on every
side. The shipping manifest must list weight, declared value, origin,
destination, and the responsible dispatcher for every package.`,
		},
		{
			ID:    "builtin:safety-procedures",
			Title: "Safety Procedures",
			Content: `Safety Procedures

Warehouse staff must wear high-visibility vests and steel-toed footwear
on the floor at all times. Forklift operators require a current
certification; pedestrians always have right of way in marked aisles.

Hazardous materials are stored in the designated HAZMAT zone, separated
by compatibility class, and never stacked above shoulder height. Spills
must be reported immediately and the affected aisle cordoned off until
the response team clears it.

In case of fire, evacuate through the nearest marked exit and assemble
at the muster point in the north parking lot. Do not use freight
elevators during an evacuation. First-aid stations are located at every
loading dock and next to the main office.`,
		},
		{
			ID:    "builtin:customs-clearance",
			Title: "Customs Clearance",
			Content: `Customs Clearance

International shipments require a commercial invoice, a packing list,
and a certificate of origin. Declared values must match the invoice
exactly; discrepancies are the most common cause of customs holds.

Restricted goods (batteries, aerosols, perishables) need pre-approval
from the compliance desk at least 48 hours before dispatch. Duties and
taxes are billed to the receiver unless the shipment is marked DDP
(Delivered Duty Paid). Allow 2 to 5 additional business days for customs
processing on international routes.`,
		},
		{
			ID:    "builtin:warehouse-operations",
			Title: "Warehouse Operations",
			Content: `Warehouse Operations

Receiving hours are 06:00 to 18:00 on business days. Inbound deliveries
must be booked against a dock slot; unbooked arrivals wait for the next
free slot. Every received pallet is scanned into inventory within 2
hours of unloading.

Storage locations follow the zone-aisle-rack-shelf naming scheme. High
turnover goods are slotted in the pick zone nearest dispatch. Cycle
counts run weekly per zone; a full physical inventory runs quarterly.
Utilization above 85% of rated capacity triggers an overflow review.`,
		},
		{
			ID:    "builtin:returns-policy",
			Title: "Returns Policy",
			Content: `Returns Policy

Customers may return goods within 30 days of delivery with the original
packaging. A return authorization number must be issued before the
package is accepted back; unauthorized returns are refused at the dock.

Returned goods are inspected within 3 business days and graded as
restockable, refurbishable, or scrap. Refunds are released once
inspection completes. Damaged-in-transit claims require photos of the
packaging and must be filed within 7 days of delivery.`,
		},
	}
}
