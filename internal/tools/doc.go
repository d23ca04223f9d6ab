// Package tools provides the assistant's tool registry and the logistics
// tool handlers.
//
// # Architecture
//
// The Registry is an explicit name → (schema, handler) table. Tool input
// schemas are inferred from typed input structs with jsonschema-go and
// validated before any handler runs. Handlers always produce a
// human-readable string; that string is what gets fed back to the model
// as the tool result.
//
// # Error contract
//
// Invoke never lets a handler fault escape:
//
//   - Unknown tool name: fatal dispatch error (ErrUnknownTool). The
//     orchestrator treats this as a bug, not a recoverable condition.
//   - Malformed arguments: converted to an "InvalidArguments: ..." result
//     string so the model can retry with corrected arguments.
//   - Handler fault (record not found upstream, store unavailable, panic):
//     converted to a "ToolExecutionFault: ..." result string; the turn
//     continues.
//
// # Tools
//
//  1. get_shipment_status: exact tracking-number lookup
//  2. calculate_shipping_cost: weight and route based estimate
//  3. find_nearest_warehouse: substring city match, up to 3 results
//  4. estimate_delivery_time: delivery estimate from the shipment record
//  5. search_shipments: filtered search, up to 10 results
//
// Tools are additionally registered with Genkit so their schemas reach
// the model; dispatch itself always flows through the Registry.
package tools
