// Package domain contains the value objects shared by the hub, the
// connection façade and the CLI that do not belong to the public telemetry
// model.
//
// # Entities
//
//   - [SubscriberStats]: delivery counters for one subscription
//   - [HubStats]: a snapshot of the hub and all of its subscribers
//   - [SessionSnapshot]: one session-info revision with its parsed document
//
// Domain values are plain data with no dependencies on adapters, logging
// or metrics.
package domain
