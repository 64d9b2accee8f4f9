// Package domain contains the core domain entities and value objects for hostlink.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (USB, HTTP, logging) and
// contains only the vocabulary shared by the dispatcher, the registries and
// the transport adapters.
//
// # Entities
//
//   - [Frame]: An inbound unit from the transport (notification when ID is 0)
//   - [Ack]: The synchronous acknowledgement returned by a send
//   - [Request]: A command plus its typed parameters
//   - [Response]: The final result of a request (reply frame or rejecting ack)
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Testable without mocks or external systems
package domain
