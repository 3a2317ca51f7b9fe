// Package mocks provides test doubles for ports interfaces.
//
// These mocks are simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that returns reasonable test values
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for inspecting recorded calls
//
// # Usage Example
//
//	func TestRelay(t *testing.T) {
//		deliverer := mocks.NewDeliverer()
//		deliverer.DeliverFn = func(_ context.Context, _ domain.Delivery) error { return errBoom }
//
//		r := relay.New(cfg, detector, deliverer, ...)
//		// ... assert on deliverer.Deliveries()
//	}
//
// # Available Mocks
//
//   - Source: implements ports.MessageSource
//   - Deliverer: implements ports.Deliverer
//   - Journal: implements ports.Journal
package mocks
