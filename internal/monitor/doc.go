// Package monitor runs the sampling pipeline.
//
// Each enabled metric gets its own Sampler goroutine that reads a source on a
// fixed interval and, when the reading breaches its Threshold, sends an
// event to the shared bus. A single Dispatcher drains the bus in arrival
// order, renders each event and delivers it through a notifier.
//
// # Key Components
//
//	Threshold   - Strict above/below limit for one metric
//	Sampler     - Generic scheduled loop over a source.Source[T]
//	Dispatcher  - The bus's only consumer; render, deliver, optional cooldown
//	Monitor     - Builds the samplers from config and coordinates shutdown
//
// # Failure Handling
//
// A failed read is logged and the sampler backs off before trying again. An
// absent metric (no battery, charger plugged in, no matching sensor) produces
// nothing. A failed delivery is logged and the dispatcher moves on to the
// next event.
//
// # Shutdown
//
// Cancelling the context passed to Monitor.Run stops the samplers, closes the
// bus (releasing any sampler blocked on a full queue) and waits for the
// dispatcher to deliver what was already queued.
package monitor
