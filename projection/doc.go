// Package projection turns decoded LibraryChain events into writes against a mirror.Gateway.
//
// The Router receives events in stream order, resolves each event's block timestamp once and
// dispatches it to the one handler owning its type. Every handler performs a single atomic batch.
// Events are processed concurrently, so one event's writes may not have completed when the next
// event's handler starts.
//
// Foreign-entity races (an event referencing a row an earlier event has not written yet) are handled
// with an explicit policy per entity pair:
//   - BookCreated waiting for its publisher fails fast by default
//   - ChapterCreated waiting for its book polls FindBook, 5 attempts with 1 second in between,
//     and abandons the chapter once the limit is reached
//
// Handler failures never leave the Router. They are logged together with the event payload and the
// event is dropped.
package projection
