// Package chainstream owns the live connection to the library catalog contract.
//
// A Connection dials a streaming RPC endpoint, installs one log watcher per tracked
// contract event, decodes every log into a chainevents.Event and hands the events
// to a sink in arrival order. It also serves block headers, so it doubles as the
// header source of the projection timestamp resolver.
//
// Shutdown has two steps. Stop ends all watchers and delivery, while HeaderByNumber keeps
// serving events that are still being projected. Close then releases the client.
// Both are safe to call more than once.
package chainstream
