package core

// Transport defines the message-oriented serial transport contract the
// controller core drives. Framing, checksumming, and per-payload wire
// encoding are explicitly out of scope (spec.md §1) — this file only
// specifies the shape C3–C8 depend on; an in-memory fake lives in package
// transport.

import (
	"context"
	"time"
)

// Priority orders queued outgoing messages.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityLow
)

// SendOptions configures a single SendMessage call.
type SendOptions struct {
	// SupportCheck, when true, causes SendMessage to first verify the
	// function type is in the identity cache's supported-function set
	// (spec.md §4.1: interview queries use SupportCheck=false).
	SupportCheck bool
	Expire       time.Duration
	Priority     Priority

	// CorrelationID ties this request back to the inclusion/exclusion/
	// replace/heal operation that issued it (spec.md §11), mirroring the
	// CorrelationID carried on Event.
	CorrelationID string
}

// HandlerResult is returned by a RequestHandler to tell the transport
// whether the unsolicited report was consumed.
type HandlerResult int

const (
	// HandlerNotHandled means "return not handled" (spec.md §4.2's table).
	HandlerNotHandled HandlerResult = iota
	HandlerHandled
)

// RequestHandler processes an unsolicited status report delivered by the
// transport. Handlers registered by C4 and C7 run to completion before the
// next queued report is delivered (spec.md §5's ordering guarantee).
type RequestHandler func(ctx context.Context, report any) HandlerResult

// RejectPredicate matches in-flight requests for cancellation.
type RejectPredicate func(functionType FunctionType, request any) bool

// Timeouts holds the ack/byte timeout pair pushed to the stick by the
// interview orchestrator (spec.md §4.1).
type Timeouts struct {
	Ack  time.Duration
	Byte time.Duration
}

// Transport is the external collaborator spec.md §1/§6 describes: send a
// typed request, await a typed response or status-report stream, register
// handlers keyed by request kind, cancel in-flight transactions by
// predicate.
type Transport interface {
	// SendMessage sends request (tagged with its function type) and awaits
	// the corresponding response. Returns an error on expiry, drop, node
	// timeout, or transport-level failure.
	SendMessage(ctx context.Context, functionType FunctionType, request any, opts SendOptions) (any, error)

	// RegisterRequestHandler installs handler for unsolicited reports
	// carrying functionType. If oneShot, the transport unregisters it after
	// the first invocation.
	RegisterRequestHandler(functionType FunctionType, handler RequestHandler, oneShot bool)

	// UnregisterRequestHandler removes a previously registered handler.
	UnregisterRequestHandler(functionType FunctionType)

	// RejectTransactions cancels every in-flight SendMessage whose
	// (functionType, request) satisfies predicate; each rejected call
	// returns a transport error to its caller.
	RejectTransactions(predicate RejectPredicate)

	// Timeouts returns the configured ack/byte timeout pair.
	Timeouts() Timeouts
}
