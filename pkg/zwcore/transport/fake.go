package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
)

// CanceledError is returned by SendMessage when an in-flight call is
// canceled by RejectTransactions (spec.md §5's cancellation model).
type CanceledError struct {
	FunctionType core.FunctionType
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("transport: transaction for function type %d canceled", e.FunctionType)
}

// Responder computes a response (or error) for a SendMessage call. Installed
// per function type by test fixtures.
type Responder func(request any) (any, error)

type handlerEntry struct {
	id      int
	fn      core.RequestHandler
	oneShot bool
}

type pendingCall struct {
	functionType core.FunctionType
	request      any
	cancel       context.CancelFunc
}

// Fake is an in-memory Transport used by tests to drive the controller's
// state machines without a real serial device — the same "same code path,
// shadow state" idea the teacher's abstract Node applies to ConfigDB.
type Fake struct {
	mu         sync.Mutex
	handlers   map[core.FunctionType][]*handlerEntry
	responders map[core.FunctionType]Responder
	pending    map[int]*pendingCall
	nextID     int
	timeouts   core.Timeouts
	sent       []SentMessage
}

// SentMessage records one SendMessage invocation for test assertions.
type SentMessage struct {
	FunctionType core.FunctionType
	Request      any
	Opts         core.SendOptions
}

// NewFake creates an empty fake transport.
func NewFake() *Fake {
	return &Fake{
		handlers:   make(map[core.FunctionType][]*handlerEntry),
		responders: make(map[core.FunctionType]Responder),
		pending:    make(map[int]*pendingCall),
	}
}

// SetResponder installs the responder used for every SendMessage call
// carrying functionType.
func (f *Fake) SetResponder(functionType core.FunctionType, r Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[functionType] = r
}

// SetTimeouts sets the ack/byte timeout pair returned by Timeouts().
func (f *Fake) SetTimeouts(t core.Timeouts) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts = t
}

// Sent returns a snapshot of every SendMessage call observed so far.
func (f *Fake) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *Fake) SendMessage(ctx context.Context, functionType core.FunctionType, request any, opts core.SendOptions) (any, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.pending[id] = &pendingCall{functionType: functionType, request: request, cancel: cancel}
	responder := f.responders[functionType]
	f.sent = append(f.sent, SentMessage{FunctionType: functionType, Request: request, Opts: opts})
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.pending, id)
		f.mu.Unlock()
	}()

	if responder == nil {
		return nil, nil
	}
	resp, err := responder(request)
	if err != nil {
		return nil, err
	}
	select {
	case <-callCtx.Done():
		return nil, &CanceledError{FunctionType: functionType}
	default:
	}
	return resp, nil
}

func (f *Fake) RegisterRequestHandler(functionType core.FunctionType, handler core.RequestHandler, oneShot bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.handlers[functionType] = append(f.handlers[functionType], &handlerEntry{
		id: f.nextID, fn: handler, oneShot: oneShot,
	})
}

func (f *Fake) UnregisterRequestHandler(functionType core.FunctionType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, functionType)
}

func (f *Fake) RejectTransactions(predicate core.RejectPredicate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.pending {
		if predicate(call.functionType, call.request) {
			call.cancel()
		}
	}
}

func (f *Fake) Timeouts() core.Timeouts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeouts
}

// Deliver simulates an unsolicited status report of the given function type
// arriving from the stick. Handlers run to completion, in registration
// order, before Deliver returns — matching spec.md §5's ordering guarantee.
// One-shot handlers are removed after running.
func (f *Fake) Deliver(ctx context.Context, functionType core.FunctionType, report any) core.HandlerResult {
	f.mu.Lock()
	entries := make([]*handlerEntry, len(f.handlers[functionType]))
	copy(entries, f.handlers[functionType])
	f.mu.Unlock()

	result := core.HandlerNotHandled
	var toRemove []int
	for _, e := range entries {
		if e.fn(ctx, report) == core.HandlerHandled {
			result = core.HandlerHandled
		}
		if e.oneShot {
			toRemove = append(toRemove, e.id)
		}
	}
	if len(toRemove) > 0 {
		f.mu.Lock()
		remaining := f.handlers[functionType][:0]
		for _, e := range f.handlers[functionType] {
			keep := true
			for _, id := range toRemove {
				if e.id == id {
					keep = false
					break
				}
			}
			if keep {
				remaining = append(remaining, e)
			}
		}
		f.handlers[functionType] = remaining
		f.mu.Unlock()
	}
	return result
}
