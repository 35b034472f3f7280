package nserve

import (
	"sync"
	"sync/atomic"
)

// Order says which way a hook walks its callbacks.
type Order int

const (
	// ForwardOrder runs callbacks in registration order.
	ForwardOrder Order = iota
	// ReverseOrder runs the most recently registered callback first.
	ReverseOrder
)

func (o Order) String() string {
	if o == ReverseOrder {
		return "reverse"
	}
	return "forward"
}

var lastHookID int32

// Hook names a lifecycle event.  Its settings can change at any
// time; a Do that is already running keeps the settings it started
// with.
type Hook struct {
	id   int32
	name string

	lock         sync.Mutex
	order        Order
	onError      []*Hook
	continuePast bool
	combine      func(first, second error) error
}

type hookSettings struct {
	order        Order
	onError      []*Hook
	continuePast bool
	combine      func(first, second error) error
}

// NewHook creates a hook with no callbacks.
func NewHook(name string, order Order) *Hook {
	return &Hook{
		id:    atomic.AddInt32(&lastHookID, 1),
		name:  name,
		order: order,
	}
}

// Copy returns a hook with the same settings but its own identity,
// so callbacks registered on one are not run by the other.
func (h *Hook) Copy() *Hook {
	s := h.settings()
	return &Hook{
		id:           atomic.AddInt32(&lastHookID, 1),
		name:         h.name,
		order:        s.order,
		onError:      s.onError,
		continuePast: s.continuePast,
		combine:      s.combine,
	}
}

// join folds a callback error into the hook's result.
func (s hookSettings) join(e1, e2 error) error {
	switch {
	case e1 == nil:
		return e2
	case e2 == nil:
		return e1
	case s.combine == nil:
		return e1
	default:
		return s.combine(e1, e2)
	}
}

func (h *Hook) settings() hookSettings {
	h.lock.Lock()
	defer h.lock.Unlock()
	onError := make([]*Hook, len(h.onError))
	copy(onError, h.onError)
	return hookSettings{
		order:        h.order,
		onError:      onError,
		continuePast: h.continuePast,
		combine:      h.combine,
	}
}

// Name is the name given to NewHook.
func (h *Hook) Name() string { return h.name }

// OnError adds a hook to run when this one fails.  OnError(nil)
// clears the list.
func (h *Hook) OnError(e *Hook) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	if e == nil {
		h.onError = nil
	} else {
		h.onError = append(h.onError, e)
	}
	return h
}

// SetErrorCombiner decides what Do returns when more than one
// callback fails.  Without one, the first error wins.
func (h *Hook) SetErrorCombiner(f func(first, second error) error) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.combine = f
	return h
}

// ContinuePastError keeps running callbacks after one fails.
func (h *Hook) ContinuePastError(b bool) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.continuePast = b
	return h
}

func (h *Hook) String() string {
	return "hook " + h.name
}

// Start brings libraries up; a failure runs Stop.  Stop runs every
// callback even when some fail, and a failure runs Shutdown.
// Shutdown releases what constructors acquired.
var (
	Shutdown = NewHook("shutdown", ReverseOrder)
	Stop     = NewHook("stop", ReverseOrder).OnError(Shutdown).ContinuePastError(true)
	Start    = NewHook("start", ForwardOrder).OnError(Stop)
)
