// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

// Subscription is the consumer's handle on a producer.
//
// Request and Cancel may be called from any goroutine, concurrently with
// signals and with each other.
type Subscription interface {
	// Request grants n more elements of demand.
	// A non-positive n is a protocol violation: the producer reports an
	// error wrapping ErrInvalidDemand to its subscriber instead of counting
	// it as demand.
	Request(n int64)

	// Cancel asks the producer to stop. Idempotent.
	// A signal already in flight is not retracted.
	Cancel()
}

// Subscriber receives signals from a Publisher.
//
// Signals arrive in the order OnSubscribe, zero or more OnNext, then at most
// one of OnError or OnComplete. They are never delivered concurrently.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// ConditionalSubscriber is a Subscriber that can reject elements.
//
// TryOnNext reports whether v was consumed. A producer that receives false
// keeps the unit of demand and may offer the next element immediately
// instead of waiting for a replacement Request.
type ConditionalSubscriber[T any] interface {
	Subscriber[T]
	TryOnNext(v T) bool
}

// Publisher produces a sequence of signals for each Subscriber.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// Fuseable marks a Publisher whose subscriptions implement
// QueueSubscription. Operators use it to pick their fused variant at
// subscribe time.
type Fuseable interface {
	Fuseable()
}

// FusionMode selects how a consumer retrieves values from a producer.
type FusionMode uint8

const (
	// FusionNone is plain push signaling with demand accounting.
	FusionNone FusionMode = 0
	// FusionSync means all values are already available: the consumer polls
	// until ErrWouldBlock, which then marks completion. No OnNext is sent.
	FusionSync FusionMode = 1 << 0
	// FusionAsync means values arrive over time. OnNext only announces that
	// a value is ready to Poll; the argument carries no meaning.
	FusionAsync FusionMode = 1 << 1
	// FusionAny is a request mask accepting either mode.
	FusionAny = FusionSync | FusionAsync
)

func (m FusionMode) String() string {
	switch m {
	case FusionNone:
		return "none"
	case FusionSync:
		return "sync"
	case FusionAsync:
		return "async"
	case FusionAny:
		return "any"
	default:
		return "invalid"
	}
}

// QueueSubscription is a Subscription that additionally supports fusion.
//
// After RequestFusion returns a mode other than FusionNone, the consumer
// pulls values with Poll instead of receiving them through OnNext.
//
// Example (SYNC):
//
//	if qs.RequestFusion(flow.FusionSync) == flow.FusionSync {
//	    for {
//	        v, err := qs.Poll()
//	        if flow.IsWouldBlock(err) {
//	            break // source exhausted
//	        }
//	        if err != nil {
//	            return err
//	        }
//	        handle(v)
//	    }
//	}
type QueueSubscription[T any] interface {
	Subscription

	// RequestFusion negotiates a mode from the requested mask.
	// Returns FusionNone when the producer refuses.
	RequestFusion(mode FusionMode) FusionMode

	// Poll returns the next value.
	// Returns (zero-value, ErrWouldBlock) when nothing is available.
	// Any other error is fatal to the consumer.
	Poll() (T, error)

	// IsEmpty reports whether Poll would return ErrWouldBlock.
	IsEmpty() bool

	// Size is a best-effort element count, for diagnostics.
	Size() int

	// Clear discards pending values without emitting them.
	Clear()
}
