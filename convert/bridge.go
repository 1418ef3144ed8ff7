// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package convert

import (
	"context"
	"iter"

	"code.hybscloud.com/flow"
)

// bridge is a Subscriber that hands values one at a time to a blocking
// consumer. It requests one element per handoff, so a slow consumer
// throttles the Publisher.
//
// Subscribe runs on its own goroutine: a synchronous Publisher emits from
// inside Subscribe and would otherwise deadlock against its consumer.
type bridge[T any] struct {
	ctx context.Context
	in  chan T

	// Signal path only.
	sub  flow.Subscription
	stop func() bool
	done bool
	err  error // published by close(in)
}

func subscribe[T any](ctx context.Context, p flow.Publisher[T]) *bridge[T] {
	b := &bridge[T]{ctx: ctx, in: make(chan T)}
	go p.Subscribe(b)
	return b
}

func (b *bridge[T]) OnSubscribe(s flow.Subscription) {
	if b.sub != nil {
		s.Cancel()
		return
	}
	b.sub = s
	b.stop = context.AfterFunc(b.ctx, s.Cancel)
	s.Request(1)
}

func (b *bridge[T]) OnNext(v T) {
	if b.done {
		// Values racing a context cancellation are expected.
		if b.ctx.Err() == nil {
			flow.OnNextDropped(v)
		}
		return
	}
	select {
	case b.in <- v:
		b.sub.Request(1)
	case <-b.ctx.Done():
		b.finish(b.ctx.Err())
	}
}

func (b *bridge[T]) OnError(err error) {
	if b.done {
		flow.OnErrorDropped(err)
		return
	}
	b.finish(err)
}

func (b *bridge[T]) OnComplete() {
	b.finish(nil)
}

func (b *bridge[T]) finish(err error) {
	if b.done {
		return
	}
	b.done = true
	b.err = err
	if b.stop != nil {
		b.stop()
	}
	close(b.in)
}

// recv returns the next value. Once ok is false, err holds the terminal
// error of the Publisher, or the context error if ctx ended first.
func (b *bridge[T]) recv() (v T, ok bool, err error) {
	select {
	case v, ok = <-b.in:
		if !ok {
			err = b.err
		}
		return v, ok, err
	case <-b.ctx.Done():
		return v, false, b.ctx.Err()
	}
}

// Chan subscribes to p and forwards its values to the returned channel,
// which is closed when p terminates or ctx is done.
//
// A channel cannot carry the terminal error; errors other than the
// context's are reported to the dropped-error hook. Use Seq2 or Slice to
// observe them.
func Chan[T any](ctx context.Context, p flow.Publisher[T]) <-chan T {
	out := make(chan T)
	b := subscribe(ctx, p)
	go func() {
		defer close(out)
		for {
			v, ok, err := b.recv()
			if !ok {
				if err != nil && ctx.Err() == nil {
					flow.OnErrorDropped(err)
				}
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Seq returns an iterator over p. Each range loop subscribes anew;
// leaving the loop early cancels the subscription.
//
// Errors are reported to the dropped-error hook, as for Chan.
func Seq[T any](ctx context.Context, p flow.Publisher[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v, err := range Seq2(ctx, p) {
			if err != nil {
				if ctx.Err() == nil {
					flow.OnErrorDropped(err)
				}
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Seq2 returns an iterator over p that yields each value with a nil error,
// then a zero value with the terminal error if p fails or ctx ends first.
func Seq2[T any](ctx context.Context, p flow.Publisher[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		b := subscribe(ctx, p)
		for {
			v, ok, err := b.recv()
			if !ok {
				if err != nil {
					yield(v, err)
				}
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Slice collects every value of p. It blocks until p terminates or ctx is
// done, and returns the values received so far with the error.
func Slice[T any](ctx context.Context, p flow.Publisher[T]) ([]T, error) {
	var out []T
	for v, err := range Seq2(ctx, p) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
