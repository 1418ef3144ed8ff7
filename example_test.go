// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow_test

import (
	"errors"
	"fmt"

	"code.hybscloud.com/flow"
)

// printer requests n elements on subscribe, unless n is zero, and prints
// every signal.
type printer[T any] struct {
	n   int64
	sub flow.Subscription
}

func (p *printer[T]) OnSubscribe(s flow.Subscription) {
	p.sub = s
	if p.n != 0 {
		s.Request(p.n)
	}
}

func (p *printer[T]) OnNext(v T)        { fmt.Println("next:", v) }
func (p *printer[T]) OnError(err error) { fmt.Println("error:", err) }
func (p *printer[T]) OnComplete()       { fmt.Println("complete") }

// ExampleDistinct removes repeated elements.
func ExampleDistinct() {
	flow.Distinct(flow.FromSlice(1, 2, 2, 3, 1, 4), func(v int) int { return v }).
		Subscribe(&printer[int]{n: flow.Unbounded})

	// Output:
	// next: 1
	// next: 2
	// next: 3
	// next: 4
	// complete
}

// ExampleDistinct_key compares elements by a derived key.
func ExampleDistinct_key() {
	words := flow.FromSlice("Go", "go", "GO", "flow", "Flow")
	flow.Distinct(words, func(s string) int { return len(s) }).
		Subscribe(&printer[string]{n: flow.Unbounded})

	// Output:
	// next: Go
	// next: flow
	// complete
}

// ExampleDistinctWith uses a bounded store that fails once too many keys
// were seen.
func ExampleDistinctWith() {
	errFull := errors.New("store full")
	p := flow.DistinctWith(flow.FromSlice(1, 2, 3, 4),
		func(v int) (int, error) { return v, nil },
		func() (map[int]bool, error) { return make(map[int]bool), nil },
		func(m map[int]bool, k int) (bool, error) {
			if m[k] {
				return false, nil
			}
			if len(m) == 2 {
				return false, errFull
			}
			m[k] = true
			return true, nil
		},
		func(m map[int]bool) { fmt.Println("released", len(m), "keys") },
	)
	p.Subscribe(&printer[int]{n: flow.Unbounded})

	// Output:
	// next: 1
	// next: 2
	// released 2 keys
	// error: flow: operator failed on 3: store full
}

// ExampleLast emits only the final element, once it is requested.
func ExampleLast() {
	sub := &printer[string]{n: 0}
	flow.Last(flow.FromSlice("a", "b", "c")).Subscribe(sub)
	fmt.Println("requesting")
	sub.sub.Request(1)

	// Output:
	// requesting
	// next: c
	// complete
}

// ExampleNewSink shows values buffered until the subscriber asks for them.
func ExampleNewSink() {
	s := flow.NewSink[int](8)
	sub := &printer[int]{n: 1}
	s.Subscribe(sub)

	for i := 1; i <= 3; i++ {
		if err := s.Emit(i * 10); err != nil {
			fmt.Println("emit:", err)
		}
	}
	s.Complete()
	fmt.Println("buffered:", s.Size())

	sub.sub.Request(flow.Unbounded)

	// Output:
	// next: 10
	// buffered: 2
	// next: 20
	// next: 30
	// complete
}

// ExampleIsWouldBlock demonstrates backpressure on a full Sink.
func ExampleIsWouldBlock() {
	s := flow.Build[int](flow.New(2).SingleProducer())

	var err error
	for i := 0; err == nil; i++ {
		err = s.Emit(i)
	}
	fmt.Println(flow.IsWouldBlock(err))
	fmt.Println(flow.IsSemantic(err))

	// Output:
	// true
	// true
}

// ExampleJust shows an invalid request reported as an error.
func ExampleJust() {
	flow.Just(42).Subscribe(&printer[int]{n: -1})
	fmt.Println("---")
	flow.Just(42).Subscribe(&printer[int]{n: 1})

	// Output:
	// error: flow: request count must be > 0 (got -1)
	// ---
	// next: 42
	// complete
}
