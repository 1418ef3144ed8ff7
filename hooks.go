// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package flow

import (
	"os"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Hooks receives signals that the protocol rejected instead of delivering.
//
// A nil field falls back to the default behavior for that signal, which
// logs through Logger with per-signal rate limiting.
type Hooks struct {
	// NextDropped receives an element offered after termination or
	// cancellation.
	NextDropped func(v any)
	// ErrorDropped receives an error raised after termination, including
	// ErrDuplicateTerminal for repeated completions.
	ErrorDropped func(err error)
}

var (
	hooks  atomix.Pointer[Hooks]
	logger atomix.Pointer[logiface.Logger[logiface.Event]]

	// dropLimiter bounds default dropped-signal logging per category.
	dropLimiter = catrate.NewLimiter(map[time.Duration]int{
		time.Second: 10,
		time.Minute: 100,
	})
)

func init() {
	logger.StoreRelease(defaultLogger())
}

func defaultLogger() *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(logiface.LevelWarning),
	).Logger()
}

// SetLogger replaces the diagnostics logger used by this package.
// A nil logger disables diagnostics.
func SetLogger(l *logiface.Logger[logiface.Event]) {
	logger.StoreRelease(l)
}

// Logger returns the diagnostics logger. It may be nil; logiface loggers
// are nil-safe.
func Logger() *logiface.Logger[logiface.Event] {
	return logger.LoadAcquire()
}

// SetDropHooks installs h for every operator in the process.
func SetDropHooks(h Hooks) {
	hooks.StoreRelease(&h)
}

// ResetDropHooks restores the default logging behavior.
func ResetDropHooks() {
	hooks.StoreRelease(nil)
}

// OnNextDropped reports an element that could not be delivered because its
// subscriber already terminated or cancelled.
func OnNextDropped(v any) {
	if h := hooks.LoadAcquire(); h != nil && h.NextDropped != nil {
		h.NextDropped(v)
		return
	}
	if _, ok := dropLimiter.Allow("next"); !ok {
		return
	}
	Logger().Warning().
		Str("signal", "next").
		Interface("value", v).
		Log("dropped signal")
}

// OnErrorDropped reports an error that could not be delivered because its
// subscriber already terminated.
func OnErrorDropped(err error) {
	if h := hooks.LoadAcquire(); h != nil && h.ErrorDropped != nil {
		h.ErrorDropped(err)
		return
	}
	if _, ok := dropLimiter.Allow("error"); !ok {
		return
	}
	Logger().Warning().
		Str("signal", "error").
		Err(err).
		Log("dropped signal")
}
