package log

import (
	"log/slog"
	"sync/atomic"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// LoggerFilter is used to print log when check func returns true.
type LoggerFilter interface {
	check() bool
}

// EveryN passes one in every N calls. A nil filter or N == 0 passes all.
type EveryN struct {
	N       uint32
	counter atomic.Uint32
}

func (e *EveryN) check() bool {
	if e == nil || e.N == 0 {
		return true
	}
	return e.counter.Add(1)%e.N == 0
}

var _ LoggerFilter = &EveryN{}

func writeBy(filter LoggerFilter, level slog.Level, msg string, ctx ...interface{}) {
	if filter == nil || filter.check() {
		gethlog.Root().Write(level, msg, ctx...)
	}
}

func DebugBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, slog.LevelDebug, msg, ctx...)
}

func WarnBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, slog.LevelWarn, msg, ctx...)
}
