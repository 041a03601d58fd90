package fanout

import "sync/atomic"

// atomicMode is a small atomic.Int32 wrapper so Mode reads/writes never race
// with the ticker goroutine.
type atomicMode struct {
	v atomic.Int32
}

func (a *atomicMode) store(m Mode) { a.v.Store(int32(m)) }
func (a *atomicMode) load() Mode   { return Mode(a.v.Load()) }
