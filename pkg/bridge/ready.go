package bridge

import "sync/atomic"

// ReadyState tracks whether the language server has announced readiness, and
// how many times it has done so. The count distinguishes the first
// announcement from later ones emitted after a class library recompile.
type ReadyState struct {
	ready atomic.Bool
	count atomic.Uint64
}

// SignalReady records one readiness announcement from the server.
func (rs *ReadyState) SignalReady() {
	rs.count.Add(1)
	rs.ready.Store(true)
}

// ForceReady marks the server ready without counting an announcement. The
// launcher calls this when it gives up waiting for the ready marker; if a
// real announcement arrives later it is still treated as the first one.
func (rs *ReadyState) ForceReady() { rs.ready.Store(true) }

// Ready reports whether the server is considered ready for traffic.
func (rs *ReadyState) Ready() bool { return rs.ready.Load() }

// ReadyCount returns the number of readiness announcements seen so far.
func (rs *ReadyState) ReadyCount() uint64 { return rs.count.Load() }
