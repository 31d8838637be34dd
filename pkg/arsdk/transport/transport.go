package transport

// Transport is the contract a backend (net, mux) offers a CmdItf: send a
// framed packet, receive framed packets via callback, and report link
// status transitions. Implementations own exactly one ping scheduler and
// run their I/O on a single goroutine per the cooperative-scheduler model
// of §5; CmdItf holds only a weak reference and must call Stop before its
// own teardown completes (§5, §9 "weak-reference back pointers").
type Transport interface {
	// Send writes one already-framed Frame to the wire. Returns a
	// Transient error if the backend is momentarily unable to send
	// (EAGAIN-equivalent) or NotConnected if Stop has already run.
	Send(f Frame) error

	// SetCallbacks installs the receive and link-status callbacks. Must be
	// called before Start.
	SetCallbacks(onRecv func(Frame), onLinkStatus func(LinkStatus))

	// Start begins the backend's I/O loop.
	Start() error

	// Stop is idempotent and synchronous: after it returns, no further
	// callbacks fire and Send returns NotConnected (§9).
	Stop() error
}
