package bridge

import "time"

// runSender owns the outbound queue. Messages are held until the server
// announces readiness, then flushed in arrival order; afterwards they flow
// through directly. On the first false→true transition the cached didOpen and
// didChange are appended to the backlog so the just-connected server sees the
// current document state. When the readiness count rises past its previous
// value the server has recompiled its class library and lost all session
// state, so the cached initialize, didOpen and didChange are replayed first.
func (b *Bridge) runSender() {
	var pending [][]byte
	var lastReadyCount uint64
	readySignaled := false
	stdinDone := b.StdinClosed()

	for {
		if count := b.Ready.ReadyCount(); count > lastReadyCount {
			if lastReadyCount > 0 {
				b.replaySession()
			}
			lastReadyCount = count
		}

		if b.Ready.Ready() {
			if !readySignaled {
				readySignaled = true
				pending = append(pending, b.cachedDocumentState()...)
			}
			if len(pending) > 0 {
				logger.Printf("server ready; flushing %d queued messages", len(pending))
				for _, body := range pending {
					b.sendToServer(body, maxSendAttempts)
				}
				pending = nil
			}
		}

		select {
		case body := <-b.outbound:
			if b.Ready.Ready() {
				b.sendToServer(body, maxSendAttempts)
			} else {
				pending = append(pending, body)
			}
		case <-stdinDone:
			// The editor hung up; the launcher reacts by shutting the
			// bridge down. Stop selecting on the closed channel.
			stdinDone = nil
		case <-time.After(senderPollInterval):
		}

		if b.shutdown.Load() {
			b.drainAndStop(pending)
			return
		}
	}
}

// drainAndStop performs a final bounded flush of queued traffic. A server
// still compiling its class library gets until shutdownFlushWait to announce
// readiness; after that undeliverable messages are dropped.
func (b *Bridge) drainAndStop(pending [][]byte) {
	for {
		select {
		case body := <-b.outbound:
			pending = append(pending, body)
			continue
		default:
		}
		break
	}
	if len(pending) == 0 {
		return
	}
	deadline := time.Now().Add(shutdownFlushWait)
	for !b.Ready.Ready() && time.Now().Before(deadline) {
		time.Sleep(sendRetryInterval)
	}
	if !b.Ready.Ready() {
		logger.Printf("server never became ready; dropping %d queued messages", len(pending))
		return
	}
	budget := int(shutdownFlushWait / sendRetryInterval)
	for _, body := range pending {
		b.sendToServer(body, budget)
	}
}

// cachedDocumentState returns the cached didOpen and didChange, in that order,
// skipping empty slots.
func (b *Bridge) cachedDocumentState() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var msgs [][]byte
	for _, m := range [][]byte{b.cachedOpen, b.cachedChange} {
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// replaySession re-establishes the server's session after a recompile.
func (b *Bridge) replaySession() {
	b.mu.Lock()
	var msgs [][]byte
	for _, m := range [][]byte{b.cachedInit, b.cachedOpen, b.cachedChange} {
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	b.mu.Unlock()
	if len(msgs) == 0 {
		return
	}
	logger.Printf("server recompiled; replaying %d session messages", len(msgs))
	for _, body := range msgs {
		b.sendToServer(body, maxSendAttempts)
	}
}
