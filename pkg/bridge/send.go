package bridge

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// SendReliable writes one payload to a connected UDP socket. Writes that fail
// with ECONNREFUSED are retried, since that only means the peer has not opened
// its socket yet; sclang takes seconds to get there after spawning. Payloads
// larger than a single datagram are split into chunks, with a short pause
// between chunks so the receiver can drain its socket buffer. The retry
// budget is shared across all chunks of one payload.
func SendReliable(conn *net.UDPConn, payload []byte) error {
	return sendReliable(conn, payload, maxSendAttempts)
}

// SendReliableFor is SendReliable with a custom retry budget, for callers
// that cannot afford the full one, such as shutdown paths.
func SendReliableFor(conn *net.UDPConn, payload []byte, budget time.Duration) error {
	attempts := int(budget / sendRetryInterval)
	if attempts < 1 {
		attempts = 1
	}
	return sendReliable(conn, payload, attempts)
}

func sendReliable(conn *net.UDPConn, payload []byte, budget int) error {
	if len(payload) <= maxDatagramSize {
		return writeRetry(conn, payload, &budget)
	}
	for off := 0; off < len(payload); off += maxDatagramSize {
		end := off + maxDatagramSize
		if end > len(payload) {
			end = len(payload)
		}
		if err := writeRetry(conn, payload[off:end], &budget); err != nil {
			return fmt.Errorf("chunk at offset %d: %w", off, err)
		}
		if end < len(payload) {
			time.Sleep(interChunkDelay)
		}
	}
	return nil
}

func writeRetry(conn *net.UDPConn, p []byte, budget *int) error {
	for {
		n, err := conn.Write(p)
		switch {
		case err == nil && n < len(p):
			return fmt.Errorf("short datagram write: %d of %d bytes", n, len(p))
		case err == nil:
			return nil
		case !errors.Is(err, syscall.ECONNREFUSED):
			return err
		}
		*budget--
		if *budget <= 0 {
			return fmt.Errorf("receiver never opened its socket: %w", err)
		}
		time.Sleep(sendRetryInterval)
	}
}
