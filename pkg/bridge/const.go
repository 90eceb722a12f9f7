package bridge

import "time"

const (
	// Socket read timeout; bounds how long the receive pump blocks before
	// rechecking the shutdown flag.
	udpReadTimeout = 200 * time.Millisecond
	// Receive buffer for a single datagram read.
	udpReadBufferSize = 64 * 1024

	// Payloads larger than this are split into chunks before sending.
	maxDatagramSize = 6000
	// Pause between chunks of one oversized payload, giving the receiver
	// time to drain its socket buffer.
	interChunkDelay = 100 * time.Microsecond

	// Retry cadence and total budget for sends that fail because the
	// server socket is not open yet.
	sendRetryInterval = 50 * time.Millisecond
	maxSendAttempts   = int(90*time.Second) / int(sendRetryInterval)

	// How often the sender loop wakes when no outbound traffic arrives.
	senderPollInterval = 50 * time.Millisecond
	// How long a final queue flush may take during shutdown.
	shutdownFlushWait = 2 * time.Second

	// First id allocated for bridge-originated requests. Editor ids are
	// small; starting this high keeps the two ranges disjoint.
	initialRequestID = 1_000_000

	// Capacity of the outbound queue. Messages sent while the server is
	// still compiling accumulate here.
	outboundQueueSize = 1024
)
