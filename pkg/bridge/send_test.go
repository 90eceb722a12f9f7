package bridge

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"
)

// udpPair returns a connected sender and a bound receiver on loopback.
func udpPair(t *testing.T) (*net.UDPConn, *net.UDPConn) {
	t.Helper()
	recv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { recv.Close() })
	send, err := net.DialUDP("udp", nil, recv.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { send.Close() })
	return send, recv
}

// readDatagrams reads datagrams until total bytes have arrived.
func readDatagrams(t *testing.T, conn *net.UDPConn, total int) [][]byte {
	t.Helper()
	var datagrams [][]byte
	buf := make([]byte, udpReadBufferSize)
	got := 0
	for got < total {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("after %d of %d bytes: %v", got, total, err)
		}
		datagrams = append(datagrams, append([]byte(nil), buf[:n]...))
		got += n
	}
	return datagrams
}

func TestSendReliable_SmallPayload(t *testing.T) {
	send, recv := udpPair(t)
	payload := []byte("hello over UDP")
	if err := SendReliable(send, payload); err != nil {
		t.Fatal(err)
	}
	datagrams := readDatagrams(t, recv, len(payload))
	if len(datagrams) != 1 || !bytes.Equal(datagrams[0], payload) {
		t.Errorf("got %d datagrams, want the payload in one piece", len(datagrams))
	}
}

func TestSendReliable_ChunksLargePayload(t *testing.T) {
	send, recv := udpPair(t)
	payload := []byte(strings.Repeat("0123456789", 1500)) // 15000 bytes
	if err := SendReliable(send, payload); err != nil {
		t.Fatal(err)
	}

	datagrams := readDatagrams(t, recv, len(payload))
	var reassembled []byte
	for i, d := range datagrams {
		if len(d) > maxDatagramSize {
			t.Errorf("datagram %d has %d bytes, want <= %d", i, len(d), maxDatagramSize)
		}
		reassembled = append(reassembled, d...)
	}
	if !bytes.Equal(reassembled, payload) {
		t.Error("reassembled chunks do not match the payload")
	}
	if want := 3; len(datagrams) != want {
		t.Errorf("payload split into %d datagrams, want %d", len(datagrams), want)
	}
}

func TestSendReliable_ExhaustedBudget(t *testing.T) {
	// Dial a port nobody listens on. The kernel reports the resulting
	// ICMP rejection on a subsequent write, so send twice.
	victim, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	addr := victim.LocalAddr().(*net.UDPAddr)
	victim.Close()

	send, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatal(err)
	}
	defer send.Close()

	var lastErr error
	for i := 0; i < 20; i++ {
		if lastErr = sendReliable(send, []byte("x"), 2); lastErr != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if lastErr == nil {
		t.Skip("platform does not report ECONNREFUSED for connected UDP sockets")
	}
	if !strings.Contains(lastErr.Error(), "socket") {
		t.Errorf("error = %v, want budget exhaustion", lastErr)
	}
}
