package launcher

import (
	"net"
	"testing"
)

func TestAllocateUDPPort(t *testing.T) {
	port, err := allocateUDPPort()
	if err != nil {
		t.Fatal(err)
	}
	if port <= 0 || port > 65535 {
		t.Fatalf("allocated port %d out of range", port)
	}
	// The port must be free again so sclang can bind it.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		t.Fatalf("allocated port %d not rebindable: %v", port, err)
	}
	conn.Close()
}

func TestAllocateUDPPort_Distinct(t *testing.T) {
	a, err := allocateUDPPort()
	if err != nil {
		t.Fatal(err)
	}
	b, err := allocateUDPPort()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("got the same port %d twice", a)
	}
}
