package launcher

import "net"

// allocateUDPPort binds an ephemeral UDP port to learn its number, then
// releases it for sclang to bind. The window between release and rebind is
// small and loopback-local.
func allocateUDPPort() (int, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return 0, err
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	return port, conn.Close()
}
