package runtime

import "net"

// FreePort asks the kernel for a free TCP port and releases it immediately.
// Best effort only: another process can grab the port between the probe and
// the container binding it.
func FreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", ":0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port, nil
}
