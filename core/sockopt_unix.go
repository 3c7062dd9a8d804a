//go:build unix

package core

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSockopts sets SO_REUSEADDR and TCP_NODELAY on listening sockets
func controlSockopts(network, address string, rc syscall.RawConn) error {
	var serr error
	err := rc.Control(func(fd uintptr) {
		if serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); serr != nil {
			return
		}
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	return serr
}
