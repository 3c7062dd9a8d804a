//go:build !unix

package core

import "syscall"

func controlSockopts(network, address string, rc syscall.RawConn) error {
	return nil
}
