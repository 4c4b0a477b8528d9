//go:build linux || darwin

package input

import "golang.org/x/sys/unix"

func adviseSequential(data []byte) error {
	return unix.Madvise(data, unix.MADV_SEQUENTIAL)
}
