//go:build !linux && !darwin

package input

func adviseSequential([]byte) error {
	return nil
}
