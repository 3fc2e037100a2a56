//go:build !linux && !darwin && !freebsd

package vmem

// reserve allocates the reservation as an ordinary Go slice when anonymous
// mappings with deferred commit are not available.
func reserve(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func commit([]byte) error { return nil }

func release([]byte) error { return nil }
