package common

// WipeByteArray zeroes a sensitive byte slice in place, e.g. a password
// after it has been used.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
