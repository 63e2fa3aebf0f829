package core

import "picostep/protocol"

// itoa converts an integer to a string without using fmt package
func itoa(n int) string {
	if n < 0 {
		return "-" + protocol.FormatUint(uint32(-n))
	}
	return protocol.FormatUint(uint32(n))
}
