package hsm

// StatusToError maps an ISO 7816 status word onto the package error
// taxonomy. Success (90 00) and the more-data continuation (61 xx)
// map to nil; the continuation is handled by the transmit layer, not
// reported to callers.
func StatusToError(sw1, sw2 byte) error {
	switch {
	case sw1 == 0x90 && sw2 == 0x00:
		return nil
	case sw1 == 0x61:
		return nil
	case sw1 == 0x63 && sw2&0xF0 == 0xC0:
		return &PinInvalidError{Retries: sw2 & 0x0F}
	case sw1 == 0x69 && sw2 == 0x83:
		return ErrPinLocked
	case sw1 == 0x69 && sw2 == 0x82:
		return ErrSoPinInvalid
	case sw1 == 0x6A && (sw2 == 0x82 || sw2 == 0x88):
		return &KeyNotFoundError{}
	default:
		return &StatusError{SW1: sw1, SW2: sw2}
	}
}
