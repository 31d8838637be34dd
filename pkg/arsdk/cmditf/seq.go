package cmditf

// acceptSeq8 implements the sequence-number acceptance rule of §4.4 for
// the 8-bit sequence space used by v1: a received sequence number is
// accepted if it is strictly newer than prev, or if the signed 8-bit
// difference indicates a wrap (difference below -10).
func acceptSeq8(prev, recv uint8) bool {
	diff := int8(recv - prev)
	return diff > 0 || diff < -10
}

// acceptSeq16 is the same rule over the 16-bit sequence space used by v2
// and v3.
func acceptSeq16(prev, recv uint16) bool {
	diff := int16(recv - prev)
	return diff > 0 || diff < -10
}
