package telemetry

// BitField is the raw value of an irsdk bitfield variable.
type BitField uint32

// IsSet reports whether bit n (0-based) is set.
func (b BitField) IsSet(n uint) bool {
	if n >= 32 {
		return false
	}
	return b&(1<<n) != 0
}

// HasFlag reports whether every bit in mask is set.
func (b BitField) HasFlag(mask uint32) bool {
	return uint32(b)&mask == mask
}

// HasAny reports whether at least one bit in mask is set.
func (b BitField) HasAny(mask uint32) bool {
	return uint32(b)&mask != 0
}
