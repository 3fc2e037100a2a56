package format

// Alignment utilities for block sizing. All arithmetic is in bytes unless the
// name says units.

// AlignUnit returns n aligned up to the next header-unit boundary.
//
// Example:
//
//	AlignUnit(0)  = 0
//	AlignUnit(1)  = 16
//	AlignUnit(16) = 16
//	AlignUnit(17) = 32
func AlignUnit(n uint64) uint64 {
	return (n + UnitMask) &^ UnitMask
}

// IsUnitAligned reports whether n is a multiple of UnitSize.
func IsUnitAligned(n uint64) bool {
	return n&UnitMask == 0
}

// UnitsFor returns the number of units a block serving n payload bytes needs,
// including its header unit: ceil(n/UnitSize) + 1.
//
// Example:
//
//	UnitsFor(0)  = 1
//	UnitsFor(1)  = 2
//	UnitsFor(16) = 2
//	UnitsFor(17) = 3
func UnitsFor(n uint64) uint64 {
	return (n+UnitMask)/UnitSize + 1
}

// PayloadCap returns the payload capacity in bytes of a block of the given units.
func PayloadCap(units uint64) uint64 {
	if units == 0 {
		return 0
	}
	return (units - 1) * UnitSize
}
