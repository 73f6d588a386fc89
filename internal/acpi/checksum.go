package acpi

// ChecksumOK reports whether b sums to zero modulo 256. Every ACPI
// structure carries a checksum byte chosen so that the whole structure
// sums to zero; nothing else in a table is trusted until this passes.
func ChecksumOK(b []byte) bool {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum == 0
}
