// internal/status/encode.go
package status

// Encode converts a Snapshot into a full device status block.
// Layout is protocol-locked. Reserved and device name slots are zero.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError

	regs[SlotQueueLength] = s.QueueLength
	if s.InFlight {
		regs[SlotInFlight] = 1
	}
	regs[SlotSucceededHi] = uint16(s.Succeeded >> 16)
	regs[SlotSucceededLo] = uint16(s.Succeeded)
	regs[SlotFailedHi] = uint16(s.Failed >> 16)
	regs[SlotFailedLo] = uint16(s.Failed)

	return regs
}
