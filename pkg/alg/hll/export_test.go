package hll

// Registers returns a copy of the register array.
func (s *Sketch) Registers() []uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]uint8, len(s.registers))
	copy(out, s.registers)

	return out
}
