package mod

// Residue is a non-owning view of a caller-supplied limb buffer holding a
// value strictly less than the modulus it was bound to. The modulus must
// outlive the residue.
type Residue struct {
	p     []uint64 // caller owned
	limbs int
}

// Setup binds r to buf interpreted modulo m. buf must hold at least
// m.Limbs() limbs, and its value, read over all of its limbs, must be
// strictly less than the modulus. The size check runs first so the range
// comparison, which is constant time, always sees well-sized inputs.
func (r *Residue) Setup(buf []uint64, m *Modulus) error {
	if len(buf) < m.limbs || ltCT(buf, m.p) != 1 {
		return ErrBadInput
	}
	r.limbs = m.limbs
	r.p = buf
	return nil
}

// Release clears the binding. The limb buffer is left untouched and a
// released residue must not be used again.
func (r *Residue) Release() {
	r.limbs = 0
	r.p = nil
}

// Limbs returns the limb count the residue was bound with.
func (r *Residue) Limbs() int { return r.limbs }

// Buf returns the bound limb buffer, or nil for a released residue.
func (r *Residue) Buf() []uint64 { return r.p }
