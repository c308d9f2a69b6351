package emu

// Reservation is the single load-reserved address held by a core.
type Reservation struct {
	addr   uint64
	length uint64
	valid  bool
}

// Set records a reservation of length bytes at addr, replacing any
// previous one.
func (r *Reservation) Set(addr, length uint64) {
	r.addr = addr
	r.length = length
	r.valid = true
}

// Matches reports whether a reservation covering exactly addr and length
// is held.
func (r *Reservation) Matches(addr, length uint64) bool {
	return r.valid && r.addr == addr && r.length == length
}

// Clear drops the reservation.
func (r *Reservation) Clear() {
	r.valid = false
}

// Valid reports whether a reservation is held.
func (r *Reservation) Valid() bool {
	return r.valid
}

// Addr returns the reserved address. It is meaningful only while Valid.
func (r *Reservation) Addr() uint64 {
	return r.addr
}
