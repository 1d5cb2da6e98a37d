package models

// CapacityMode replaces the old "totalCapacity == 0" convention, which meant
// either "no tickets" or "not tracked" depending on the caller.
type CapacityMode string

const (
	CapacityUntracked CapacityMode = "untracked"
	CapacityFinite    CapacityMode = "finite"
	CapacityUnlimited CapacityMode = "unlimited"
)

func (m CapacityMode) Valid() bool {
	switch m {
	case CapacityUntracked, CapacityFinite, CapacityUnlimited:
		return true
	}
	return false
}

type Capacity struct {
	Mode  CapacityMode `json:"mode"`
	Total int          `json:"total"`
}

func Finite(total int) Capacity {
	return Capacity{Mode: CapacityFinite, Total: total}
}

func Untracked() Capacity {
	return Capacity{Mode: CapacityUntracked}
}

func Unlimited() Capacity {
	return Capacity{Mode: CapacityUnlimited}
}

// Tracked reports whether purchases decrement a pool.
func (c Capacity) Tracked() bool {
	return c.Mode == CapacityFinite
}

// InferCapacity reads documents written before capacityMode existed.
func InferCapacity(mode CapacityMode, total int) Capacity {
	if mode.Valid() {
		return Capacity{Mode: mode, Total: total}
	}
	if total > 0 {
		return Finite(total)
	}
	return Untracked()
}

func (e *Event) Capacity() Capacity {
	return InferCapacity(e.CapacityMode, e.TotalCapacity)
}

// SetCapacity resets the pool to a fresh capacity with nothing sold.
func (e *Event) SetCapacity(c Capacity) {
	e.CapacityMode = c.Mode
	if c.Tracked() {
		e.TotalCapacity = c.Total
		e.TicketsLeft = c.Total
	} else {
		e.TotalCapacity = 0
		e.TicketsLeft = 0
	}
	e.SoldOut = IsSoldOut(c, e.TicketsLeft)
}

// Available returns the purchasable ticket count; bounded is false when the
// event does not track capacity.
func (e *Event) Available() (n int, bounded bool) {
	if !e.Capacity().Tracked() {
		return 0, false
	}
	if e.TicketsLeft < 0 {
		return 0, true
	}
	return e.TicketsLeft, true
}

// IsSoldOut is the single definition of soldOut for a pool.
func IsSoldOut(c Capacity, ticketsLeft int) bool {
	return c.Tracked() && ticketsLeft <= 0
}

// Rebase returns the ticketsLeft after changing a finite pool from oldTotal to
// newTotal, keeping the number already sold.
func Rebase(ticketsLeft, oldTotal, newTotal int) int {
	left := ticketsLeft + (newTotal - oldTotal)
	if left < 0 {
		return 0
	}
	return left
}
