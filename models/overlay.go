package models

// Overlay returns self as seen through its parent: photo, price, isFree and the
// parent's ticket pool replace the sub-event's own values. It does not mutate
// either argument and applying it twice gives the same result.
func Overlay(self, parent Event) Event {
	out := self
	if parent.Photo != "" {
		out.Photo = parent.Photo
	}
	out.Price = parent.Price
	out.IsFree = parent.IsFree

	c := parent.Capacity()
	out.CapacityMode = c.Mode
	out.TicketsLeft = parent.TicketsLeft
	out.SoldOut = parent.SoldOut || IsSoldOut(c, parent.TicketsLeft)
	return out
}
