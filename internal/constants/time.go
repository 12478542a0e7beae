package constants

const (
	// SlotDurationMin is the default width of a schedule slot in minutes.
	SlotDurationMin = 15

	// LastSlotStartMin is the latest minute-of-day at which a slot may start
	// (23:45 on a 15-minute grid) so no slot crosses midnight.
	LastSlotStartMin = 24*60 - SlotDurationMin

	// RecentWindowSlots is how many prior slots the weight engine inspects
	// when computing recency penalties (~2 hours on a 15-minute grid).
	RecentWindowSlots = 8
)
