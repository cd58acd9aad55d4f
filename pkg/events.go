package giga

// Gigaspend event types

// bus.Send(TX_SUBMITTED, result)
// bus.Send(TXC_LOCKED, status)

// Interface for any event
type EventType interface {
	Type() string
}

// EventSender is the part of the bus producers need.
type EventSender interface {
	Send(t EventType, msg interface{}, msgID ...string) error
}

// slice of all msg types for config funcs lookup
var EVENT_TYPES []EventType = []EventType{EVENT_ALL("ALL"),
	EVENT_SYS("SYS"),
	EVENT_TX("TX"),
	EVENT_TXC("TXC")}

// Special category, do not use directly, represents *
type EVENT_ALL string

func (e EVENT_ALL) Type() string {
	return "ALL"
}

// System Events
type EVENT_SYS string

func (e EVENT_SYS) Type() string {
	return "SYS"
}

const (
	SYS_STARTUP EVENT_SYS = "STARTUP"
	SYS_ERR     EVENT_SYS = "ERR"
	SYS_MSG     EVENT_SYS = "MSG"
)

// Transaction Events
type EVENT_TX string

func (e EVENT_TX) Type() string {
	return "TX"
}

const (
	TX_ASSEMBLED EVENT_TX = "ASSEMBLED"
	TX_SUBMITTED EVENT_TX = "SUBMITTED"
	TX_REJECTED  EVENT_TX = "REJECTED"
)

// TXCer Events
type EVENT_TXC string

func (e EVENT_TXC) Type() string {
	return "TXC"
}

const (
	TXC_LOCKED    EVENT_TXC = "LOCKED"
	TXC_SUBMITTED EVENT_TXC = "SUBMITTED"
	TXC_UNLOCKED  EVENT_TXC = "UNLOCKED"
	TXC_BUFFERED  EVENT_TXC = "BUFFERED"
	TXC_UPDATE    EVENT_TXC = "UPDATE"
)
