package giga

import "time"

// TXCerMode is how firmly an instrument is held.
type TXCerMode string

const (
	LockDraft     TXCerMode = "draft"     // in use by a transaction being built
	LockSubmitted TXCerMode = "submitted" // in use by a transaction already sent
)

// TXCerStatus is the status code carried by a settlement notification.
type TXCerStatus int

const (
	TXCerPending TXCerStatus = 0 // still awaiting settlement
	TXCerSettled TXCerStatus = 1 // settled: the instrument is replaced by its UTXO
	TXCerRevoked TXCerStatus = 2 // rejected or expired: the instrument is removed
)

// IsTerminal reports whether applying the status would replace or remove
// the instrument.
func (s TXCerStatus) IsTerminal() bool {
	return s == TXCerSettled || s == TXCerRevoked
}

// TXCerLock is one lock-table entry.
type TXCerLock struct {
	ID       string    `json:"id"`
	LockedAt time.Time `json:"locked_at"`
	Mode     TXCerMode `json:"mode"`
	Reason   string    `json:"reason"`
	TxID     string    `json:"txid,omitempty"` // transaction using the instrument, once submitted
}

// TXCerUpdate is a status notification for one instrument.
type TXCerUpdate struct {
	Account    string      `json:"account"`
	ID         string      `json:"id"`
	Status     TXCerStatus `json:"status"`
	Payload    *UTXO       `json:"payload,omitempty"` // the settled UTXO, when there is one
	ReceivedAt time.Time   `json:"received_at"`
}

// LockStatus is a point-in-time view of one account's lock table.
type LockStatus struct {
	Account string                 `json:"account"`
	Locks   []TXCerLock            `json:"locks"`
	Pending map[string]TXCerUpdate `json:"pending"` // buffered updates by instrument id
}

// TXCerHandler applies a notification that is allowed through (or released
// from the buffer) to the wallet.
type TXCerHandler interface {
	HandleTXCerUpdate(update TXCerUpdate) error
}

// LockStore persists one lock table per account.
type LockStore interface {
	// LoadLocks returns the saved lock table for an account (empty when none).
	LoadLocks(account string) ([]TXCerLock, error)
	// SaveLocks replaces the saved lock table for an account.
	SaveLocks(account string, locks []TXCerLock) error
}

// TXCerLocker is the lock table of one account.
type TXCerLocker interface {
	// Lock returns the ids that were newly locked; ids already locked are skipped.
	Lock(ids []string, reason string) []string
	MarkSubmitted(ids []string, txID string, reason string)
	Unlock(ids []string, processPending bool)
	IsLocked(id string) bool
	ShouldBlockUpdate(id string, status TXCerStatus) bool
	CacheUpdate(update TXCerUpdate)
	// Receive gates an incoming notification: buffered when blocked,
	// handled immediately otherwise. It reports whether it buffered.
	Receive(update TXCerUpdate) (bool, error)
	GetLockStatus() LockStatus
	ForceUnlockAll()
}

// LockRegistry hands out the lock table for an account.
type LockRegistry interface {
	For(account string) (TXCerLocker, error)
}

// BusTXCerHandler publishes released notifications on the message bus for
// the wallet layer to apply.
type BusTXCerHandler struct {
	Bus EventSender
}

var _ TXCerHandler = BusTXCerHandler{}

func (h BusTXCerHandler) HandleTXCerUpdate(u TXCerUpdate) error {
	return h.Bus.Send(TXC_UPDATE, u, u.ID)
}
