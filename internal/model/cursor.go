package model

import "time"

// SyncCursor records the last provider UID observed for an (owner, mailbox)
// pair. It only ever moves forward; resetting it is a manual administrative
// action.
type SyncCursor struct {
	UpdatedAt time.Time
	Owner     string
	Mailbox   string
	LastUID   uint32
}
