package ledger

import (
	"github.com/zombor/carlog/internal/extraction"
	"github.com/zombor/carlog/internal/fleet"
)

// Receipt is a confirmed maintenance expense: the extracted fields plus a
// copy of the vehicle as it was at save time. Receipts are immutable once
// created; the ledger is append-only.
type Receipt struct {
	ID      string        `json:"id"`
	Vehicle fleet.Vehicle `json:"vehicle"`
	extraction.Fields
}
