package ledger

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// ErrEmptyLedger is returned when a CSV export is requested with no receipts.
var ErrEmptyLedger = errors.New("there are no receipts to export")

// Repository persists the ledger as a single blob, best-effort.
type Repository interface {
	LoadReceipts() ([]Receipt, error)
	SaveReceipts([]Receipt) error
}

// Ledger holds confirmed receipts, most recent first. Safe for use from
// concurrent request handlers.
type Ledger struct {
	mu       sync.Mutex
	repo     Repository
	receipts []Receipt
}

// NewLedger creates a Ledger loaded from the repository. A load failure
// starts the ledger empty.
func NewLedger(repo Repository) *Ledger {
	receipts, err := repo.LoadReceipts()
	if err != nil {
		slog.Error("Failed to load receipts, starting empty", "error", err)
		receipts = nil
	}
	return &Ledger{repo: repo, receipts: receipts}
}

// Append prepends a receipt so the ledger stays most-recent-first.
func (l *Ledger) Append(r Receipt) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.receipts = append([]Receipt{r}, l.receipts...)
	if err := l.repo.SaveReceipts(l.receipts); err != nil {
		slog.Error("Failed to persist receipts", "error", err)
	}
}

// List returns a copy of the receipts, most recent first.
func (l *Ledger) List() []Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Receipt, len(l.receipts))
	copy(out, l.receipts)
	return out
}

// Len returns the number of receipts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.receipts)
}

// ExportCSV renders the ledger as UTF-8 comma-delimited text, one row per
// receipt, most recent first. The description is always wrapped in quotes
// with embedded quotes doubled; the total is formatted to two decimals or
// left empty when absent. An empty ledger is refused.
func (l *Ledger) ExportCSV() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.receipts) == 0 {
		return "", ErrEmptyLedger
	}

	var b strings.Builder
	b.WriteString("Vehicle Name,Plate,Date,Vendor,Description,Total\n")
	for _, r := range l.receipts {
		row := []string{
			csvField(r.Vehicle.Name),
			csvField(r.Vehicle.Plate),
			csvField(optional(r.Date)),
			csvField(optional(r.Vendor)),
			quoted(optional(r.Description)),
			formatTotal(r.Total),
		}
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTotal(t *float64) string {
	if t == nil {
		return ""
	}
	return strconv.FormatFloat(*t, 'f', 2, 64)
}

// quoted always wraps the value in quotes, doubling embedded quotes.
func quoted(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// csvField quotes a value only when it would break the row.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return quoted(s)
	}
	return s
}
