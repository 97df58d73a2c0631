// Package fraudlog records analyzed calls for the fraud monitoring dashboard.
package fraudlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mgoltzsche/voicetrust/internal/trust"
)

// ErrClosed is returned when a closed log or store is used.
var ErrClosed = errors.New("fraud log closed")

type Source string

const (
	SourceUpload  Source = "upload"
	SourceCall    Source = "call"
	SourceLive    Source = "live"
	SourceWebhook Source = "webhook"
)

// Entry is a single analyzed call.
type Entry struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Source     Source    `json:"source"`
	CallSID    string    `json:"callSid,omitempty"`
	TrustScore int       `json:"trustScore"`
	RiskLevel  string    `json:"riskLevel"`
	BankAction string    `json:"bankAction"`
	BankStatus string    `json:"bankStatus"`
	Status     string    `json:"status"`
}

// NewEntry creates an entry for the given assessment.
func NewEntry(source Source, callSID string, a trust.Assessment) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Time:       time.Now().UTC(),
		Source:     source,
		CallSID:    callSID,
		TrustScore: a.TrustScore,
		RiskLevel:  a.Explanation,
		BankAction: a.BankAction,
		BankStatus: a.BankStatus,
		Status:     a.Status,
	}
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// List returns all entries, oldest first.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}
