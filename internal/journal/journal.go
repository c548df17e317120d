// Package journal keeps an append-only record of the write calls submitted
// to the contract.
package journal

import (
	"encoding/json"
	"time"
)

// Submission statuses.
const (
	StatusSubmitted = "SUBMITTED"
	StatusFailed    = "FAILED"
)

// Submission is one write call sent to the contract gateway.
type Submission struct {
	ID        string          `json:"id"`
	Function  string          `json:"function"`
	Arguments json.RawMessage `json:"arguments"`
	Amount    int64           `json:"amount"`
	Caller    string          `json:"caller"`
	Status    string          `json:"status"`
	TxHash    string          `json:"tx_hash,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
