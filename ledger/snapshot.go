package ledger

import (
	"encoding/json"
	"fmt"
)

// Snapshot serializes the account state for persistence across restarts.
// The equity curve is reporting output, not resume state, and is not
// included.
func (l *Ledger) Snapshot() ([]byte, error) {
	return json.MarshalIndent(l.state, "", "  ")
}

// Restore rebuilds a ledger from a Snapshot payload, validating the
// invariants a well-formed snapshot must satisfy.
func Restore(data []byte) (*Ledger, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	if s.Balance <= 0 {
		return nil, fmt.Errorf("restore ledger: balance %v must be positive", s.Balance)
	}
	if s.PeakBalance < s.Balance {
		return nil, fmt.Errorf("restore ledger: peak %v below balance %v", s.PeakBalance, s.Balance)
	}
	if s.DayStartBalance <= 0 {
		return nil, fmt.Errorf("restore ledger: day-start balance %v must be positive", s.DayStartBalance)
	}
	if s.ConsecutiveLosses < 0 {
		return nil, fmt.Errorf("restore ledger: negative loss streak %d", s.ConsecutiveLosses)
	}

	l := &Ledger{state: s}
	l.maxDrawdown = s.TotalDrawdown()
	return l, nil
}
