package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerSyncMessage announces that a month was saved. The worker loads the month from
// the database, so the message only carries its key and the saved version.
type LedgerSyncMessage struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(year, month int, version int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Year:      year,
		Month:     month,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON decodes and checks a message body.
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Month < 1 || msg.Month > 12 {
		return nil, fmt.Errorf("invalid month %d", msg.Month)
	}
	return &msg, nil
}
