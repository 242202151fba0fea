package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// TableChangedMessage announces that one table was saved. It carries no
// rows; consumers read the table from the primary store.
type TableChangedMessage struct {
	Table     string    `json:"table"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTableChangedMessage(table, version string) *TableChangedMessage {
	return &TableChangedMessage{
		Table:     table,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *TableChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TableChangedMessageFromJSON decodes a message and rejects one without a table.
func TableChangedMessageFromJSON(data []byte) (*TableChangedMessage, error) {
	var msg TableChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Table == "" {
		return nil, errors.New("message has no table")
	}
	return &msg, nil
}
