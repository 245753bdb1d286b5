package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeTransactionSync   = "transaction.sync"
	TypeTransactionDelete = "transaction.delete"
)

// TransactionSyncMessage only carries the id; the worker reloads the row from storage.
type TransactionSyncMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type TransactionDeleteMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Type:      TypeTransactionSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewTransactionDeleteMessage(id int64) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{
		Type:      TypeTransactionDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// DecodeMessage returns either a *TransactionSyncMessage or a *TransactionDeleteMessage.
// Bodies without a type are treated as sync messages.
func DecodeMessage(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch head.Type {
	case "", TypeTransactionSync:
		var msg TransactionSyncMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode sync message: %w", err)
		}
		msg.Type = TypeTransactionSync
		return &msg, nil
	case TypeTransactionDelete:
		var msg TransactionDeleteMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode delete message: %w", err)
		}
		return &msg, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", head.Type)
	}
}
