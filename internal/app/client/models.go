package client

import (
	"time"

	"fieldsync/internal/domain/record"
	"fieldsync/internal/domain/sync"
)

// Storage is the local-store contract the engines work against. SQLiteStorage
// is the production implementation.
type Storage interface {
	SaveLocal(rec *record.Record) error
	GetRecord(table, clientID string) (*record.Record, error)
	ListRecords(table string) ([]*record.Record, error)
	MarkSynced(table, clientID, serverID string) error
	ApplyRemote(rr *sync.RemoteRecord) error
	Watermark(table string) (time.Time, bool, error)
	AdvanceWatermark(table string, ts time.Time) error
	Reset() error
	Close() error
}
