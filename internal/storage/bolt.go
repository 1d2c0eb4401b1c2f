// Package storage persists the application state in a bbolt database as
// three independent keyed blobs: the fleet, the receipt ledger and the
// settings.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/carlog/internal/fleet"
	"github.com/zombor/carlog/internal/ledger"
	"github.com/zombor/carlog/internal/settings"
)

const (
	fleetBucket    = "fleet"
	receiptsBucket = "receipts"
	settingsBucket = "settings"

	blobKey = "current"
)

// BoltDB implements the fleet, ledger and settings repositories on a single
// bbolt file.
type BoltDB struct {
	db *bbolt.DB
}

var (
	_ fleet.Repository    = (*BoltDB)(nil)
	_ ledger.Repository   = (*BoltDB)(nil)
	_ settings.Repository = (*BoltDB)(nil)
)

// NewBoltDB opens (or creates) the database and its buckets.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{fleetBucket, receiptsBucket, settingsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// LoadFleet returns the persisted fleet, or the seed fleet when none has
// been saved yet.
func (b *BoltDB) LoadFleet() ([]fleet.Vehicle, error) {
	var vehicles []fleet.Vehicle
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(fleetBucket)).Get([]byte(blobKey))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &vehicles)
	})
	if err != nil {
		return nil, fmt.Errorf("loading fleet: %w", err)
	}
	if !found {
		return fleet.SeedVehicles(), nil
	}
	return vehicles, nil
}

// SaveFleet replaces the persisted fleet blob.
func (b *BoltDB) SaveFleet(vehicles []fleet.Vehicle) error {
	return b.putBlob(fleetBucket, vehicles)
}

// LoadReceipts returns the persisted ledger, most recent first, or an empty
// ledger when none has been saved yet.
func (b *BoltDB) LoadReceipts() ([]ledger.Receipt, error) {
	var receipts []ledger.Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptsBucket)).Get([]byte(blobKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &receipts)
	})
	if err != nil {
		return nil, fmt.Errorf("loading receipts: %w", err)
	}
	return receipts, nil
}

// SaveReceipts replaces the persisted ledger blob.
func (b *BoltDB) SaveReceipts(receipts []ledger.Receipt) error {
	return b.putBlob(receiptsBucket, receipts)
}

// LoadSettings returns the persisted settings, or zero-value settings when
// none have been saved yet.
func (b *BoltDB) LoadSettings() (settings.Settings, error) {
	var s settings.Settings
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(settingsBucket)).Get([]byte(blobKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &s)
	})
	if err != nil {
		return settings.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	return s, nil
}

// SaveSettings replaces the persisted settings blob.
func (b *BoltDB) SaveSettings(s settings.Settings) error {
	return b.putBlob(settingsBucket, s)
}

func (b *BoltDB) putBlob(bucket string, v any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", bucket, err)
		}
		return tx.Bucket([]byte(bucket)).Put([]byte(blobKey), data)
	})
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
