// Package channeldb is the bbolt-backed persistence layer behind the
// PaymentsDb contract: channel state snapshots, incoming/outgoing payment
// records, and the HTLC-info archive penalty claims read from after a
// revoked commitment is published.
package channeldb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.etcd.io/bbolt"
)

const (
	dbName           = "phoenixcore.db"
	dbFilePermission = 0600
)

// migration mutates the key/bucket structure of a database opened at an
// older version to bring it to the next one.
type migration func(tx *bbolt.Tx) error

type version struct {
	number    uint32
	migration migration
}

// dbVersions lists every schema version this binary knows how to upgrade
// from, applied in order on Open.
var dbVersions = []version{
	{number: 0, migration: nil},
}

var byteOrder = binary.BigEndian

var bufPool = &sync.Pool{
	New: func() interface{} { return new(bufferedBytes) },
}

type bufferedBytes struct {
	buf []byte
}

var (
	openChannelBucket   = []byte("open-channels")
	closedChannelBucket = []byte("closed-channels")
	incomingPaymentBucket = []byte("incoming-payments")
	outgoingPaymentBucket = []byte("outgoing-payments")
	outgoingPartBucket    = []byte("outgoing-parts")
	htlcInfoBucket        = []byte("htlc-infos")
	metaBucket            = []byte("meta")
	dbVersionKey          = []byte("version")
)

// DB is the primary datastore for this node: channel snapshots, the
// payments ledger, and the htlc-info archive, all in one bbolt file.
type DB struct {
	*bbolt.DB
	dbPath string
}

// Open creates the database file (and its parent directory) if it does not
// already exist, and runs any pending migrations.
func Open(dbPath string) (*DB, error) {
	if !fileExists(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			return nil, err
		}
	}

	bdb, err := bbolt.Open(dbPath, dbFilePermission, nil)
	if err != nil {
		return nil, err
	}

	chanDB := &DB{DB: bdb, dbPath: dbPath}
	if err := chanDB.createBuckets(); err != nil {
		bdb.Close()
		return nil, err
	}
	if err := chanDB.syncVersions(); err != nil {
		bdb.Close()
		return nil, err
	}

	return chanDB, nil
}

func (d *DB) createBuckets() error {
	return d.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			openChannelBucket, closedChannelBucket, incomingPaymentBucket,
			outgoingPaymentBucket, outgoingPartBucket, htlcInfoBucket, metaBucket,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) syncVersions() error {
	return d.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)

		var current uint32
		if raw := meta.Get(dbVersionKey); raw != nil {
			current = byteOrder.Uint32(raw)
		}

		for _, v := range dbVersions {
			if v.number <= current {
				continue
			}
			if v.migration != nil {
				if err := v.migration(tx); err != nil {
					return fmt.Errorf("migration to version %d failed: %w", v.number, err)
				}
			}
			current = v.number
		}

		var buf [4]byte
		byteOrder.PutUint32(buf[:], current)
		return meta.Put(dbVersionKey, buf[:])
	})
}

// Wipe deletes every bucket's contents in one transaction, leaving an empty
// but still-initialized database.
func (d *DB) Wipe() error {
	return d.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			openChannelBucket, closedChannelBucket, incomingPaymentBucket,
			outgoingPaymentBucket, outgoingPartBucket, htlcInfoBucket,
		}
		for _, name := range buckets {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
