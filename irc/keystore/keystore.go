// Copyright (c) 2022 Shivaram Lingamneni
// released under the MIT license

// Package keystore persists derived encryption material. Only derived keys
// and salts pass through this interface; passphrases never do.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/tidwall/buntdb"
)

// Table distinguishes key families within the single buntdb namespace.
// XXX these are persisted and must remain stable; do not reorder.
type Table uint16

const (
	TableMetadata Table = iota
	TableKeys
)

const (
	schemaVersion    = "1"
	schemaVersionKey = "version"

	// the buntdb file is guarded by a lock sidecar so that two client
	// instances can't corrupt each other's key material
	lockSuffix = ".lock"
)

var (
	ErrCouldntAcquireLock = errors.New("Couldn't acquire keystore lock (is another client running?)")
	ErrInvalidSchema      = errors.New("Keystore file has an unrecognized schema version")
)

// Record is the persisted material for one conversation key.
type Record struct {
	Key        []byte    `json:"key"`
	Salt       []byte    `json:"salt"`
	Iterations int       `json:"iterations"`
	CreatedAt  time.Time `json:"created-at"`
}

// A Keystore provides the persistence contract for derived encryption
// material, keyed by canonical target identity. Implementations must allow
// concurrent reads and serialize writes to the same entry.
type Keystore interface {
	Get(identity string) (record Record, present bool, err error)
	Put(identity string, record Record) error
	Delete(identity string) error
	// Identities enumerates every stored target identity.
	Identities() ([]string, error)
	Close() error
}

// buntKey yields the string key corresponding to a (table, identity) pair.
func buntKey(table Table, identity string) string {
	return fmt.Sprintf("%x %s", table, identity)
}

type buntKeystore struct {
	db   *buntdb.DB
	lock *flock.Flock
}

// Open opens (creating if necessary) the keystore at path, acquiring an
// exclusive lock on a sidecar file. The special path ":memory:" yields an
// unlocked, non-persistent store for tests.
func Open(path string) (Keystore, error) {
	var lock *flock.Flock
	if path != ":memory:" {
		lock = flock.New(path + lockSuffix)
		success, err := lock.TryLock()
		if err != nil {
			return nil, err
		} else if !success {
			return nil, ErrCouldntAcquireLock
		}
	}

	db, err := buntdb.Open(path)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}

	ks := &buntKeystore{db: db, lock: lock}
	if err := ks.checkSchema(); err != nil {
		ks.Close()
		return nil, err
	}
	return ks, nil
}

func (ks *buntKeystore) checkSchema() error {
	versionKey := buntKey(TableMetadata, schemaVersionKey)
	return ks.db.Update(func(tx *buntdb.Tx) error {
		version, err := tx.Get(versionKey)
		switch err {
		case nil:
			if version != schemaVersion {
				return ErrInvalidSchema
			}
			return nil
		case buntdb.ErrNotFound:
			_, _, err := tx.Set(versionKey, schemaVersion, nil)
			return err
		default:
			return err
		}
	})
}

func (ks *buntKeystore) Get(identity string) (record Record, present bool, err error) {
	var value string
	err = ks.db.View(func(tx *buntdb.Tx) error {
		value, err = tx.Get(buntKey(TableKeys, identity))
		return err
	})
	switch err {
	case nil:
		if jErr := json.Unmarshal([]byte(value), &record); jErr != nil {
			return Record{}, false, jErr
		}
		return record, true, nil
	case buntdb.ErrNotFound:
		return Record{}, false, nil
	default:
		return Record{}, false, err
	}
}

func (ks *buntKeystore) Put(identity string, record Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	value, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return ks.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(buntKey(TableKeys, identity), string(value), nil)
		return err
	})
}

func (ks *buntKeystore) Delete(identity string) error {
	err := ks.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(buntKey(TableKeys, identity))
		return err
	})
	// deleting a nonexistent key is not considered an error
	switch err {
	case buntdb.ErrNotFound:
		return nil
	default:
		return err
	}
}

func (ks *buntKeystore) Identities() (result []string, err error) {
	tablePrefix := fmt.Sprintf("%x ", TableKeys)
	err = ks.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendGreaterOrEqual("", tablePrefix, func(key, value string) bool {
			identity, ok := strings.CutPrefix(key, tablePrefix)
			if !ok {
				return false
			}
			result = append(result, identity)
			return true
		})
	})
	return
}

func (ks *buntKeystore) Close() error {
	err := ks.db.Close()
	if ks.lock != nil {
		ks.lock.Unlock()
	}
	return err
}
