package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const stampLen = 8

// BadgerBackend stores each dataset under its name. The value is an 8-byte
// big-endian unix-nano write time followed by the payload.
type BadgerBackend struct {
	db *badger.DB
}

func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dir, err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Load(_ context.Context, dataset string) (Entry, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataset))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, ErrNotStored
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", dataset, err)
	}
	if len(val) < stampLen {
		return Entry{}, fmt.Errorf("get %s: value too short (%d bytes)", dataset, len(val))
	}
	stamp := int64(binary.BigEndian.Uint64(val[:stampLen]))
	return Entry{
		Dataset:   dataset,
		Payload:   val[stampLen:],
		WrittenAt: time.Unix(0, stamp),
	}, nil
}

func (b *BadgerBackend) Save(_ context.Context, e Entry) error {
	val := make([]byte, stampLen+len(e.Payload))
	binary.BigEndian.PutUint64(val[:stampLen], uint64(e.WrittenAt.UnixNano()))
	copy(val[stampLen:], e.Payload)
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(e.Dataset), val)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", e.Dataset, err)
	}
	return nil
}

func (b *BadgerBackend) Close() error { return b.db.Close() }
