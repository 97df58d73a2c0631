package fraudlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
)

var badgerKeyPrefix = []byte("fraudlog/")

// BadgerOptions configures the Badger store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string
	// InMemory runs BadgerDB without disk persistence.
	InMemory bool
}

// Badger persists entries in an embedded BadgerDB.
// Keys start with the entry time so that iteration yields entries oldest first.
type Badger struct {
	db     *badger.DB
	closed atomic.Bool
}

func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("open badger fraud log: no directory specified")
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{})
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{})
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger fraud log: %w", err)
	}

	return &Badger{db: db}, nil
}

func (b *Badger) Append(_ context.Context, e Entry) error {
	if b.closed.Load() {
		return ErrClosed
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal fraud log entry: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(e), value)
	})
	if err != nil {
		return fmt.Errorf("append fraud log entry: %w", err)
	}

	return nil
}

func (b *Badger) List(ctx context.Context) ([]Entry, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	entries := []Entry{}

	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = badgerKeyPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(badgerKeyPrefix); it.ValidForPrefix(badgerKeyPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("unmarshal fraud log entry: %w", err)
				}

				entries = append(entries, e)

				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list fraud log entries: %w", err)
	}

	return entries, nil
}

func (b *Badger) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	return b.db.Close()
}

func badgerKey(e Entry) []byte {
	key := make([]byte, 0, len(badgerKeyPrefix)+8+len(e.ID))
	key = append(key, badgerKeyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(e.Time.UnixNano()))
	return append(key, e.ID...)
}

type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	slog.Error(fmt.Sprintf("badger: "+format, args...))
}

func (badgerLogger) Warningf(format string, args ...any) {
	slog.Warn(fmt.Sprintf("badger: "+format, args...))
}

func (badgerLogger) Infof(format string, args ...any) {
	slog.Debug(fmt.Sprintf("badger: "+format, args...))
}

func (badgerLogger) Debugf(string, ...any) {}
