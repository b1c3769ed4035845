package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"querypilot/models"
)

const (
	trainingPrefix = "training:"
	historyPrefix  = "history:"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("not found")

type DB struct {
	badgerDB *badger.DB
}

func New(dbPath string) (*DB, error) {
	return open(badger.DefaultOptions(dbPath))
}

// NewInMemory opens a store that lives only as long as the process.
func NewInMemory() (*DB, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*DB, error) {
	opts.Logger = nil // Disable badger logging for cleaner output

	badgerDB, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{badgerDB: badgerDB}, nil
}

func (d *DB) Close() error {
	return d.badgerDB.Close()
}

// StoreTrainingItem records a trained item under its vector store id.
func (d *DB) StoreTrainingItem(item models.TrainingItem) error {
	if item.ID == "" {
		return fmt.Errorf("training item has no id")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(trainingPrefix+item.ID), data)
	})
}

func (d *DB) GetTrainingItem(id string) (models.TrainingItem, error) {
	var item models.TrainingItem
	err := d.badgerDB.View(func(txn *badger.Txn) error {
		entry, err := txn.Get([]byte(trainingPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			return json.Unmarshal(val, &item)
		})
	})
	return item, err
}

// GetTrainingItems returns every trained item, oldest first.
func (d *DB) GetTrainingItems() ([]models.TrainingItem, error) {
	var items []models.TrainingItem

	err := d.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(trainingPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var item models.TrainingItem
				if err := json.Unmarshal(val, &item); err != nil {
					return err
				}
				items = append(items, item)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortByCreated(items)
	return items, nil
}

func (d *DB) DeleteTrainingItem(id string) error {
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		key := []byte(trainingPrefix + id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// StoreHistory appends an asked question to the history.
func (d *DB) StoreHistory(entry models.HistoryEntry) error {
	if entry.AskedAt.IsZero() {
		entry.AskedAt = time.Now()
	}
	// Zero padded so keys sort chronologically.
	entry.ID = fmt.Sprintf("%020d", entry.AskedAt.UnixNano())

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return d.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(historyPrefix+entry.ID), data)
	})
}

// GetHistory returns up to limit entries, newest first. limit <= 0 means all.
func (d *DB) GetHistory(limit int) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry

	err := d.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(historyPrefix)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the last key carrying the prefix.
		for it.Seek([]byte(historyPrefix + "\xff")); it.Valid(); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var entry models.HistoryEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return entries, err
}

// LoadDDLFilesFromDir reads every .sql file under dir as a DDL training item.
func LoadDDLFilesFromDir(dir string) ([]models.TrainingItem, error) {
	var items []models.TrainingItem

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".sql") {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if strings.TrimSpace(string(content)) == "" {
				return nil
			}

			items = append(items, models.TrainingItem{
				Kind:    models.TrainingKindDDL,
				Content: string(content),
			})
		}
		return nil
	})

	return items, err
}

func sortByCreated(items []models.TrainingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
