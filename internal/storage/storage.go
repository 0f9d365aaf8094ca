package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/yukawa/shogiplay/internal/evalcache"
)

// Storage keys
const (
	keyCacheConfig      = "cache_config"
	keyMultiLevelConfig = "multilevel_config"
	keySessionStats     = "session_stats"
)

// SessionStats accumulates cache statistics across engine runs. Cache
// tables are never persisted; only their lifetime counters are.
type SessionStats struct {
	Sessions     int                     `json:"sessions"`
	Cumulative   evalcache.StatsSnapshot `json:"cumulative"`
	LastSession  evalcache.StatsSnapshot `json:"last_session"`
	LastRecorded time.Time               `json:"last_recorded"`
}

// Storage wraps BadgerDB for persistent engine state: the cache
// configuration in use and cumulative session statistics.
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database in the platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return OpenStorage(dbDir)
}

// OpenStorage opens the database in a specific directory.
func OpenStorage(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// getJSON unmarshals the stored value into v; found reports whether the
// key existed.
func (s *Storage) getJSON(key string, v any) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	return found, err
}

// SaveCacheConfig persists a validated single-tier cache configuration.
func (s *Storage) SaveCacheConfig(cfg evalcache.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.setJSON(keyCacheConfig, cfg)
}

// LoadCacheConfig loads the persisted cache configuration, falling back
// to defaults when none was saved. A stored but invalid document is an
// error, not a silent fallback.
func (s *Storage) LoadCacheConfig() (evalcache.Config, error) {
	cfg := evalcache.DefaultConfig()
	found, err := s.getJSON(keyCacheConfig, &cfg)
	if err != nil {
		return evalcache.Config{}, err
	}
	if found {
		if err := cfg.Validate(); err != nil {
			return evalcache.Config{}, err
		}
	}
	return cfg, nil
}

// SaveMultiLevelConfig persists a validated two-tier configuration.
func (s *Storage) SaveMultiLevelConfig(cfg evalcache.MultiLevelConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.setJSON(keyMultiLevelConfig, cfg)
}

// LoadMultiLevelConfig loads the persisted two-tier configuration,
// falling back to defaults when none was saved.
func (s *Storage) LoadMultiLevelConfig() (evalcache.MultiLevelConfig, error) {
	cfg := evalcache.DefaultMultiLevelConfig()
	found, err := s.getJSON(keyMultiLevelConfig, &cfg)
	if err != nil {
		return evalcache.MultiLevelConfig{}, err
	}
	if found {
		if err := cfg.Validate(); err != nil {
			return evalcache.MultiLevelConfig{}, err
		}
	}
	return cfg, nil
}

// LoadSessionStats loads accumulated statistics, empty if none were
// recorded yet.
func (s *Storage) LoadSessionStats() (*SessionStats, error) {
	stats := &SessionStats{}
	if _, err := s.getJSON(keySessionStats, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// RecordSession folds one session's final cache statistics into the
// accumulated totals.
func (s *Storage) RecordSession(snapshot evalcache.StatsSnapshot) error {
	stats, err := s.LoadSessionStats()
	if err != nil {
		return err
	}

	stats.Sessions++
	stats.Cumulative = stats.Cumulative.Merge(snapshot)
	stats.LastSession = snapshot
	stats.LastRecorded = time.Now()

	return s.setJSON(keySessionStats, stats)
}
