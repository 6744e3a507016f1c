// Package store is the Durable Store: a crash-safe, transactional record
// of processed deposits, pending mirrors, and the watermark, backed by
// Badger — the embedded KV engine this corpus already reaches for (see
// jeongkyun-oh-klaytn/storage/database/badger_database.go) — with three
// key prefixes standing in for the three tables of spec §6's on-disk
// schema.
package store

import (
	"encoding/json"
	"strconv"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	brerrors "vista-bridge/internal/bridge/errors"
	"vista-bridge/internal/bridge/model"
)

const (
	prefixProcessed = "processed_deposits:"
	prefixPending   = "pending_mirrors:"
	prefixConfigKey = "bridge_config:"

	configKeyLastSlot      = prefixConfigKey + "lastProcessedSlot"
	configKeyLastBlockHash = prefixConfigKey + "lastProcessedBlockHash"
)

// Store is the Durable Store contract from spec §4.1.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens (or creates) the embedded database at dir. Pass an empty dir
// for an ephemeral in-memory store, used by tests.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, brerrors.Wrap(brerrors.ClassStore, err, "open durable store")
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "close durable store")
	}
	return nil
}

type processedRow struct {
	DepositTxHash   string `json:"depositTxHash"`
	ProcessedAtMs   int64  `json:"processedAt"`
	MirrorTxHash    string `json:"mirrorTxHash"`
	Status          int    `json:"status"`
}

type pendingRow struct {
	Deposit      json.RawMessage `json:"deposit_data"`
	RetryCount   int             `json:"retry_count"`
	LastRetryAtMs int64          `json:"last_retry_at"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// AddProcessedDeposit upserts a terminal record by depositTxHash.
func (s *Store) AddProcessedDeposit(p model.ProcessedDeposit) error {
	row := processedRow{
		DepositTxHash: p.DepositTxHash,
		ProcessedAtMs: p.ProcessedAt.UnixMilli(),
		MirrorTxHash:  p.MirrorTxHash,
		Status:        int(p.Status),
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "marshal processed deposit")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixProcessed+p.DepositTxHash), raw)
	})
	if err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "write processed deposit")
	}
	return nil
}

// AddPendingMirror upserts a PendingMirror by depositTxHash.
func (s *Store) AddPendingMirror(pm model.PendingMirror) error {
	raw, err := s.encodePending(pm)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixPending+pm.DepositTxHash), raw)
	})
	if err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "write pending mirror")
	}
	return nil
}

func (s *Store) encodePending(pm model.PendingMirror) ([]byte, error) {
	depositRaw, err := marshalDeposit(pm.Deposit)
	if err != nil {
		return nil, brerrors.Wrap(brerrors.ClassStore, err, "marshal deposit")
	}
	row := pendingRow{
		Deposit:       depositRaw,
		RetryCount:    pm.RetryCount,
		LastRetryAtMs: pm.LastRetryAt.UnixMilli(),
		ErrorMessage:  pm.ErrorMessage,
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, brerrors.Wrap(brerrors.ClassStore, err, "marshal pending mirror")
	}
	return raw, nil
}

func decodePending(key string, raw []byte) (model.PendingMirror, error) {
	var row pendingRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.PendingMirror{}, brerrors.Wrap(brerrors.ClassStore, err, "unmarshal pending mirror")
	}
	deposit, err := unmarshalDeposit(row.Deposit)
	if err != nil {
		return model.PendingMirror{}, brerrors.Wrap(brerrors.ClassStore, err, "unmarshal deposit")
	}
	return model.PendingMirror{
		DepositTxHash: strings.TrimPrefix(key, prefixPending),
		Deposit:       deposit,
		RetryCount:    row.RetryCount,
		LastRetryAt:   msToTime(row.LastRetryAtMs),
		ErrorMessage:  row.ErrorMessage,
	}, nil
}

// UpdatePendingMirror updates only the retry metadata of an existing row.
// Reports via the bool return whether a matching row existed; it is a
// no-op (not an error) when no row exists.
func (s *Store) UpdatePendingMirror(depositTxHash string, retryCount int, errorMessage string) (bool, error) {
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixPending + depositTxHash)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		var raw []byte
		if raw, err = item.ValueCopy(nil); err != nil {
			return err
		}
		pm, err := decodePending(depositTxHash, raw)
		if err != nil {
			return err
		}
		pm.RetryCount = retryCount
		pm.ErrorMessage = errorMessage
		pm.LastRetryAt = nowFn()
		encoded, err := s.encodePending(pm)
		if err != nil {
			return err
		}
		return txn.Set(key, encoded)
	})
	if err != nil {
		return false, brerrors.Wrap(brerrors.ClassStore, err, "update pending mirror")
	}
	return found, nil
}

// RemovePendingMirror deletes a row by key, a no-op if it does not exist.
func (s *Store) RemovePendingMirror(depositTxHash string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixPending + depositTxHash))
	})
	if err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "remove pending mirror")
	}
	return nil
}

// PromotePendingToProcessed atomically removes the PendingMirror and
// inserts the ProcessedDeposit in one Badger transaction — the
// exactly-once boundary spec §4.1 requires.
func (s *Store) PromotePendingToProcessed(depositTxHash string, processed model.ProcessedDeposit) error {
	row := processedRow{
		DepositTxHash: processed.DepositTxHash,
		ProcessedAtMs: processed.ProcessedAt.UnixMilli(),
		MirrorTxHash:  processed.MirrorTxHash,
		Status:        int(processed.Status),
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "marshal processed deposit")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(prefixPending + depositTxHash)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set([]byte(prefixProcessed+depositTxHash), raw)
	})
	if err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "promote pending to processed")
	}
	return nil
}

// LoadBridgeState returns the full state snapshot: processed deposits,
// pending mirrors, and the watermark. A fresh database returns empty
// collections and the genesis watermark.
func (s *Store) LoadBridgeState() (model.BridgeState, error) {
	state := model.NewBridgeState()
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			switch {
			case strings.HasPrefix(key, prefixProcessed):
				raw, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				var row processedRow
				if err := json.Unmarshal(raw, &row); err != nil {
					return err
				}
				state.ProcessedDeposits[row.DepositTxHash] = model.ProcessedDeposit{
					DepositTxHash: row.DepositTxHash,
					ProcessedAt:   msToTime(row.ProcessedAtMs),
					MirrorTxHash:  row.MirrorTxHash,
					Status:        model.MirrorStatus(row.Status),
				}
			case strings.HasPrefix(key, prefixPending):
				raw, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				pm, err := decodePending(key, raw)
				if err != nil {
					return err
				}
				state.PendingMirrors[pm.DepositTxHash] = pm
			case key == configKeyLastSlot:
				raw, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if n, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
					state.Watermark.LastProcessedSlot = n
				}
			case key == configKeyLastBlockHash:
				raw, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				state.Watermark.LastProcessedBlockHash = string(raw)
			}
		}
		return nil
	})
	if err != nil {
		return model.BridgeState{}, brerrors.Wrap(brerrors.ClassStore, err, "load bridge state")
	}
	return state, nil
}

// GetPendingMirror fetches a single row by key. Returns (zero, false, nil)
// if no row exists.
func (s *Store) GetPendingMirror(depositTxHash string) (model.PendingMirror, bool, error) {
	var pm model.PendingMirror
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixPending + depositTxHash))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		pm, err = decodePending(string(item.Key()), raw)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return model.PendingMirror{}, false, brerrors.Wrap(brerrors.ClassStore, err, "get pending mirror")
	}
	return pm, found, nil
}

// ListPendingMirrors returns every PendingMirror currently stored.
func (s *Store) ListPendingMirrors() ([]model.PendingMirror, error) {
	var out []model.PendingMirror
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixPending)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			pm, err := decodePending(string(item.Key()), raw)
			if err != nil {
				return err
			}
			out = append(out, pm)
		}
		return nil
	})
	if err != nil {
		return nil, brerrors.Wrap(brerrors.ClassStore, err, "list pending mirrors")
	}
	return out, nil
}

// ListProcessedDeposits returns every terminal record, used by
// administrative cleanup and the admin HTTP surface.
func (s *Store) ListProcessedDeposits() ([]model.ProcessedDeposit, error) {
	var out []model.ProcessedDeposit
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixProcessed)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var row processedRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			out = append(out, model.ProcessedDeposit{
				DepositTxHash: row.DepositTxHash,
				ProcessedAt:   msToTime(row.ProcessedAtMs),
				MirrorTxHash:  row.MirrorTxHash,
				Status:        model.MirrorStatus(row.Status),
			})
		}
		return nil
	})
	if err != nil {
		return nil, brerrors.Wrap(brerrors.ClassStore, err, "list processed deposits")
	}
	return out, nil
}

// DeleteProcessedDeposit removes a terminal record, used by
// cleanupOldDeposits.
func (s *Store) DeleteProcessedDeposit(depositTxHash string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixProcessed + depositTxHash))
	})
	if err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "delete processed deposit")
	}
	return nil
}

// SaveWatermark persists the source adapter's last observed position.
func (s *Store) SaveWatermark(slot uint64, blockHash string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		buf := make([]byte, 0, 20)
		buf = strconv.AppendUint(buf, slot, 10)
		if err := txn.Set([]byte(configKeyLastSlot), buf); err != nil {
			return err
		}
		return txn.Set([]byte(configKeyLastBlockHash), []byte(blockHash))
	})
	if err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "save watermark")
	}
	return nil
}
