package reconcile

// Storage layer serialization strategy: encoding/json over bbolt buckets.
// The original accounting storage layer used a protobuf schema generated
// from a sibling proto/ package that is not part of this module; JSON is
// the ecosystem fallback that needs no code generation step.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Storage buckets for the reconciliation tables.
var (
	BucketApiRows  = []byte("api_rows")
	BucketErpRows  = []byte("erp_rows")
	BucketMatches  = []byte("matches")
	BucketUnrecApi = []byte("unrec_api")
	BucketUnrecErp = []byte("unrec_erp")
	BucketDaily    = []byte("daily")
	BucketMonthly  = []byte("monthly")
)

// SourceLoader reads a tenant's raw source rows for a date window. A
// TabularStore satisfies this by replaying rows previously written with
// PutSourceRows; a production deployment would instead wire in a bank/ERP
// extract reader and use TabularStore only as the ResultSink.
type SourceLoader interface {
	LoadWindow(ctx context.Context, tenantID string, from, to time.Time) ([]RawApiRow, []RawErpRow, error)
}

// ResultSink persists a completed Result.
type ResultSink interface {
	WriteResult(ctx context.Context, tenantID string, result *Result) error
}

// TabularStore is the bbolt-backed persistence adapter: persistence sits
// outside the core's concurrency model, behind a plain synchronous
// read/write boundary. Same bbolt.Open/Timeout/bucket-map shape as a
// typical bbolt-backed store, with JSON at the encode boundary.
type TabularStore struct {
	db *bbolt.DB
}

// NewTabularStore opens (creating if absent) the bbolt file at dbPath and
// provisions every bucket used by the pipeline's output tables.
func NewTabularStore(dbPath string) (*TabularStore, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store := &TabularStore{db: db}
	if err := store.initBuckets(); err != nil {
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return store, nil
}

func (s *TabularStore) Close() error {
	return s.db.Close()
}

func (s *TabularStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			BucketApiRows, BucketErpRows, BucketMatches,
			BucketUnrecApi, BucketUnrecErp, BucketDaily, BucketMonthly,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// PutSourceRows stages raw source rows for tenantID under api_rows/erp_rows,
// keyed by row id, so a later LoadWindow call can replay them. This is the
// ingestion-side counterpart to a production loader that would read
// directly from the bank API / ERP extract instead.
func (s *TabularStore) PutSourceRows(tenantID string, apiRows []RawApiRow, erpRows []RawErpRow) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		ab := tx.Bucket(BucketApiRows)
		for _, r := range apiRows {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to marshal api row: %w", err)
			}
			if err := ab.Put(rowKey(tenantID, r.ApiRowID), data); err != nil {
				return err
			}
		}
		eb := tx.Bucket(BucketErpRows)
		for _, r := range erpRows {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to marshal erp row: %w", err)
			}
			if err := eb.Put(rowKey(tenantID, r.ErpRowID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadWindow implements SourceLoader by scanning every staged row for
// tenantID and filtering to [from, to] in Go, since bbolt's cursor only
// orders by key and rows are keyed by (tenant, row_id) rather than date.
func (s *TabularStore) LoadWindow(ctx context.Context, tenantID string, from, to time.Time) ([]RawApiRow, []RawErpRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var apiRows []RawApiRow
	var erpRows []RawErpRow

	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := []byte(tenantID + "|")

		ab := tx.Bucket(BucketApiRows)
		c := ab.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var r RawApiRow
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to unmarshal api row: %w", err)
			}
			if rowDateInWindow(r.Date, from, to) {
				apiRows = append(apiRows, r)
			}
		}

		eb := tx.Bucket(BucketErpRows)
		c = eb.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var r RawErpRow
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to unmarshal erp row: %w", err)
			}
			if rowDateInWindow(r.Date, from, to) {
				erpRows = append(erpRows, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return apiRows, erpRows, nil
}

// WriteResult persists every output table of a completed run, each row
// keyed by tenant and position so repeated runs for the same tenant
// overwrite rather than accumulate ("idempotence").
func (s *TabularStore) WriteResult(ctx context.Context, tenantID string, result *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := putIndexed(tx, BucketMatches, tenantID, result.Matches); err != nil {
			return err
		}
		if err := putIndexed(tx, BucketUnrecApi, tenantID, result.UnrecApi); err != nil {
			return err
		}
		if err := putIndexed(tx, BucketUnrecErp, tenantID, result.UnrecErp); err != nil {
			return err
		}
		if err := putIndexed(tx, BucketDaily, tenantID, result.Daily); err != nil {
			return err
		}
		return putIndexed(tx, BucketMonthly, tenantID, result.Monthly)
	})
}

func putIndexed[T any](tx *bbolt.Tx, bucket []byte, tenantID string, rows []T) error {
	b := tx.Bucket(bucket)
	c := b.Cursor()
	prefix := []byte(tenantID + "|")
	var stale [][]byte
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		key := []byte(fmt.Sprintf("%s|%08d", tenantID, i))
		if err := b.Put(key, data); err != nil {
			return err
		}
	}
	return nil
}

func rowKey(tenantID string, rowID int64) []byte {
	return []byte(fmt.Sprintf("%s|%012d", tenantID, rowID))
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func rowDateInWindow(dateStr string, from, to time.Time) bool {
	d, err := parseDate(dateStr)
	if err != nil {
		return false
	}
	return !d.Before(dateOnly(from)) && !d.After(dateOnly(to))
}
