package supervisor

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const backoffBucket = "backoff"

// backoffState is the per-stem dispatch bookkeeping the supervisor keeps
// across scans: when a re-queued stem may be dispatched again, and how
// many re-queues of any kind it has accrued since it was last cleared.
type backoffState struct {
	NextAttempt time.Time `json:"next_attempt"`
	FailCount   int       `json:"fail_count"`
}

// Registry persists supervisor-only dispatch/backoff bookkeeping. It is
// deliberately separate from the per-shard cursor file: the cursor format
// is a fixed on-disk contract shared with producers and other readers,
// while this bookkeeping is internal to one supervisor process and never
// read by a tailer.
type Registry struct {
	db *bbolt.DB
}

// OpenRegistry opens (creating if absent) the bbolt database at path.
func OpenRegistry(path string) (*Registry, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(backoffBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: create bucket: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Eligible reports whether stem may be dispatched now: it has no recorded
// backoff state, or its NextAttempt has passed.
func (r *Registry) Eligible(stem string) (bool, error) {
	var eligible = true
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(backoffBucket))
		val := b.Get([]byte(stem))
		if val == nil {
			return nil
		}
		var st backoffState
		if err := json.Unmarshal(val, &st); err != nil {
			return nil
		}
		eligible = !time.Now().Before(st.NextAttempt)
		return nil
	})
	return eligible, err
}

// FailCount returns the currently recorded consecutive-failure count for
// stem, or 0 if it has no backoff state.
func (r *Registry) FailCount(stem string) (int, error) {
	var count int
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(backoffBucket))
		val := b.Get([]byte(stem))
		if val == nil {
			return nil
		}
		var st backoffState
		if err := json.Unmarshal(val, &st); err != nil {
			return nil
		}
		count = st.FailCount
		return nil
	})
	return count, err
}

// RecordRequeue schedules stem for a retry after delay and increments its
// failure count. Used for open-error re-queues (no delay growth expected)
// and general-failure re-queues (exponential backoff is the caller's
// responsibility via a growing delay).
func (r *Registry) RecordRequeue(stem string, delay time.Duration) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(backoffBucket))

		var st backoffState
		if val := b.Get([]byte(stem)); val != nil {
			_ = json.Unmarshal(val, &st)
		}
		st.FailCount++
		st.NextAttempt = time.Now().Add(delay)

		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		return b.Put([]byte(stem), data)
	})
}

// Clear removes any backoff state for stem. The supervisor calls it on a
// successful exit; a give-up (operator-review) exit is parked with a long
// RecordRequeue delay instead.
func (r *Registry) Clear(stem string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(backoffBucket))
		return b.Delete([]byte(stem))
	})
}
