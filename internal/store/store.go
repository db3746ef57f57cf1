// Package store keeps named fitted pipelines in a bbolt file so that the
// serve command can pick up a model trained by an earlier run.
//
// Each entry holds the pipeline JSON document together with the metrics it
// scored when it was saved.
package store

import (
	"encoding/json"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/YuminosukeSato/taxifare/pipeline"
	"github.com/YuminosukeSato/taxifare/pkg/errors"
)

const pipelinesBucket = "pipelines"

// ErrNotFound is returned when no pipeline is stored under a name.
var ErrNotFound = errors.New("pipeline not found")

// Entry describes one stored pipeline without decoding it.
type Entry struct {
	Name    string            `json:"name"`
	SavedAt time.Time         `json:"saved_at"`
	Metrics *pipeline.Metrics `json:"metrics,omitempty"`
}

type record struct {
	Entry
	Pipeline json.RawMessage `json:"pipeline"`
}

// Store is a pipeline registry backed by bbolt. It is safe for concurrent use.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the registry file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.NewModelError("store.Open", "failed to open database", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(pipelinesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.NewModelError("store.Open", "create pipelines bucket", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores p under name, replacing any previous entry. metrics may be nil.
func (s *Store) Save(name string, p *pipeline.FittedPipeline, metrics *pipeline.Metrics) error {
	if name == "" {
		return errors.NewValidationError("name", "cannot be empty", name)
	}
	doc, err := p.Marshal()
	if err != nil {
		return err
	}
	data, err := json.Marshal(record{
		Entry:    Entry{Name: name, SavedAt: s.now().UTC(), Metrics: metrics},
		Pipeline: doc,
	})
	if err != nil {
		return errors.NewModelError("store.Save", "marshal entry", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(pipelinesBucket)).Put([]byte(name), data)
	})
}

func (s *Store) get(name string) (record, error) {
	var rec record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(pipelinesBucket)).Get([]byte(name))
		if data == nil {
			return errors.Wrapf(ErrNotFound, "name %q", name)
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return errors.NewModelError("store.Load", "unmarshal entry", err)
		}
		return nil
	})
	return rec, err
}

// Load decodes the pipeline stored under name.
func (s *Store) Load(name string) (*pipeline.FittedPipeline, Entry, error) {
	rec, err := s.get(name)
	if err != nil {
		return nil, Entry{}, err
	}
	p, err := pipeline.Unmarshal(rec.Pipeline)
	if err != nil {
		return nil, Entry{}, err
	}
	return p, rec.Entry, nil
}

// List returns every entry sorted by name.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(pipelinesBucket)).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // skip malformed entries
			}
			entries = append(entries, rec.Entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Delete removes name. Deleting a missing name returns ErrNotFound.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(pipelinesBucket))
		if b.Get([]byte(name)) == nil {
			return errors.Wrapf(ErrNotFound, "name %q", name)
		}
		return b.Delete([]byte(name))
	})
}
