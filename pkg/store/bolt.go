package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"feed-ingest/pkg/domain"

	bolt "go.etcd.io/bbolt"
)

var (
	articlesBucket = []byte("articles")
	titlesBucket   = []byte("titles")
)

// boltRecord is the value stored under each sequence key
type boltRecord struct {
	Title string `json:"title"`
	domain.Article
}

// Bolt keeps articles in a bbolt file. The articles bucket is keyed by a
// big-endian sequence so cursor order is first-seen order; the titles bucket
// indexes title -> sequence key.
type Bolt struct {
	db   *bolt.DB
	path string
}

// OpenBolt opens or creates the bbolt file at path
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return &Bolt{db: db, path: path}, nil
}

// Load reads every record in sequence order
func (s *Bolt) Load(ctx context.Context) (*domain.Articles, error) {
	articles := domain.NewArticles()

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			articles.Add(rec.Title, rec.Article)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load bolt %s: %w", s.path, err)
	}
	return articles, nil
}

// Save appends the titles that are not stored yet in one transaction
func (s *Bolt) Save(ctx context.Context, articles *domain.Articles) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(articlesBucket)
		if err != nil {
			return err
		}
		idx, err := tx.CreateBucketIfNotExists(titlesBucket)
		if err != nil {
			return err
		}

		var saveErr error
		articles.Each(func(title string, article domain.Article) bool {
			if idx.Get(titleKey(title)) != nil {
				return true
			}

			seq, err := b.NextSequence()
			if err != nil {
				saveErr = err
				return false
			}
			value, err := json.Marshal(boltRecord{Title: title, Article: article})
			if err != nil {
				saveErr = fmt.Errorf("encode %q: %w", title, err)
				return false
			}

			key := seqKey(seq)
			if err := b.Put(key, value); err != nil {
				saveErr = err
				return false
			}
			if err := idx.Put(titleKey(title), key); err != nil {
				saveErr = err
				return false
			}
			return true
		})
		return saveErr
	})
	if err != nil {
		return fmt.Errorf("save bolt %s: %w", s.path, err)
	}
	return nil
}

// Close releases the file lock
func (s *Bolt) Close() error {
	return s.db.Close()
}

func (s *Bolt) String() string { return "bolt://" + s.path }

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// titleKey prefixes titles so the empty title is still a valid bolt key
func titleKey(title string) []byte {
	return []byte("t:" + title)
}
