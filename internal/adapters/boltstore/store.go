// Package boltstore keeps the CLI's session cache and backend cookies in a
// local bbolt file.
package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.etcd.io/bbolt"

	"github.com/fixzone/fixzone-portal/internal/ports"
)

var (
	stateBucket   = []byte("state")
	cookiesBucket = []byte("cookies")
)

// StateStorage is a bbolt-backed ports.StateStorage.
type StateStorage struct {
	db *bbolt.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*StateStorage, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{stateBucket, cookiesBucket} {
			if _, berr := tx.CreateBucketIfNotExists(name); berr != nil {
				return berr
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init bolt buckets: %w", err), db.Close())
	}
	return &StateStorage{db: db}, nil
}

// Close releases the file lock.
func (s *StateStorage) Close() error { return s.db.Close() }

func (s *StateStorage) Load(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(stateBucket).Get([]byte(key))
		if v == nil {
			return ports.ErrStateNotFound
		}
		// bbolt values are only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (s *StateStorage) Save(_ context.Context, key string, data []byte) error {
	if key == "" {
		return errors.New("state key cannot be empty")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(key), data)
	})
}

func (s *StateStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Delete([]byte(key))
	})
}

type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

// SaveCookies replaces the cookies remembered for origin.
func (s *StateStorage) SaveCookies(origin string, cookies []*http.Cookie) error {
	list := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		list = append(list, storedCookie{
			Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain,
			Expires: c.Expires, Secure: c.Secure, HttpOnly: c.HttpOnly,
		})
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cookiesBucket).Put([]byte(origin), data)
	})
}

// LoadCookies returns the unexpired cookies remembered for origin.
func (s *StateStorage) LoadCookies(origin string, now time.Time) ([]*http.Cookie, error) {
	var list []storedCookie
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(cookiesBucket).Get([]byte(origin))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &list)
	})
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}

	out := make([]*http.Cookie, 0, len(list))
	for _, c := range list {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		out = append(out, &http.Cookie{
			Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain,
			Expires: c.Expires, Secure: c.Secure, HttpOnly: c.HttpOnly,
		})
	}
	return out, nil
}

// ClearCookies forgets every cookie stored for origin.
func (s *StateStorage) ClearCookies(origin string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cookiesBucket).Delete([]byte(origin))
	})
}
