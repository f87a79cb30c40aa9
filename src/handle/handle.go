// Package handle keeps in-memory byte payloads addressable by an opaque
// reference until they are explicitly released.
package handle

import (
	"sync"

	"github.com/google/uuid"
)

type Handle string

type entry struct {
	data []byte
	mime string
}

type Store struct {
	mtx   sync.Mutex
	items map[Handle]entry
}

func NewStore() *Store {
	return &Store{
		items: map[Handle]entry{},
	}
}

// New registers data and returns a fresh handle for it.
func (s *Store) New(data []byte, mime string) Handle {
	h := Handle("blob:" + uuid.NewString())

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.items[h] = entry{data: data, mime: mime}

	return h
}

func (s *Store) Get(h Handle) ([]byte, string, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	e, ok := s.items[h]

	return e.data, e.mime, ok
}

// Release drops every given handle. Empty and unknown handles are ignored.
func (s *Store) Release(hs ...Handle) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, h := range hs {
		if h == "" {
			continue
		}
		delete(s.items, h)
	}
}

// Len is the number of live handles.
func (s *Store) Len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return len(s.items)
}
