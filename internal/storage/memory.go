package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore keeps everything in process memory. The address history is a
// bounded LRU so a roaming client does not accumulate stale subnets forever.
type MemoryStore struct {
	mu          sync.RWMutex
	session     string
	credentials Credentials
	addresses   *lru.Cache[string, struct{}]
}

// NewMemoryStore creates a store holding at most maxAddresses addresses.
func NewMemoryStore(creds Credentials, maxAddresses int) (*MemoryStore, error) {
	cache, err := lru.New[string, struct{}](maxAddresses)
	if err != nil {
		return nil, fmt.Errorf("create address cache: %w", err)
	}
	return &MemoryStore{
		credentials: creds,
		addresses:   cache,
	}, nil
}

func (s *MemoryStore) Session(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, nil
}

func (s *MemoryStore) SetSession(_ context.Context, token string) error {
	s.mu.Lock()
	s.session = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LastSuccessfulAddress(_ context.Context, addr string) error {
	s.addresses.Add(addr, struct{}{})
	return nil
}

func (s *MemoryStore) LastSuccessfulAddresses(context.Context) ([]string, error) {
	// Keys are ordered oldest to newest.
	keys := s.addresses.Keys()
	slices.Reverse(keys)
	return keys, nil
}

func (s *MemoryStore) Email(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials.Email, nil
}

func (s *MemoryStore) Password(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials.Password, nil
}

func (s *MemoryStore) SetCredentials(_ context.Context, email, password string) error {
	s.mu.Lock()
	s.credentials = Credentials{Email: email, Password: password}
	s.mu.Unlock()
	return nil
}
