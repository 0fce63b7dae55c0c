package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/marmos91/davtree/pkg/content"
)

// MemoryContentStore implements content.ContentStore with in-memory byte
// slices.
//
// Suitable for testing, development, and ephemeral deployments where
// content does not need to survive a restart.
//
// Thread Safety:
// All operations are protected by a single read-write mutex.
type MemoryContentStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryContentStore creates an empty in-memory content store.
func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{blobs: make(map[string][]byte)}
}

// Write stores data under contentID, replacing any previous bytes.
func (s *MemoryContentStore) Write(ctx context.Context, contentID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[contentID] = stored
	return nil
}

// ReadAll returns the complete bytes for contentID.
func (s *MemoryContentStore) ReadAll(ctx context.Context, contentID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, exists := s.blobs[contentID]
	if !exists {
		return nil, content.ErrContentNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// Duplicate creates an independent copy of existing content.
func (s *MemoryContentStore) Duplicate(ctx context.Context, contentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob, exists := s.blobs[contentID]
	if !exists {
		return "", content.ErrContentNotFound
	}

	newID := uuid.NewString()
	copied := make([]byte, len(blob))
	copy(copied, blob)
	s.blobs[newID] = copied
	return newID, nil
}

// Delete removes the content. Deleting missing content succeeds.
func (s *MemoryContentStore) Delete(ctx context.Context, contentID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, contentID)
	return nil
}

// Exists reports whether content with this ID is stored.
func (s *MemoryContentStore) Exists(ctx context.Context, contentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.blobs[contentID]
	return exists, nil
}

// ListAll returns every stored content ID in unspecified order.
func (s *MemoryContentStore) ListAll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	return ids, nil
}

// UsedBytes returns the total stored bytes.
func (s *MemoryContentStore) UsedBytes(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var total uint64
	for _, blob := range s.blobs {
		total += uint64(len(blob))
	}
	return total, nil
}
