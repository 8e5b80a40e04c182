package storage

import (
	"context"
	"sort"
	"sync"

	"OCRPortal/internal/domain"
	"OCRPortal/internal/ports"
)

// MemoryRepository keeps users and documents in process memory. Records are
// copied on the way in and out so callers never share state with the store.
type MemoryRepository struct {
	mu         sync.RWMutex
	users      map[int64]domain.User
	documents  map[int64]domain.Document
	nextUserID int64
	nextDocID  int64
}

var _ ports.Store = (*MemoryRepository)(nil)

// NewMemoryRepository builds an empty store whose ids start at 1.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      map[int64]domain.User{},
		documents:  map[int64]domain.Document{},
		nextUserID: 1,
		nextDocID:  1,
	}
}

// GetUser returns the user with id or nil when absent.
func (r *MemoryRepository) GetUser(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// GetUserByUsername looks a user up by exact username.
func (r *MemoryRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// CreateUser stores a user under the next id.
func (r *MemoryRepository) CreateUser(_ context.Context, in domain.NewUser) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == in.Username {
			return nil, ErrDuplicateUsername
		}
	}

	user := domain.User{ID: r.nextUserID, Username: in.Username, Password: in.Password}
	r.nextUserID++
	r.users[user.ID] = user
	return &user, nil
}

// GetDocument returns the document with id or nil when absent.
func (r *MemoryRepository) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.documents[id]
	if !ok {
		return nil, nil
	}
	out := doc.Clone()
	return &out, nil
}

// ListDocuments returns documents in creation (id) order.
func (r *MemoryRepository) ListDocuments(_ context.Context) ([]domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Document, 0, len(r.documents))
	for _, doc := range r.documents {
		result = append(result, doc.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CreateDocument stores a document with status uploaded.
func (r *MemoryRepository) CreateDocument(_ context.Context, in domain.NewDocument) (*domain.Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc := in.Build(r.nextDocID)
	r.nextDocID++
	r.documents[doc.ID] = doc

	out := doc.Clone()
	return &out, nil
}

// UpdateDocument applies the set fields of patch and returns the result.
func (r *MemoryRepository) UpdateDocument(_ context.Context, id int64, patch domain.DocumentPatch) (*domain.Document, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(&doc)
	r.documents[id] = doc

	out := doc.Clone()
	return &out, nil
}

// DeleteDocument removes the document and reports whether it existed.
func (r *MemoryRepository) DeleteDocument(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.documents[id]; !ok {
		return false, nil
	}
	delete(r.documents, id)
	return true, nil
}

// Close is a no-op; the store lives as long as the process.
func (r *MemoryRepository) Close() error {
	return nil
}
