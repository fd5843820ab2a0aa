package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for staff account storage.
type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id string, req *UpdateUserRequest, passwordHash string) (*User, error)
	Delete(ctx context.Context, id string) error
	// CountActiveAdmins backs the last-admin guard.
	CountActiveAdmins(ctx context.Context) (int, error)
}

// InMemoryRepository keeps accounts in memory for tests and local runs.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*User
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]*User)}
}

func (r *InMemoryRepository) Create(ctx context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.Email == u.Email {
			return nil, ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	stored := *u
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.rows[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *row
	return &out, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(email)
	for _, row := range r.rows {
		if row.Email == email {
			out := *row
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*User, 0, len(r.rows))
	for _, row := range r.rows {
		c := *row
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateUserRequest, passwordHash string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Email != nil {
		for otherID, other := range r.rows {
			if otherID != id && other.Email == *req.Email {
				return nil, ErrEmailTaken
			}
		}
		row.Email = *req.Email
	}
	if req.Name != nil {
		row.Name = *req.Name
	}
	if passwordHash != "" {
		row.PasswordHash = passwordHash
	}
	if req.Role != nil {
		row.Role = Role(*req.Role)
	}
	if req.IsActive != nil {
		row.IsActive = *req.IsActive
	}
	row.UpdatedAt = time.Now().UTC()
	out := *row
	return &out, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *InMemoryRepository) CountActiveAdmins(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, row := range r.rows {
		if row.Role == RoleAdmin && row.IsActive {
			n++
		}
	}
	return n, nil
}
