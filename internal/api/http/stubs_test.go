package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/user-service/internal/domain"
)

var seededRoles = []domain.Role{
	{ID: 1, Name: domain.RoleUser},
	{ID: 2, Name: domain.RoleAdmin},
	{ID: 3, Name: domain.RoleModerator},
}

type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.User
	grants map[int64][]int64
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]domain.User{}, grants: map[int64][]int64{}}
}

func (s *memStore) Create(_ context.Context, user *domain.User, roleIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC()
	user.ID, user.CreatedAt, user.UpdatedAt = s.nextID, now, now
	s.users[user.ID] = *user
	s.grants[user.ID] = append([]int64(nil), roleIDs...)
	return nil
}

func (s *memStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.users[user.ID]; !ok || cur.IsDeleted() {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.GetByIDIncludingDeleted(ctx, id)
	if err != nil || user.IsDeleted() {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (s *memStore) GetByIDIncludingDeleted(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (s *memStore) GetEnabledByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username && user.Enabled && !user.IsDeleted() {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	return s.exists(func(u domain.User) bool { return u.Username == username }), nil
}

func (s *memStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return s.exists(func(u domain.User) bool { return u.Email == email }), nil
}

func (s *memStore) exists(match func(domain.User) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if !user.IsDeleted() && match(user) {
			return true
		}
	}
	return false
}

func (s *memStore) List(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	for _, user := range s.users {
		if !user.IsDeleted() {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SoftDelete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok || user.IsDeleted() {
		return pgx.ErrNoRows
	}
	now := time.Now().UTC()
	user.DeletedAt = &now
	s.users[id] = user
	return nil
}

func (s *memStore) Restore(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok || !user.IsDeleted() {
		return pgx.ErrNoRows
	}
	user.DeletedAt = nil
	s.users[id] = user
	return nil
}

// memRoles implements repository.RoleRepository over memStore grants.
type memRoles struct {
	store *memStore
}

func (r memRoles) GetByName(_ context.Context, name string) (*domain.Role, error) {
	for _, role := range seededRoles {
		if role.Name == name {
			role := role
			return &role, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memRoles) NamesForUser(_ context.Context, userID int64) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var names []string
	for _, id := range r.store.grants[userID] {
		for _, role := range seededRoles {
			if role.ID == id {
				names = append(names, role.Name)
			}
		}
	}
	return names, nil
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error {
	return p.err
}
