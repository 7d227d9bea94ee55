package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:           testSecret,
			JWTExpirationMillis: 3600000,
			JWTIssuer:           "user-service",
			JWTAudience:         "user-service-api",
			BcryptCost:          bcrypt.MinCost,
		},
	}
}

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	roles  map[int64][]int64
	err    error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]*domain.User{}, roles: map[int64][]int64{}}
}

func (r *memUserRepo) add(t *testing.T, username, password string, enabled bool, roleIDs ...int64) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: hash, Enabled: enabled}
	require.NoError(t, r.Create(context.Background(), user, roleIDs))
	return user
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User, roleIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	now := time.Now().UTC()
	user.ID = r.nextID
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	r.users[user.ID] = &stored
	r.roles[user.ID] = append([]int64(nil), roleIDs...)
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[user.ID]
	if !ok || current.IsDeleted() {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now().UTC()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := r.GetByIDIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *memUserRepo) GetByIDIncludingDeleted(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetEnabledByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, user := range r.users {
		if user.Username == username && user.Enabled && !user.IsDeleted() {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username && !user.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email && !user.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, user := range r.users {
		if !user.IsDeleted() {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || user.IsDeleted() {
		return pgx.ErrNoRows
	}
	now := time.Now().UTC()
	user.DeletedAt = &now
	return nil
}

func (r *memUserRepo) Restore(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || !user.IsDeleted() {
		return pgx.ErrNoRows
	}
	user.DeletedAt = nil
	return nil
}

type memRoleRepo struct {
	users *memUserRepo
	roles []domain.Role
}

func newMemRoleRepo(users *memUserRepo) *memRoleRepo {
	return &memRoleRepo{
		users: users,
		roles: []domain.Role{
			{ID: 1, Name: domain.RoleUser},
			{ID: 2, Name: domain.RoleAdmin},
			{ID: 3, Name: domain.RoleModerator},
		},
	}
}

func (r *memRoleRepo) GetByName(_ context.Context, name string) (*domain.Role, error) {
	for i := range r.roles {
		if r.roles[i].Name == name {
			role := r.roles[i]
			return &role, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memRoleRepo) NamesForUser(_ context.Context, userID int64) ([]string, error) {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	var names []string
	for _, id := range r.users.roles[userID] {
		for _, role := range r.roles {
			if role.ID == id {
				names = append(names, role.Name)
			}
		}
	}
	return names, nil
}

type recordingDispatcher struct {
	events.Dispatcher
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) types() []events.EventType {
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}
