package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/user-service/internal/domain"
)

// RoleRepository manages roles and their assignment to users.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	NamesForUser(ctx context.Context, userID int64) ([]string, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository constructs repository.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var role domain.Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	const query = `
        SELECT id, name, description, created_at, updated_at
        FROM roles WHERE name=$1 AND deleted_at IS NULL`
	return scanRole(r.pool.QueryRow(ctx, query, name))
}

// NamesForUser returns the user's role names ordered by assignment time.
func (r *roleRepository) NamesForUser(ctx context.Context, userID int64) ([]string, error) {
	const query = `
        SELECT ro.name
        FROM user_roles ur
        JOIN roles ro ON ro.id = ur.role_id
        WHERE ur.user_id=$1 AND ro.deleted_at IS NULL
        ORDER BY ur.created_at, ro.id`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
