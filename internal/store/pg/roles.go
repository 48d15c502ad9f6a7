package pg

import (
	"context"

	"github.com/kateeridumb/Library/internal/store/core"
)

func (s *Store) ListRoles(ctx context.Context) ([]core.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Role
	for rows.Next() {
		var r core.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*core.Role, error) {
	var r core.Role
	if err := s.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).Scan(&r.ID, &r.Name); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *Store) GetRoleByID(ctx context.Context, id int64) (*core.Role, error) {
	var r core.Role
	if err := s.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE id = $1`, id).Scan(&r.ID, &r.Name); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}
