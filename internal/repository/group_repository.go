package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/silicity/silicity-server/internal/domain"
)

type GroupRepository interface {
	Create(ctx context.Context, g *domain.Group) (*domain.Group, error)
	FindByID(ctx context.Context, id int64) (*domain.Group, error)
	ListOpenPublic(ctx context.Context) ([]domain.Group, error)
	AddMember(ctx context.Context, groupID, userID int64) error
	RemoveMember(ctx context.Context, groupID, userID int64) error
	SetStatusVisibility(ctx context.Context, groupID int64, status, visibility string) error
}

type groupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) GroupRepository {
	return &groupRepository{pool: pool}
}

const groupCols = `id, name, topic, description, admin_id, status, visibility, is_project_team, created_at, updated_at`

func (r *groupRepository) Create(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO study_groups (name, topic, description, admin_id, status, visibility, is_project_team)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + groupCols

	var out domain.Group
	err = tx.QueryRow(ctx, q,
		g.Name, g.Topic, g.Description, g.AdminID, g.Status, g.Visibility, g.IsProjectTeam,
	).Scan(
		&out.ID, &out.Name, &out.Topic, &out.Description, &out.AdminID,
		&out.Status, &out.Visibility, &out.IsProjectTeam, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, memberID := range g.Members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			out.ID, memberID,
		); err != nil {
			return nil, err
		}
		out.Members = append(out.Members, memberID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID loads the group together with its current roster. The realtime
// layer calls this on every send, so the roster it sees is always the latest
// committed one.
func (r *groupRepository) FindByID(ctx context.Context, id int64) (*domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `SELECT ` + groupCols + ` FROM study_groups WHERE id = $1`

	var g domain.Group
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&g.ID, &g.Name, &g.Topic, &g.Description, &g.AdminID,
		&g.Status, &g.Visibility, &g.IsProjectTeam, &g.CreatedAt, &g.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT user_id FROM group_members WHERE group_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		g.Members = append(g.Members, userID)
	}
	return &g, rows.Err()
}

func (r *groupRepository) ListOpenPublic(ctx context.Context) ([]domain.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const q = `
		SELECT ` + groupCols + ` FROM study_groups
		WHERE visibility = 'public' AND status = 'open'
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(
			&g.ID, &g.Name, &g.Topic, &g.Description, &g.AdminID,
			&g.Status, &g.Visibility, &g.IsProjectTeam, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *groupRepository) AddMember(ctx context.Context, groupID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		groupID, userID,
	)
	return err
}

// RemoveMember is idempotent; removing a non-member is a no-op.
func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	return err
}

func (r *groupRepository) SetStatusVisibility(ctx context.Context, groupID int64, status, visibility string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`UPDATE study_groups SET status = $2, visibility = $3, updated_at = now() WHERE id = $1`,
		groupID, status, visibility,
	)
	return err
}
