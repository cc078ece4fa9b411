package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const activityColumns = `id::text, candidate_id::text, activity_type, description,
	COALESCE(created_by,''), COALESCE(created_by_name,''), created_at`

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	var typ string
	err := row.Scan(&a.ID, &a.CandidateID, &typ, &a.Description,
		&a.CreatedBy, &a.CreatedByName, &a.CreatedAt)
	a.Type = ActivityType(typ)
	return a, err
}

func (s *Store) queryActivities(ctx context.Context, q string, args ...any) ([]Activity, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecentActivities lists the newest activities across all candidates.
func (s *Store) RecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryActivities(ctx,
		`SELECT `+activityColumns+` FROM activities ORDER BY created_at DESC LIMIT $1`, limit)
}

func (s *Store) CandidateActivities(ctx context.Context, candidateID string) ([]Activity, error) {
	return s.queryActivities(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE candidate_id = $1 ORDER BY created_at DESC`,
		candidateID)
}

func (s *Store) CreateActivity(ctx context.Context, candidateID string, typ ActivityType, description string, by Actor) (Activity, error) {
	return scanActivity(s.pool.QueryRow(ctx,
		`INSERT INTO activities (id, candidate_id, activity_type, description, created_by, created_by_name)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+activityColumns,
		uuid.New().String(), candidateID, string(typ), description, nullable(by.ID), nullable(by.Name)))
}
