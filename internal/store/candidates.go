package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"recruitflow/internal/candidate"
)

const candidateColumns = `id::text, first_name, last_name, email,
	COALESCE(phone,''), COALESCE(location,''),
	COALESCE(current_position,''), COALESCE(current_company,''),
	years_of_experience, COALESCE(expected_salary,''), COALESCE(citizenship,''),
	COALESCE(linkedin,''), COALESCE(portfolio,''), COALESCE(avatar,''),
	position, COALESCE(department,''), COALESCE(source,''), applied_date,
	resume_received, qualified, status, stage, rating, viewed,
	COALESCE(recruiter_id::text,''), version, created_at, updated_at`

func scanCandidate(row pgx.Row) (candidate.Candidate, error) {
	var c candidate.Candidate
	var qualified, status string
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email,
		&c.Phone, &c.Location,
		&c.CurrentPosition, &c.CurrentCompany,
		&c.YearsOfExperience, &c.ExpectedSalary, &c.Citizenship,
		&c.LinkedIn, &c.Portfolio, &c.Avatar,
		&c.Position, &c.Department, &c.Source, &c.AppliedDate,
		&c.ResumeReceived, &qualified, &status, &c.Stage, &c.Rating, &c.Viewed,
		&c.RecruiterID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	c.Qualified = candidate.Qualification(qualified)
	c.Status = candidate.Status(status)
	return c, err
}

func (s *Store) queryCandidates(ctx context.Context, q string, args ...any) ([]candidate.Candidate, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidate.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCandidates returns every candidate, newest first.
func (s *Store) ListCandidates(ctx context.Context) ([]candidate.Candidate, error) {
	return s.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates ORDER BY created_at DESC`)
}

func (s *Store) GetCandidate(ctx context.Context, id string) (candidate.Candidate, error) {
	return scanCandidate(s.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id))
}

// SearchCandidates matches names, position and email case-insensitively.
func (s *Store) SearchCandidates(ctx context.Context, query string) ([]candidate.Candidate, error) {
	pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query) + "%"
	return s.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR position ILIKE $1 OR email ILIKE $1
		 ORDER BY created_at DESC`, pattern)
}

// CreateCandidate inserts a validated input. New candidates always start as
// status new, stage Applied, unviewed.
func (s *Store) CreateCandidate(ctx context.Context, in candidate.CreateInput) (candidate.Candidate, error) {
	id := uuid.New().String()
	return scanCandidate(s.pool.QueryRow(ctx,
		`INSERT INTO candidates
		   (id, first_name, last_name, email, phone, location, position, department,
		    current_position, current_company, years_of_experience, source, recruiter_id,
		    status, stage, viewed, applied_date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,false,CURRENT_DATE)
		 RETURNING `+candidateColumns,
		id, in.FirstName, in.LastName, in.Email, nullable(in.Phone), nullable(in.Location),
		in.Position, nullable(in.Department), nullable(in.CurrentPosition),
		nullable(in.CurrentCompany), in.YearsOfExperience, nullable(in.Source),
		nullable(in.RecruiterID), string(candidate.StatusNew), candidate.DefaultStage(candidate.StatusNew),
	))
}

// UpdateCandidate writes the non-nil fields of p. Column names come from
// Patch.Columns, never from the caller.
func (s *Store) UpdateCandidate(ctx context.Context, id string, p candidate.Patch) (candidate.Candidate, error) {
	cols, vals := p.Columns()
	if len(cols) == 0 {
		return s.GetCandidate(ctx, id)
	}
	set := make([]string, len(cols))
	for i, col := range cols {
		set[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), i+2)
	}
	args := append([]any{id}, vals...)
	return scanCandidate(s.pool.QueryRow(ctx,
		`UPDATE candidates SET `+strings.Join(set, ", ")+` WHERE id = $1 RETURNING `+candidateColumns,
		args...))
}

// UpdateCandidateStatus changes status and stage and records the change as an
// activity in the same transaction.
func (s *Store) UpdateCandidateStatus(ctx context.Context, id string, ch candidate.StatusChange, by Actor) (candidate.Candidate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return candidate.Candidate{}, err
	}
	defer tx.Rollback(ctx)

	c, err := scanCandidate(tx.QueryRow(ctx,
		`UPDATE candidates SET status = $2, stage = $3 WHERE id = $1 RETURNING `+candidateColumns,
		id, string(ch.Status), ch.Stage))
	if err != nil {
		return candidate.Candidate{}, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO activities (id, candidate_id, activity_type, description, created_by, created_by_name)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.New().String(), id, string(ActivityStatusChange), "Status changed to "+ch.Stage,
		nullable(by.ID), nullable(by.Name)); err != nil {
		return candidate.Candidate{}, err
	}
	return c, tx.Commit(ctx)
}

func (s *Store) UpdateCandidateRating(ctx context.Context, id string, rating int) (candidate.Candidate, error) {
	return scanCandidate(s.pool.QueryRow(ctx,
		`UPDATE candidates SET rating = $2 WHERE id = $1 RETURNING `+candidateColumns, id, rating))
}

// MarkViewed is a no-op write for rows already viewed.
func (s *Store) MarkViewed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET viewed = true WHERE id = $1 AND viewed = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM candidates WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *Store) DeleteCandidate(ctx context.Context, id string) error {
	return exactlyOne(s.pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id))
}
