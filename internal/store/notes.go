package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const noteColumns = `id::text, candidate_id::text, content, note_type,
	COALESCE(created_by,''), created_by_name, created_at, updated_at`

func scanNote(row pgx.Row) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.CandidateID, &n.Content, &n.NoteType,
		&n.CreatedBy, &n.CreatedByName, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (s *Store) ListNotes(ctx context.Context, candidateID string) ([]Note, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE candidate_id = $1 ORDER BY created_at DESC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CreateNote inserts a note. When the author is known a note_added activity
// is written in the same transaction.
func (s *Store) CreateNote(ctx context.Context, candidateID, content, noteType string, by Actor) (Note, error) {
	if noteType == "" {
		noteType = "general"
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Note{}, err
	}
	defer tx.Rollback(ctx)

	n, err := scanNote(tx.QueryRow(ctx,
		`INSERT INTO notes (id, candidate_id, content, note_type, created_by, created_by_name)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+noteColumns,
		uuid.New().String(), candidateID, content, noteType, nullable(by.ID), by.Name))
	if err != nil {
		return Note{}, err
	}
	if by.ID != "" {
		if _, err := tx.Exec(ctx,
			`INSERT INTO activities (id, candidate_id, activity_type, description, created_by, created_by_name)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			uuid.New().String(), candidateID, string(ActivityNoteAdded), "Note added: "+noteType,
			by.ID, nullable(by.Name)); err != nil {
			return Note{}, err
		}
	}
	return n, tx.Commit(ctx)
}

func (s *Store) UpdateNote(ctx context.Context, id, content string) (Note, error) {
	return scanNote(s.pool.QueryRow(ctx,
		`UPDATE notes SET content = $2 WHERE id = $1 RETURNING `+noteColumns, id, content))
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	return exactlyOne(s.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id))
}
