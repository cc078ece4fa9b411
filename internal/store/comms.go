package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Communication log. Each outbound call, SMS and email gets one row whatever
// channel carried it; status tells which ("initiated", "sent", "native").

func (s *Store) LogCall(ctx context.Context, c Call) (Call, error) {
	if c.CallType == "" {
		c.CallType = "outbound"
	}
	c.ID = uuid.New().String()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO calls (id, candidate_id, call_type, phone_number, duration, status, notes, twilio_call_sid, created_by, created_by_name)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING created_at`,
		c.ID, c.CandidateID, c.CallType, c.PhoneNumber, c.Duration, nullable(c.Status),
		nullable(c.Notes), nullable(c.TwilioCallSID), nullable(c.CreatedBy), nullable(c.CreatedByName),
	).Scan(&c.CreatedAt)
	return c, err
}

func (s *Store) LogSMS(ctx context.Context, m SMS) (SMS, error) {
	if m.Direction == "" {
		m.Direction = "outbound"
	}
	m.ID = uuid.New().String()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sms_messages (id, candidate_id, direction, phone_number, message_body, status, twilio_message_sid, created_by, created_by_name)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING created_at`,
		m.ID, m.CandidateID, m.Direction, m.PhoneNumber, m.MessageBody, nullable(m.Status),
		nullable(m.TwilioMessageSID), nullable(m.CreatedBy), nullable(m.CreatedByName),
	).Scan(&m.CreatedAt)
	return m, err
}

func (s *Store) LogEmail(ctx context.Context, e Email) (Email, error) {
	if e.Direction == "" {
		e.Direction = "outbound"
	}
	e.ID = uuid.New().String()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO emails (id, candidate_id, direction, to_email, from_email, subject, body, status, gmail_message_id, created_by, created_by_name)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING created_at`,
		e.ID, e.CandidateID, e.Direction, e.ToEmail, nullable(e.FromEmail), e.Subject, e.Body,
		nullable(e.Status), nullable(e.GmailMessageID), nullable(e.CreatedBy), nullable(e.CreatedByName),
	).Scan(&e.CreatedAt)
	return e, err
}

func (s *Store) CallHistory(ctx context.Context, candidateID string) ([]Call, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, candidate_id::text, call_type, phone_number, duration,
		        COALESCE(status,''), COALESCE(notes,''), COALESCE(twilio_call_sid,''),
		        COALESCE(created_by,''), COALESCE(created_by_name,''), created_at
		 FROM calls WHERE candidate_id = $1 ORDER BY created_at DESC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.ID, &c.CandidateID, &c.CallType, &c.PhoneNumber, &c.Duration,
			&c.Status, &c.Notes, &c.TwilioCallSID, &c.CreatedBy, &c.CreatedByName, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SMSHistory(ctx context.Context, candidateID string) ([]SMS, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, candidate_id::text, direction, phone_number, message_body,
		        COALESCE(status,''), COALESCE(twilio_message_sid,''),
		        COALESCE(created_by,''), COALESCE(created_by_name,''), created_at
		 FROM sms_messages WHERE candidate_id = $1 ORDER BY created_at DESC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SMS, error) {
		var m SMS
		err := row.Scan(&m.ID, &m.CandidateID, &m.Direction, &m.PhoneNumber, &m.MessageBody,
			&m.Status, &m.TwilioMessageSID, &m.CreatedBy, &m.CreatedByName, &m.CreatedAt)
		return m, err
	})
}

func (s *Store) EmailHistory(ctx context.Context, candidateID string) ([]Email, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, candidate_id::text, direction, to_email, COALESCE(from_email,''), subject, body,
		        COALESCE(status,''), COALESCE(gmail_message_id,''),
		        COALESCE(created_by,''), COALESCE(created_by_name,''), created_at
		 FROM emails WHERE candidate_id = $1 ORDER BY created_at DESC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Email, error) {
		var e Email
		err := row.Scan(&e.ID, &e.CandidateID, &e.Direction, &e.ToEmail, &e.FromEmail, &e.Subject, &e.Body,
			&e.Status, &e.GmailMessageID, &e.CreatedBy, &e.CreatedByName, &e.CreatedAt)
		return e, err
	})
}
