package matchstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/matchdayhq/matchday/go/internal/models"
	"github.com/matchdayhq/matchday/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// Postgres implements the store on top of database/sql. Atomicity for
// the pairing step and for status updates comes from transactions; the
// compare-and-delete and compare-and-set points are plain conditional
// writes checked through RowsAffected.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a store backed by the given database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) GetQueueEntry(ctx context.Context, teamID string) (*models.QueueEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT team_id, division, date, time_slot, enqueued_at, seq
		FROM queue_entries WHERE team_id = $1`, teamID)
	return scanQueueEntry(row)
}

func (s *Postgres) ListQueueEntries(ctx context.Context, key models.SlotKey) ([]models.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT team_id, division, date, time_slot, enqueued_at, seq
		FROM queue_entries
		WHERE division = $1 AND date = $2 AND time_slot = $3
		ORDER BY enqueued_at, seq`, key.Division, key.Date, key.TimeSlot)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var out []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		if err := rows.Scan(&e.TeamID, &e.Division, &e.Date, &e.TimeSlot, &e.EnqueuedAt, &e.Seq); err != nil {
			return nil, unavailable(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (s *Postgres) InsertQueueEntry(ctx context.Context, entry *models.QueueEntry) (*models.QueueEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO queue_entries (team_id, division, date, time_slot, enqueued_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_id) DO NOTHING
		RETURNING team_id, division, date, time_slot, enqueued_at, seq`,
		entry.TeamID, entry.Division, entry.Date, entry.TimeSlot, entry.EnqueuedAt)

	e, err := scanQueueEntry(row)
	if errors.Is(err, ErrNotFound) {
		// DO NOTHING swallowed the insert: the team is already queued.
		return nil, ErrConflict
	}
	return e, err
}

func (s *Postgres) DeleteQueueEntry(ctx context.Context, teamID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE team_id = $1`, teamID)
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteQueueEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE enqueued_at < $1`, cutoff)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (s *Postgres) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return scanMatch(s.db.QueryRowContext(ctx, matchSelect+` WHERE id = $1`, id))
}

func (s *Postgres) GetActiveMatchForTeam(ctx context.Context, teamID string) (*models.Match, error) {
	return scanMatch(s.db.QueryRowContext(ctx, matchSelect+`
		WHERE (team1_id = $1 OR team2_id = $1) AND NOT cancelled
		ORDER BY created_at DESC LIMIT 1`, teamID))
}

// PairMatch consumes the opponent's queue entry and creates the match
// and its outbox event in one transaction. The delete is conditioned on
// the entry's seq, so if a concurrent enqueue already paired against the
// same entry this returns ErrConflict and writes nothing.
func (s *Postgres) PairMatch(ctx context.Context, opponent models.QueueEntry, match *models.Match, event OutboxEvent) (*models.Match, error) {
	created := *match
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.Version = 1

	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM queue_entries WHERE team_id = $1 AND seq = $2`,
			opponent.TeamID, opponent.Seq)
		if err != nil {
			return unavailable(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return unavailable(err)
		}
		if n == 0 {
			return ErrConflict
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO matches (id, team1_id, team2_id, division, date, time_slot, status, cancelled, created_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			created.ID, created.Team1ID, created.Team2ID, created.Division,
			created.Date, created.TimeSlot, created.Status, created.Cancelled,
			created.CreatedAt, created.Version); err != nil {
			return unavailable(err)
		}

		return insertOutbox(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateMatchStatus applies a versioned status update and records the
// outbox event in the same transaction.
func (s *Postgres) UpdateMatchStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, status models.MatchStatus, cancelled bool, event OutboxEvent) (*models.Match, error) {
	var updated *models.Match
	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		m, err := scanMatch(tx.QueryRowContext(ctx, `
			UPDATE matches SET status = $2, cancelled = $3, version = version + 1
			WHERE id = $1 AND version = $4
			RETURNING id, team1_id, team2_id, division, date, time_slot, status, cancelled, created_at, version`,
			id, status, cancelled, expectedVersion))
		if errors.Is(err, ErrNotFound) {
			// Distinguish a missing match from a lost version race.
			if _, gerr := scanMatch(tx.QueryRowContext(ctx, matchSelect+` WHERE id = $1`, id)); gerr != nil {
				return gerr
			}
			return ErrConflict
		}
		if err != nil {
			return err
		}
		updated = m
		return insertOutbox(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListMatchesInWindow returns live matches kicking off in [from, to).
func (s *Postgres) ListMatchesInWindow(ctx context.Context, from, to time.Time) ([]models.Match, error) {
	rows, err := s.db.QueryContext(ctx, matchSelect+`
		WHERE NOT cancelled
		  AND date::date + make_interval(hours => time_slot) >= $1
		  AND date::date + make_interval(hours => time_slot) < $2
		ORDER BY date, time_slot`, from, to)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.Team1ID, &m.Team2ID, &m.Division, &m.Date,
			&m.TimeSlot, &m.Status, &m.Cancelled, &m.CreatedAt, &m.Version); err != nil {
			return nil, unavailable(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// MarkReminderSent flips reminder_sent from false to true exactly once.
// A second caller, including one on a concurrent tick, gets ErrConflict.
func (s *Postgres) MarkReminderSent(ctx context.Context, matchID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reminder_state (match_id, reminder_sent) VALUES ($1, TRUE)
		ON CONFLICT (match_id) DO UPDATE SET reminder_sent = TRUE
		WHERE reminder_state.reminder_sent = FALSE`, matchID)
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *Postgres) ReminderSent(ctx context.Context, matchID uuid.UUID) (bool, error) {
	var sent bool
	err := s.db.QueryRowContext(ctx,
		`SELECT reminder_sent FROM reminder_state WHERE match_id = $1`, matchID).Scan(&sent)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return sent, nil
}

func (s *Postgres) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, event_type, payload, created_at, sent_at
		FROM match_outbox WHERE sent_at IS NULL
		ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var (
			ev      OutboxEvent
			payload pqtype.NullRawMessage
			sentAt  sql.NullTime
		)
		if err := rows.Scan(&ev.ID, &ev.MatchID, &ev.EventType, &payload, &ev.CreatedAt, &sentAt); err != nil {
			return nil, unavailable(err)
		}
		ev.Payload = sqlutil.FromNullRawMessage(payload)
		ev.SentAt = sqlutil.FromSqlTime(sentAt)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (s *Postgres) MarkOutboxSent(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE match_outbox SET sent_at = now()
		WHERE id = ANY($1) AND sent_at IS NULL`, pq.Array(ids)); err != nil {
		return unavailable(err)
	}
	return nil
}

const matchSelect = `
	SELECT id, team1_id, team2_id, division, date, time_slot, status, cancelled, created_at, version
	FROM matches`

func insertOutbox(ctx context.Context, tx *sql.Tx, event OutboxEvent) error {
	id := event.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO match_outbox (id, match_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		id, event.MatchID, event.EventType, sqlutil.ToNullRawMessage(event.Payload)); err != nil {
		return unavailable(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueEntry(row rowScanner) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := row.Scan(&e.TeamID, &e.Division, &e.Date, &e.TimeSlot, &e.EnqueuedAt, &e.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &e, nil
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	err := row.Scan(&m.ID, &m.Team1ID, &m.Team2ID, &m.Division, &m.Date,
		&m.TimeSlot, &m.Status, &m.Cancelled, &m.CreatedAt, &m.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &m, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
