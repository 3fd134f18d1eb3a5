package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on the events and event_rsvps tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore on an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const eventColumns = `id, title, description, type, location, date, time, price, capacity, image,
	organizer_id, organizer_name, organizer_email, rsvp_count`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.Location, &e.Date, &e.Time,
		&e.Price, &e.Capacity, &e.Image, &e.OrganizerID, &e.OrganizerName, &e.OrganizerEmail, &e.RSVPCount)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEvent returns a single event or ErrEventNotFound.
func (s *PostgresStore) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return e, nil
}

// ToggleRSVP flips the user's membership transactionally. The counter
// is floored at zero on removal.
func (s *PostgresStore) ToggleRSVP(ctx context.Context, eventID, userID string) (bool, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin rsvp toggle: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, 0, fmt.Errorf("check event %s: %w", eventID, err)
	}
	if !exists {
		return false, 0, ErrEventNotFound
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM event_rsvps WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("remove rsvp: %w", err)
	}

	var (
		added bool
		count int
	)
	if tag.RowsAffected() > 0 {
		// Was a member: membership removed, counter decremented.
		err = tx.QueryRow(ctx,
			`UPDATE events SET rsvp_count = GREATEST(rsvp_count - 1, 0), updated_at = now()
			 WHERE id = $1 RETURNING rsvp_count`, eventID).Scan(&count)
		if err != nil {
			return false, 0, fmt.Errorf("decrement rsvp count: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_rsvps (event_id, user_id) VALUES ($1, $2)`, eventID, userID); err != nil {
			return false, 0, fmt.Errorf("add rsvp: %w", err)
		}
		err = tx.QueryRow(ctx,
			`UPDATE events SET rsvp_count = rsvp_count + 1, updated_at = now()
			 WHERE id = $1 RETURNING rsvp_count`, eventID).Scan(&count)
		if err != nil {
			return false, 0, fmt.Errorf("increment rsvp count: %w", err)
		}
		added = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit rsvp toggle: %w", err)
	}
	return added, count, nil
}

func (s *PostgresStore) listByDate(ctx context.Context, query string, from, to time.Time) ([]Event, error) {
	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// ListUpcoming returns events dated inside [from, to], both inclusive.
func (s *PostgresStore) ListUpcoming(ctx context.Context, from, to time.Time) ([]Event, error) {
	return s.listByDate(ctx,
		`SELECT `+eventColumns+` FROM events WHERE date >= $1 AND date <= $2 ORDER BY date`, from, to)
}

// ListConcluded returns events dated inside [from, to), upper bound exclusive.
func (s *PostgresStore) ListConcluded(ctx context.Context, from, to time.Time) ([]Event, error) {
	return s.listByDate(ctx,
		`SELECT `+eventColumns+` FROM events WHERE date >= $1 AND date < $2 ORDER BY date`, from, to)
}

// ListRSVPs returns the user ids in the event's RSVP set.
func (s *PostgresStore) ListRSVPs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM event_rsvps WHERE event_id = $1 ORDER BY created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rsvp row: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rsvps for event %s: %w", eventID, err)
	}
	return userIDs, nil
}
