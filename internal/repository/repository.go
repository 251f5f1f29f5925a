// Package repository persists event aggregates. It uses pgx directly (no ORM):
// event metadata and the slot plan live in the events table, registrations in
// their own table, and every update is a single transaction.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = model.ErrNotFound

// ErrStaleVersion is returned when the event changed since it was loaded.
var ErrStaleVersion = fmt.Errorf("event was modified concurrently: %w", model.ErrConflict)

const eventColumns = `key, name, type, state, note, description, start_at, end_at,
	locations, slots, confirmation_requests_sent, version`

var registrationColumns = []string{
	"key", "event_key", "ordinal", "position_key", "user_key", "name", "note",
	"access_key", "confirmed_at", "arrival_date", "overnight_stay", "created_at",
}

// EventRepository handles persistence for event aggregates.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// FindByKey loads one aggregate or returns ErrNotFound.
func (r *EventRepository) FindByKey(ctx context.Context, key model.EventKey) (*model.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE key = $1`, key)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	regs, err := r.registrations(ctx, []model.EventKey{key})
	if err != nil {
		return nil, err
	}
	ev.Registrations = regs[key]
	return ev, nil
}

// ListByYear returns the events starting in the given calendar year (UTC),
// ordered by start.
func (r *EventRepository) ListByYear(ctx context.Context, year int) ([]*model.Event, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE start_at >= $1 AND start_at < $2
		 ORDER BY start_at ASC`,
		from, from.AddDate(1, 0, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	var keys []model.EventKey
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
		keys = append(keys, ev.Details.Key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(keys) == 0 {
		return events, nil
	}

	regs, err := r.registrations(ctx, keys)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		ev.Registrations = regs[ev.Details.Key]
	}
	return events, nil
}

// Create inserts a new aggregate at version 1.
func (r *EventRepository) Create(ctx context.Context, ev *model.Event) (err error) {
	locations, slots, err := marshalDetails(ev.Details)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)`,
		ev.Details.Key, ev.Details.Name, ev.Details.Type, ev.Details.State,
		ev.Details.Note, ev.Details.Description, ev.Details.Start, ev.Details.End,
		locations, slots, ev.Details.ConfirmationRequestsSent,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if err = copyRegistrations(ctx, tx, ev); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	ev.Details.Version = 1
	return nil
}

// Update writes the aggregate back if nobody else changed it since it was
// loaded.
//
// The event row is locked with SELECT ... FOR UPDATE so two writers holding
// the same version are serialised: the second one sees the bumped version and
// fails with ErrStaleVersion instead of silently overwriting the first.
func (r *EventRepository) Update(ctx context.Context, ev *model.Event) (err error) {
	locations, slots, err := marshalDetails(ev.Details)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var version int64
	err = tx.QueryRow(ctx, `SELECT version FROM events WHERE key = $1 FOR UPDATE`, ev.Details.Key).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}
	if version != ev.Details.Version {
		return ErrStaleVersion
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET name = $2, type = $3, state = $4, note = $5, description = $6,
		     start_at = $7, end_at = $8, locations = $9, slots = $10,
		     confirmation_requests_sent = $11, version = version + 1
		 WHERE key = $1`,
		ev.Details.Key, ev.Details.Name, ev.Details.Type, ev.Details.State,
		ev.Details.Note, ev.Details.Description, ev.Details.Start, ev.Details.End,
		locations, slots, ev.Details.ConfirmationRequestsSent,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM registrations WHERE event_key = $1`, ev.Details.Key); err != nil {
		return fmt.Errorf("clear registrations: %w", err)
	}
	if err = copyRegistrations(ctx, tx, ev); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	ev.Details.Version = version + 1
	return nil
}

// DeleteByKey removes the event and, by cascade, its registrations.
func (r *EventRepository) DeleteByKey(ctx context.Context, key model.EventKey) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EventRepository) registrations(ctx context.Context, keys []model.EventKey) (map[model.EventKey][]model.Registration, error) {
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = string(k)
	}
	rows, err := r.db.Query(ctx,
		`SELECT event_key, key, position_key, user_key, name, note, access_key,
		        confirmed_at, arrival_date, overnight_stay, created_at
		 FROM registrations
		 WHERE event_key = ANY($1)
		 ORDER BY event_key, ordinal ASC`,
		raw,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	out := make(map[model.EventKey][]model.Registration, len(keys))
	for rows.Next() {
		var (
			eventKey  model.EventKey
			reg       model.Registration
			accessKey *string
			note      *string
		)
		if err := rows.Scan(&eventKey, &reg.Key, &reg.PositionKey, &reg.UserKey, &reg.Name, &note,
			&accessKey, &reg.ConfirmedAt, &reg.ArrivalDate, &reg.OvernightStay, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if accessKey != nil {
			reg.AccessKey = *accessKey
		}
		if note != nil {
			reg.Note = *note
		}
		out[eventKey] = append(out[eventKey], reg)
	}
	return out, rows.Err()
}

func copyRegistrations(ctx context.Context, tx pgx.Tx, ev *model.Event) error {
	if len(ev.Registrations) == 0 {
		return nil
	}
	rows := make([][]any, len(ev.Registrations))
	for i, reg := range ev.Registrations {
		var accessKey *string
		if reg.AccessKey != "" {
			ak := reg.AccessKey
			accessKey = &ak
		}
		rows[i] = []any{
			reg.Key, ev.Details.Key, i, reg.PositionKey, reg.UserKey, reg.Name, reg.Note,
			accessKey, reg.ConfirmedAt, reg.ArrivalDate, reg.OvernightStay, reg.CreatedAt,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"registrations"}, registrationColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("insert registrations: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		ev        model.Event
		locations []byte
		slots     []byte
	)
	d := &ev.Details
	if err := row.Scan(&d.Key, &d.Name, &d.Type, &d.State, &d.Note, &d.Description, &d.Start, &d.End,
		&locations, &slots, &d.ConfirmationRequestsSent, &d.Version); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(locations, &d.Locations); err != nil {
		return nil, fmt.Errorf("decode locations of %s: %w", d.Key, err)
	}
	if err := json.Unmarshal(slots, &d.Slots); err != nil {
		return nil, fmt.Errorf("decode slots of %s: %w", d.Key, err)
	}
	return &ev, nil
}

func marshalDetails(d model.EventDetails) (locations, slots []byte, err error) {
	if d.Locations == nil {
		d.Locations = []model.Location{}
	}
	if d.Slots == nil {
		d.Slots = []model.Slot{}
	}
	if locations, err = json.Marshal(d.Locations); err != nil {
		return nil, nil, fmt.Errorf("encode locations: %w", err)
	}
	if slots, err = json.Marshal(d.Slots); err != nil {
		return nil, nil, fmt.Errorf("encode slots: %w", err)
	}
	return locations, slots, nil
}
