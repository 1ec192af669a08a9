package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pcurran/diarist/pkg/store"
)

// AppointmentStoreImpl mirrors calendar mutations into the appointments table.
//
// Obtain one via [Store.Appointments] rather than constructing directly.
// All methods are safe for concurrent use.
type AppointmentStoreImpl struct {
	pool *pgxpool.Pool
}

// RecordAppointment implements [store.AppointmentStore]. Re-recording an
// existing event ID overwrites the prior row.
func (s *AppointmentStoreImpl) RecordAppointment(ctx context.Context, a store.Appointment) error {
	const q = `
		INSERT INTO appointments
		    (event_id, conversation_id, title, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO UPDATE SET
		    conversation_id = EXCLUDED.conversation_id,
		    title           = EXCLUDED.title,
		    start_time      = EXCLUDED.start_time,
		    end_time        = EXCLUDED.end_time,
		    status          = EXCLUDED.status,
		    updated_at      = now()`

	status := a.Status
	if status == "" {
		status = store.AppointmentScheduled
	}
	_, err := s.pool.Exec(ctx, q,
		a.EventID,
		a.ConversationID,
		a.Title,
		a.Start,
		a.End,
		string(status),
	)
	if err != nil {
		return fmt.Errorf("appointment store: record: %w", err)
	}
	return nil
}

// UpdateAppointment implements [store.AppointmentStore].
func (s *AppointmentStoreImpl) UpdateAppointment(ctx context.Context, eventID, title string, start, end time.Time) error {
	const q = `
		UPDATE appointments
		SET    title = $2, start_time = $3, end_time = $4, updated_at = now()
		WHERE  event_id = $1`

	tag, err := s.pool.Exec(ctx, q, eventID, title, start, end)
	if err != nil {
		return fmt.Errorf("appointment store: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAppointmentNotFound
	}
	return nil
}

// CancelAppointment implements [store.AppointmentStore]. The row is kept with
// status flipped to cancelled rather than deleted.
func (s *AppointmentStoreImpl) CancelAppointment(ctx context.Context, eventID string) error {
	const q = `
		UPDATE appointments
		SET    status = $2, updated_at = now()
		WHERE  event_id = $1`

	tag, err := s.pool.Exec(ctx, q, eventID, string(store.AppointmentCancelled))
	if err != nil {
		return fmt.Errorf("appointment store: cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAppointmentNotFound
	}
	return nil
}

// ListAppointments implements [store.AppointmentStore].
func (s *AppointmentStoreImpl) ListAppointments(ctx context.Context, conversationID string) ([]store.Appointment, error) {
	const q = `
		SELECT event_id, conversation_id, title, start_time, end_time, status, created_at, updated_at
		FROM   appointments
		WHERE  conversation_id = $1
		ORDER  BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("appointment store: list: %w", err)
	}

	appointments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Appointment, error) {
		var (
			a      store.Appointment
			status string
		)
		if err := row.Scan(
			&a.EventID,
			&a.ConversationID,
			&a.Title,
			&a.Start,
			&a.End,
			&status,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return store.Appointment{}, err
		}
		a.Status = store.AppointmentStatus(status)
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("appointment store: scan rows: %w", err)
	}
	if appointments == nil {
		appointments = []store.Appointment{}
	}
	return appointments, nil
}
