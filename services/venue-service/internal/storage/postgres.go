package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/venuebook/libs/db"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/availability"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/booking"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/outbox"
)

// Postgres keeps bookings and their outbox rows in one database. Every InTx
// is a single pgx transaction; Tx.Lock maps to transaction-scoped advisory
// locks, so two writers on the same date serialize while other dates proceed.
type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool, outboxRepo *outbox.Repository) *Postgres {
	return &Postgres{pool: pool, outbox: outboxRepo}
}

var _ booking.Store = (*Postgres)(nil)

const bookingColumns = `id, customer_name, phone, date, start_time, end_time, status,
	payment_status, advance, comments, created_by, created_at, updated_at`

func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx, outbox: p.outbox}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Get(ctx context.Context, id string) (model.Booking, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, booking.ErrNotFound
	}
	return b, err
}

func (p *Postgres) List(ctx context.Context, f booking.Filter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.From != "" {
		add("date >= $%d", f.From)
	}
	if f.To != "" {
		add("date <= $%d", f.To)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Phone != "" {
		args = append(args, f.Phone)
		where = append(where, fmt.Sprintf("(phone = $%d OR created_by = $%d)", len(args), len(args)))
	}

	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY date ASC, start_time ASC, id ASC`

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (p *Postgres) CommittedInRange(ctx context.Context, from, to string) ([]availability.Interval, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, date, start_time, end_time
		FROM bookings
		WHERE date >= $1 AND date <= $2
			AND status IN ('Reserved', 'Confirmed')
		ORDER BY date ASC, start_time ASC, id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectIntervals(rows)
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *pgTx) Lock(ctx context.Context, key string) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "venue:"+key)
	return err
}

func (t *pgTx) Get(ctx context.Context, id string) (model.Booking, bool, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

func (t *pgTx) CommittedOn(ctx context.Context, date string) ([]availability.Interval, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, date, start_time, end_time
		FROM bookings
		WHERE date = $1 AND status IN ('Reserved', 'Confirmed')
		ORDER BY start_time ASC, id ASC
	`, date)
	if err != nil {
		return nil, err
	}
	return collectIntervals(rows)
}

func (t *pgTx) Insert(ctx context.Context, b model.Booking) error {
	createdAt, err := parseTimestamp(b.CreatedAt)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL)
	`, b.ID, b.CustomerName, b.Phone, b.Date, b.StartTime, b.EndTime, string(b.Status),
		b.PaymentStatus, b.Advance, b.Comments, b.CreatedBy, createdAt)
	return err
}

func (t *pgTx) Update(ctx context.Context, b model.Booking) error {
	updatedAt, err := parseTimestamp(b.UpdatedAt)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE bookings
		SET customer_name = $2,
			phone = $3,
			date = $4,
			start_time = $5,
			end_time = $6,
			status = $7,
			payment_status = $8,
			advance = $9,
			comments = $10,
			created_by = $11,
			updated_at = $12
		WHERE id = $1
	`, b.ID, b.CustomerName, b.Phone, b.Date, b.StartTime, b.EndTime, string(b.Status),
		b.PaymentStatus, b.Advance, b.Comments, b.CreatedBy, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (t *pgTx) Delete(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (t *pgTx) Emit(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		b         model.Booking
		status    string
		createdAt time.Time
		updatedAt *time.Time
	)
	err := row.Scan(
		&b.ID,
		&b.CustomerName,
		&b.Phone,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&status,
		&b.PaymentStatus,
		&b.Advance,
		&b.Comments,
		&b.CreatedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.Status(status)
	b.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	if updatedAt != nil {
		b.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	}
	return b, nil
}

func collectIntervals(rows pgx.Rows) ([]availability.Interval, error) {
	defer rows.Close()
	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.ID, &iv.Date, &iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}
