package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts, err := store.DDLStatements("postgres")
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users                 { return &users{db: s.db} }
func (s *pgStore) Appointments() store.Appointments   { return &appointments{db: s.db} }
func (s *pgStore) Conversations() store.Conversations { return &conversations{db: s.db} }

// HealthPing implements health.HealthPinger for Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *pgStore) Close() error { return s.db.Close() }

// translate maps driver errors onto the store's error vocabulary.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &store.UniqueViolationError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}

// --- Users ---
type users struct{ db *sql.DB }

const userColumns = `id, phone, name, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (id, phone, name)
        VALUES ($1,$2,$3)
        RETURNING `+userColumns, id, m.Phone, m.Name)
	return scanUser(row)
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.ErrNotFound
	}
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

func (u *users) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone=$1`, phone))
}

func (u *users) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx, `
        UPDATE users SET name=$2 WHERE id=$1
        RETURNING `+userColumns, userID, name)
	return scanUser(row)
}

// --- Appointments ---
type appointments struct{ db *sql.DB }

const appointmentColumns = `id, code, user_id, slot_date, slot_time, slot_label, status, created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (*model.Appointment, error) {
	var a model.Appointment
	var status string
	if err := row.Scan(&a.ID, &a.Code, &a.UserID, &a.Date, &a.Time, &a.Slot, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	a.Status = model.AppointmentStatus(status)
	return &a, nil
}

func (a *appointments) Create(ctx context.Context, m *model.Appointment) (*model.Appointment, error) {
	status := m.Status
	if status == "" {
		status = model.StatusBooked
	}
	row := a.db.QueryRowContext(ctx, `
        INSERT INTO appointments (id, code, user_id, slot_date, slot_time, slot_label, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING `+appointmentColumns,
		m.ID, m.Code, m.UserID, m.Date, m.Time, m.Slot, string(status))
	return scanAppointment(row)
}

func (a *appointments) GetByCode(ctx context.Context, code string) (*model.Appointment, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE code=$1`, strings.ToLower(code))
	return scanAppointment(row)
}

func (a *appointments) ListByUser(ctx context.Context, userID string, includeCancelled bool) ([]*model.Appointment, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT `+appointmentColumns+`
        FROM appointments
        WHERE user_id=$1 AND ($2 OR status <> 'cancelled')
        ORDER BY slot_date DESC, slot_time DESC
    `, userID, includeCancelled)
	if err != nil {
		return nil, translate(err)
	}
	defer func() { _ = rows.Close() }()
	res := []*model.Appointment{}
	for rows.Next() {
		ap, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ap)
	}
	return res, rows.Err()
}

func (a *appointments) BookedTimes(ctx context.Context, date string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT slot_time FROM appointments
        WHERE slot_date=$1 AND status <> 'cancelled'
        ORDER BY slot_time
    `, date)
	if err != nil {
		return nil, translate(err)
	}
	defer func() { _ = rows.Close() }()
	var res []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (a *appointments) Reschedule(ctx context.Context, id, date, tm, slot string) (*model.Appointment, error) {
	row := a.db.QueryRowContext(ctx, `
        UPDATE appointments
        SET slot_date=$2, slot_time=$3, slot_label=$4, updated_at=now()
        WHERE id=$1 AND status <> 'cancelled'
        RETURNING `+appointmentColumns, id, date, tm, slot)
	return scanAppointment(row)
}

func (a *appointments) SetStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.Appointment, error) {
	row := a.db.QueryRowContext(ctx, `
        UPDATE appointments SET status=$2, updated_at=now()
        WHERE id=$1 AND status <> $2
        RETURNING `+appointmentColumns, id, string(status))
	return scanAppointment(row)
}

// --- Conversations ---
type conversations struct{ db *sql.DB }

const conversationColumns = `id, user_id, room_name, summary, appointments_discussed, preferences_mentioned,
        transcript, cost_breakdown, duration_seconds, user_name, user_phone, created_at`

func (c *conversations) Create(ctx context.Context, m *model.Conversation) (*model.Conversation, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	apts, prefs, transcript, costs, err := store.EncodeConversation(m)
	if err != nil {
		return nil, err
	}
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO conversations (id, user_id, room_name, summary, appointments_discussed, preferences_mentioned,
            transcript, cost_breakdown, duration_seconds, user_name, user_phone)
        VALUES ($1,$2,$3,$4,$5::jsonb,$6::jsonb,$7::jsonb,$8::jsonb,$9,$10,$11)
        RETURNING `+conversationColumns,
		id, m.UserID, m.RoomName, m.Summary, apts, prefs, transcript, costs, m.DurationSeconds, m.UserName, m.UserPhone)
	return scanConversation(row)
}

func (c *conversations) LatestByRoom(ctx context.Context, room string) (*model.Conversation, error) {
	row := c.db.QueryRowContext(ctx, `
        SELECT `+conversationColumns+`
        FROM conversations WHERE room_name=$1
        ORDER BY created_at DESC LIMIT 1
    `, room)
	return scanConversation(row)
}

func scanConversation(row interface{ Scan(...any) error }) (*model.Conversation, error) {
	var out model.Conversation
	var apts, prefs, transcript, costs []byte
	if err := row.Scan(&out.ID, &out.UserID, &out.RoomName, &out.Summary, &apts, &prefs, &transcript, &costs,
		&out.DurationSeconds, &out.UserName, &out.UserPhone, &out.CreatedAt); err != nil {
		return nil, translate(err)
	}
	if err := store.DecodeConversation(&out, apts, prefs, transcript, costs); err != nil {
		return nil, err
	}
	return &out, nil
}
