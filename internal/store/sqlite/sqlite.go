package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/store"
)

// tsLayout is fixed-width so TEXT timestamps sort chronologically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Open opens (or creates) a SQLite database at the given path with WAL journaling,
// foreign keys and a busy timeout. Writers are serialised on one connection.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts, err := store.DDLStatements("sqlite")
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

// NewWithDB constructs a SQLite store over an open connection.
func NewWithDB(db *sql.DB) store.Store {
	return &liteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type liteStore struct {
	db  *sql.DB
	now func() time.Time
}

func (s *liteStore) Users() store.Users { return &users{db: s.db, now: s.now} }
func (s *liteStore) Appointments() store.Appointments {
	return &appointments{db: s.db, now: s.now}
}
func (s *liteStore) Conversations() store.Conversations {
	return &conversations{db: s.db, now: s.now}
}

// HealthPing implements health.HealthPinger.
func (s *liteStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the database handle.
func (s *liteStore) Close() error { return s.db.Close() }

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) && (se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return &store.UniqueViolationError{Constraint: constraintFromMessage(se.Error()), Err: err}
	}
	return err
}

// constraintFromMessage recovers the violated index from messages such as
// "UNIQUE constraint failed: appointments.slot_date, appointments.slot_time".
func constraintFromMessage(msg string) string {
	switch {
	case strings.Contains(msg, "users.phone"):
		return store.ConstraintUserPhone
	case strings.Contains(msg, "appointments.code"):
		return store.ConstraintAppointmentCode
	case strings.Contains(msg, "appointments.slot_date"), strings.Contains(msg, store.ConstraintLiveSlot):
		return store.ConstraintLiveSlot
	default:
		return ""
	}
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// --- Users ---
type users struct {
	db  *sql.DB
	now func() time.Time
}

const userColumns = `id, phone, name, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var created string
	if err := row.Scan(&u.ID, &u.Phone, &u.Name, &created); err != nil {
		return nil, translate(err)
	}
	var err error
	if u.CreatedAt, err = parseTS(created); err != nil {
		return nil, err
	}
	return &u, nil
}

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (id, phone, name, created_at) VALUES (?,?,?,?)
        RETURNING `+userColumns, id, m.Phone, m.Name, u.now().Format(tsLayout))
	return scanUser(row)
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, userID))
}

func (u *users) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone=?`, phone))
}

func (u *users) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx, `UPDATE users SET name=? WHERE id=? RETURNING `+userColumns, name, userID)
	return scanUser(row)
}

// --- Appointments ---
type appointments struct {
	db  *sql.DB
	now func() time.Time
}

const appointmentColumns = `id, code, user_id, slot_date, slot_time, slot_label, status, created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (*model.Appointment, error) {
	var a model.Appointment
	var status, created, updated string
	if err := row.Scan(&a.ID, &a.Code, &a.UserID, &a.Date, &a.Time, &a.Slot, &status, &created, &updated); err != nil {
		return nil, translate(err)
	}
	a.Status = model.AppointmentStatus(status)
	var err error
	if a.CreatedAt, err = parseTS(created); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTS(updated); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *appointments) Create(ctx context.Context, m *model.Appointment) (*model.Appointment, error) {
	status := m.Status
	if status == "" {
		status = model.StatusBooked
	}
	now := a.now().Format(tsLayout)
	row := a.db.QueryRowContext(ctx, `
        INSERT INTO appointments (id, code, user_id, slot_date, slot_time, slot_label, status, created_at, updated_at)
        VALUES (?,?,?,?,?,?,?,?,?)
        RETURNING `+appointmentColumns,
		m.ID, m.Code, m.UserID, m.Date, m.Time, m.Slot, string(status), now, now)
	return scanAppointment(row)
}

func (a *appointments) GetByCode(ctx context.Context, code string) (*model.Appointment, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE code=?`, strings.ToLower(code))
	return scanAppointment(row)
}

func (a *appointments) ListByUser(ctx context.Context, userID string, includeCancelled bool) ([]*model.Appointment, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT `+appointmentColumns+`
        FROM appointments
        WHERE user_id=? AND (? OR status <> 'cancelled')
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
        WHERE slot_date=? AND status <> 'cancelled'
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
        SET slot_date=?, slot_time=?, slot_label=?, updated_at=?
        WHERE id=? AND status <> 'cancelled'
        RETURNING `+appointmentColumns, date, tm, slot, a.now().Format(tsLayout), id)
	return scanAppointment(row)
}

func (a *appointments) SetStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.Appointment, error) {
	row := a.db.QueryRowContext(ctx, `
        UPDATE appointments SET status=?, updated_at=?
        WHERE id=? AND status <> ?
        RETURNING `+appointmentColumns, string(status), a.now().Format(tsLayout), id, string(status))
	return scanAppointment(row)
}

// --- Conversations ---
type conversations struct {
	db  *sql.DB
	now func() time.Time
}

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
            transcript, cost_breakdown, duration_seconds, user_name, user_phone, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
        RETURNING `+conversationColumns,
		id, m.UserID, m.RoomName, m.Summary, apts, prefs, transcript, costs, m.DurationSeconds, m.UserName, m.UserPhone,
		c.now().Format(tsLayout))
	return scanConversation(row)
}

func (c *conversations) LatestByRoom(ctx context.Context, room string) (*model.Conversation, error) {
	row := c.db.QueryRowContext(ctx, `
        SELECT `+conversationColumns+`
        FROM conversations WHERE room_name=?
        ORDER BY created_at DESC LIMIT 1
    `, room)
	return scanConversation(row)
}

func scanConversation(row interface{ Scan(...any) error }) (*model.Conversation, error) {
	var out model.Conversation
	var apts, prefs, transcript, costs, created string
	if err := row.Scan(&out.ID, &out.UserID, &out.RoomName, &out.Summary, &apts, &prefs, &transcript, &costs,
		&out.DurationSeconds, &out.UserName, &out.UserPhone, &created); err != nil {
		return nil, translate(err)
	}
	if err := store.DecodeConversation(&out, []byte(apts), []byte(prefs), []byte(transcript), []byte(costs)); err != nil {
		return nil, err
	}
	var err error
	if out.CreatedAt, err = parseTS(created); err != nil {
		return nil, err
	}
	return &out, nil
}
