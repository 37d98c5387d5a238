package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

const habitColumns = `
    id, user_id, title, description, color, icon, sort_order,
    type, frequency_type, weekdays, times_per_week, reminder_time,
    target_value, unit, timezone, current_streak, longest_streak,
    start_date, end_date, archived_at,
    version, deleted_at, created_at, updated_at`

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresHabitRepository) scanRow(row scannable) (*domain.Habit, error) {
	var h domain.Habit
	var weekdaysJSON []byte

	err := row.Scan(
		&h.ID, &h.UserID, &h.Title, &h.Description, &h.Color, &h.Icon, &h.SortOrder,
		&h.Type, &h.FrequencyType, &weekdaysJSON, &h.TimesPerWeek, &h.ReminderTime,
		&h.TargetValue, &h.Unit, &h.Timezone, &h.CurrentStreak, &h.LongestStreak,
		&h.StartDate, &h.EndDate, &h.ArchivedAt,
		&h.Version, &h.DeletedAt, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(weekdaysJSON) > 0 {
		if err := json.Unmarshal(weekdaysJSON, &h.Weekdays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weekdays: %w", err)
		}
	}

	return &h, nil
}

func (r *PostgresHabitRepository) scanRows(rows *sql.Rows) ([]*domain.Habit, error) {
	defer rows.Close()

	var habits []*domain.Habit
	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	weekdaysJSON, err := json.Marshal(h.Weekdays)
	if err != nil {
		return fmt.Errorf("failed to marshal weekdays: %w", err)
	}

	query := `
        INSERT INTO habits (` + habitColumns + `
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7,
            $8, $9, $10, $11, $12,
            $13, $14, $15, $16, $17,
            $18, $19, $20,
            1, NULL, $21, $22
        )`

	_, err = r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.Title, h.Description, h.Color, h.Icon, h.SortOrder,
		h.Type, h.FrequencyType, weekdaysJSON, h.TimesPerWeek, h.ReminderTime,
		h.TargetValue, h.Unit, h.Timezone, h.CurrentStreak, h.LongestStreak,
		h.StartDate, h.EndDate, h.ArchivedAt,
		h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return domain.ErrHabitConflict
		case pgForeignKeyViolation:
			return domain.ErrHabitInvalidUserID
		}
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	h.Version = 1
	return nil
}

func (r *PostgresHabitRepository) getOne(ctx context.Context, query, id string) (*domain.Habit, error) {
	h, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}
	return h, nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	return r.getOne(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *PostgresHabitRepository) GetByIDIncludingDeleted(ctx context.Context, id string) (*domain.Habit, error) {
	return r.getOne(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1`, id)
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY sort_order ASC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return r.scanRows(rows)
}

// Update writes every mutable column, deleted_at included so a revived habit
// comes back. It fails with ErrHabitConflict when the stored version moved on.
func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	weekdaysJSON, err := json.Marshal(h.Weekdays)
	if err != nil {
		return err
	}

	query := `
        UPDATE habits SET
            title=$1, description=$2, color=$3, icon=$4, sort_order=$5,
            type=$6, frequency_type=$7, weekdays=$8, times_per_week=$9, reminder_time=$10,
            target_value=$11, unit=$12, timezone=$13,
            end_date=$14, archived_at=$15, deleted_at=$16,
            updated_at=NOW(), version = version + 1
        WHERE id=$17 AND version=$18
        RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		h.Title, h.Description, h.Color, h.Icon, h.SortOrder,
		h.Type, h.FrequencyType, weekdaysJSON, h.TimesPerWeek, h.ReminderTime,
		h.TargetValue, h.Unit, h.Timezone,
		h.EndDate, h.ArchivedAt, h.DeletedAt,
		h.ID, h.Version,
	)

	var newVersion int
	var newUpdatedAt time.Time

	err = row.Scan(&newVersion, &newUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			var count int
			if checkErr := r.db.QueryRowContext(ctx, `SELECT count(*) FROM habits WHERE id = $1`, h.ID).Scan(&count); checkErr != nil {
				return fmt.Errorf("existence check failed: %w", checkErr)
			}

			if count == 0 {
				return domain.ErrHabitNotFound
			}
			return domain.ErrHabitConflict
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	h.Version = newVersion
	h.UpdatedAt = newUpdatedAt

	return nil
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id string) error {
	query := `
        UPDATE habits
        SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
        WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}

	return nil
}

func (r *PostgresHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND updated_at > $2
        ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("sync query error: %w", err)
	}
	return r.scanRows(rows)
}

// UpdateStreaks bumps updated_at so the snapshot shows up in the next delta
// sync. The version is left alone.
func (r *PostgresHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	query := `
        UPDATE habits
        SET current_streak = $1, longest_streak = $2, updated_at = NOW()
        WHERE id = $3 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, current, longest, id)
	if err != nil {
		return fmt.Errorf("update streaks failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}
