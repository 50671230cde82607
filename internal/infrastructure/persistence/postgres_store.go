package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/bharatalert-backend/internal/domain/entity"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/repository"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/repository/common"
)

const userColumns = `
	u.id, u.name, u.email, u.phone, u.location_lat, u.location_lng, u.location_address,
	u.role, u.sightings_count, u.password_hash, u.created_at,
	(b.user_id IS NOT NULL) AS banned
`

// PostgresStore реализует repository.Store поверх PostgreSQL.
// Переходы выполняются в транзакции с блокировкой строк (SELECT ... FOR UPDATE).
type PostgresStore struct {
	db *sqlx.DB
}

var _ repository.Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx))
}

// --- Заявки ---

func (s *PostgresStore) CreateReport(ctx context.Context, r *entity.Report) error {
	query := `
		INSERT INTO reports (
			id, child_name, age, description, contact_info,
			last_seen_lat, last_seen_lng, last_seen_address, last_seen_at,
			photos, reported_by, status, created_at, approved_at, solved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.ChildName, r.Age, r.Description, r.ContactInfo,
		r.LastSeenLocation.Lat, r.LastSeenLocation.Lng, r.LastSeenLocation.Address, r.LastSeenAt,
		pq.Array(r.Photos), r.ReportedBy, string(r.Status), r.CreatedAt, r.ApprovedAt, r.SolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres store: create report: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) GetReport(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	row, err := common.GetByID[reportRow](ctx, s.db, "reports", id, repository.ErrNotFound)
	if err != nil {
		return nil, classify(err)
	}
	return row.toEntity(), nil
}

func (s *PostgresStore) ListReportsByStatus(ctx context.Context, status valueobject.ReportStatus) ([]*entity.Report, error) {
	var rows []reportRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM reports WHERE status = $1 ORDER BY created_at DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("postgres store: list reports by status: %w", classify(err))
	}
	return reportsFromRows(rows), nil
}

func (s *PostgresStore) ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Report, error) {
	var rows []reportRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM reports WHERE reported_by = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list reports by user: %w", classify(err))
	}
	return reportsFromRows(rows), nil
}

func (s *PostgresStore) UpdateReport(ctx context.Context, id uuid.UUID, fn repository.ReportMutation) (*entity.Report, error) {
	var updated *entity.Report
	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		row, err := common.GetForUpdate[reportRow](ctx, tx, "reports", id, repository.ErrNotFound)
		if err != nil {
			return err
		}

		report := row.toEntity()
		if err := fn(report); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE reports SET status = $2, approved_at = $3, solved_at = $4 WHERE id = $1
		`, report.ID, string(report.Status), report.ApprovedAt, report.SolvedAt)
		if err != nil {
			return err
		}

		updated = report
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

func (s *PostgresStore) DeleteReport(ctx context.Context, id uuid.UUID, check repository.ReportMutation) (*entity.Report, error) {
	var removed *entity.Report
	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		row, err := common.GetForUpdate[reportRow](ctx, tx, "reports", id, repository.ErrNotFound)
		if err != nil {
			return err
		}

		report := row.toEntity()
		if err := check(report); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id); err != nil {
			return err
		}

		removed = report
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return removed, nil
}

// --- Наблюдения ---

func (s *PostgresStore) CreateSighting(ctx context.Context, sg *entity.Sighting) error {
	query := `
		INSERT INTO sightings (id, report_id, reported_by, lat, lng, address, description, observed_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		sg.ID, sg.ReportID, sg.ReportedBy,
		sg.Location.Lat, sg.Location.Lng, sg.Location.Address,
		sg.Description, sg.ObservedAt, string(sg.Status), sg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres store: create sighting: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) GetSighting(ctx context.Context, id uuid.UUID) (*entity.Sighting, error) {
	row, err := common.GetByID[sightingRow](ctx, s.db, "sightings", id, repository.ErrNotFound)
	if err != nil {
		return nil, classify(err)
	}
	return row.toEntity(), nil
}

func (s *PostgresStore) ListSightings(ctx context.Context, filter repository.SightingFilter) ([]*entity.Sighting, error) {
	query := `SELECT * FROM sightings WHERE 1 = 1`
	args := make([]interface{}, 0, 3)

	if filter.ReportID != nil {
		args = append(args, *filter.ReportID)
		query += fmt.Sprintf(" AND report_id = $%d", len(args))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND reported_by = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	var rows []sightingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("postgres store: list sightings: %w", classify(err))
	}
	return sightingsFromRows(rows), nil
}

func (s *PostgresStore) UpdateSighting(ctx context.Context, id uuid.UUID, fn repository.SightingMutation) (*entity.Sighting, *entity.User, error) {
	var (
		updated  *entity.Sighting
		reporter *entity.User
	)
	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		row, err := common.GetForUpdate[sightingRow](ctx, tx, "sightings", id, repository.ErrNotFound)
		if err != nil {
			return err
		}
		sighting := row.toEntity()

		// Блокируем автора вместе с наблюдением: порядок всегда sighting -> user.
		user, err := lockUser(ctx, tx, sighting.ReportedBy)
		if err != nil {
			return err
		}

		if err := fn(sighting, user); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE sightings SET status = $2 WHERE id = $1`, sighting.ID, string(sighting.Status)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET sightings_count = $2 WHERE id = $1`, user.ID, user.SightingsCount); err != nil {
			return err
		}

		updated, reporter = sighting, user
		return nil
	})
	if err != nil {
		return nil, nil, classify(err)
	}
	return updated, reporter, nil
}

func (s *PostgresStore) DeleteSighting(ctx context.Context, id uuid.UUID, check repository.SightingMutation) (*entity.Sighting, error) {
	var removed *entity.Sighting
	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		row, err := common.GetForUpdate[sightingRow](ctx, tx, "sightings", id, repository.ErrNotFound)
		if err != nil {
			return err
		}
		sighting := row.toEntity()

		user, err := lockUser(ctx, tx, sighting.ReportedBy)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := check(sighting, user); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sightings WHERE id = $1`, id); err != nil {
			return err
		}

		removed = sighting
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return removed, nil
}

// --- Пользователи ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *entity.User) error {
	var lat, lng sql.NullFloat64
	var address sql.NullString
	if u.Location != nil {
		lat = sql.NullFloat64{Float64: u.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: u.Location.Lng, Valid: true}
		address = sql.NullString{String: u.Location.Address, Valid: true}
	}

	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, name, email, phone, location_lat, location_lng, location_address, role, sightings_count, password_hash, created_at)
			VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8, $9, $10, $11)
		`, u.ID, u.Name, u.Email, u.Phone, lat, lng, address, string(u.Role), u.SightingsCount, u.PasswordHash, u.CreatedAt)
		if err != nil {
			return err
		}
		if u.Banned {
			if _, err := tx.ExecContext(ctx, `INSERT INTO banned_users (user_id) VALUES ($1)`, u.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres store: create user: %w", classify(err))
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return s.getUserBy(ctx, "u.id = $1", id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return s.getUserBy(ctx, "u.email = LOWER($1)", email)
}

func (s *PostgresStore) getUserBy(ctx context.Context, cond string, arg interface{}) (*entity.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users u LEFT JOIN banned_users b ON b.user_id = u.id WHERE ` + cond
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		return nil, classify(err)
	}
	return row.toEntity(), nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]*entity.User, error) {
	var rows []userRow
	query := `SELECT ` + userColumns + ` FROM users u LEFT JOIN banned_users b ON b.user_id = u.id ORDER BY u.created_at`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("postgres store: list users: %w", classify(err))
	}

	users := make([]*entity.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toEntity())
	}
	return users, nil
}

func (s *PostgresStore) SetBanned(ctx context.Context, id uuid.UUID, banned bool) (bool, error) {
	var changed bool
	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}

		var res sql.Result
		var err error
		if banned {
			res, err = tx.ExecContext(ctx, `INSERT INTO banned_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, id)
		} else {
			res, err = tx.ExecContext(ctx, `DELETE FROM banned_users WHERE user_id = $1`, id)
		}
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		changed = affected > 0
		return nil
	})
	if err != nil {
		return false, classify(err)
	}
	return changed, nil
}

func (s *PostgresStore) ListBannedUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.SelectContext(ctx, &ids, `SELECT user_id FROM banned_users ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("postgres store: list banned users: %w", classify(err))
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func lockUser(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*entity.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users u LEFT JOIN banned_users b ON b.user_id = u.id WHERE u.id = $1 FOR UPDATE OF u`
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// classify переводит ошибки драйвера в ошибки хранилища.
// Ошибки бизнес-проверок (из ReportMutation/SightingMutation) проходят без изменений.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAlreadyExists) || errors.Is(err, repository.ErrUnavailable) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23":
			switch pqErr.Code {
			case "23505":
				return repository.ErrAlreadyExists
			case "23503":
				return repository.ErrNotFound
			}
		// 08 - соединение, 40 - сериализация/дедлок, 53 - ресурсы, 57 - остановка сервера.
		case "08", "40", "53", "57":
			return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}

	return err
}
