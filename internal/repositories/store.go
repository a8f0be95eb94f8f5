package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tugasku/internal/database"
	"tugasku/internal/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrConnection = errors.New("storage connection failed")
	ErrStatement  = errors.New("storage statement failed")
	ErrNotFound   = errors.New("record not found")
)

var schemas = map[string]string{
	database.DriverSQLite: `
		CREATE TABLE IF NOT EXISTS tugas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			matkul TEXT,
			deskripsi TEXT NOT NULL,
			deadline DATE NOT NULL,
			prioritas TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
	database.DriverPostgres: `
		CREATE TABLE IF NOT EXISTS tugas (
			id BIGSERIAL PRIMARY KEY,
			matkul TEXT,
			deskripsi TEXT NOT NULL,
			deadline TEXT NOT NULL,
			prioritas TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
}

type ExecResult struct {
	RowsAffected int64
}

// Store runs statements against the tugas table. Every call acquires its own
// connection and releases it before returning.
type Store struct {
	connector *database.Connector
	log       *zap.Logger
}

func NewStore(connector *database.Connector, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{connector: connector, log: log}
}

func (s *Store) Health(ctx context.Context) error {
	return s.connector.Health(ctx)
}

// EnsureSchema creates the tugas table when it is missing. Existing rows are
// never touched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl, ok := schemas[s.connector.Driver()]
	if !ok {
		return fmt.Errorf("%w: no schema for driver %s", ErrStatement, s.connector.Driver())
	}

	err := s.withConn(ctx, "ensure_schema", func(db *gorm.DB) error {
		return db.Exec(ddl).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("table ready", zap.String("table", TaskTable), zap.String("driver", s.connector.Driver()))
	return nil
}

// Execute runs a mutating statement in its own transaction. The transaction is
// rolled back on any error.
func (s *Store) Execute(ctx context.Context, stmt string, args ...interface{}) (ExecResult, error) {
	var result ExecResult
	err := s.withConn(ctx, "execute", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			res := tx.Exec(stmt, args...)
			if res.Error != nil {
				return res.Error
			}
			result.RowsAffected = res.RowsAffected
			return nil
		})
	})
	return result, err
}

// Insert stores a new row and returns the id assigned by the engine.
func (s *Store) Insert(ctx context.Context, record *TaskRecord) (int64, error) {
	record.ID = 0
	err := s.withConn(ctx, "insert", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(record).Error
		})
	})
	if err != nil {
		return 0, err
	}
	return record.ID, nil
}

// Fetch returns every row produced by a read-only statement.
func (s *Store) Fetch(ctx context.Context, stmt string, args ...interface{}) ([]TaskRecord, error) {
	records := []TaskRecord{}
	err := s.withConn(ctx, "fetch", func(db *gorm.DB) error {
		return db.Raw(stmt, args...).Scan(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FetchOne returns the first row of a read-only statement, or ErrNotFound.
func (s *Store) FetchOne(ctx context.Context, stmt string, args ...interface{}) (TaskRecord, error) {
	var record TaskRecord
	err := s.withConn(ctx, "fetch_one", func(db *gorm.DB) error {
		res := db.Raw(stmt, args...).Scan(&record)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return record, err
}

// Scan runs a read-only statement and scans the result into dest, which may
// be a pointer to a scalar, a struct or a slice of structs.
func (s *Store) Scan(ctx context.Context, dest interface{}, stmt string, args ...interface{}) error {
	return s.withConn(ctx, "scan", func(db *gorm.DB) error {
		return db.Raw(stmt, args...).Scan(dest).Error
	})
}

// FetchTable runs a read-only statement and returns its tabular projection.
// Failures are logged and produce an empty table.
func (s *Store) FetchTable(ctx context.Context, stmt string, args ...interface{}) Table {
	table := EmptyTable()
	err := s.withConn(ctx, "fetch_table", func(db *gorm.DB) error {
		rows, err := db.Raw(stmt, args...).Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return err
		}
		table.Columns = columns

		for rows.Next() {
			values := make([]interface{}, len(columns))
			ptrs := make([]interface{}, len(columns))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			for i := range values {
				values[i] = normalizeCell(values[i])
			}
			table.Rows = append(table.Rows, values)
		}
		return rows.Err()
	})
	if err != nil {
		return EmptyTable()
	}
	return table
}

func (s *Store) withConn(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	start := time.Now()

	db, err := s.connector.Open(ctx)
	if err != nil {
		s.log.Error("storage connection failed", zap.String("op", op), zap.Error(err))
		monitoring.RecordStoreOperation(op, "connection_error", time.Since(start))
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer func() {
		if err := s.connector.Release(db); err != nil {
			s.log.Warn("failed to release connection", zap.String("op", op), zap.Error(err))
		}
	}()

	if err := fn(db); err != nil {
		if errors.Is(err, ErrNotFound) {
			monitoring.RecordStoreOperation(op, "not_found", time.Since(start))
			return err
		}
		s.log.Error("storage statement failed", zap.String("op", op), zap.Error(err))
		monitoring.RecordStoreOperation(op, "statement_error", time.Since(start))
		return fmt.Errorf("%w: %w", ErrStatement, err)
	}

	monitoring.RecordStoreOperation(op, "ok", time.Since(start))
	return nil
}
