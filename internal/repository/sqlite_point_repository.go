package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"sketchsync/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS points (
	id INTEGER PRIMARY KEY,
	x REAL NULL,
	y REAL NULL,
	is_end_of_segment INTEGER NOT NULL DEFAULT 0
)`

type sqlitePointRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file and ensures the schema.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create points table: %w", err)
	}
	return db, nil
}

func NewSQLitePointRepository(db *sql.DB) PointRepository {
	return &sqlitePointRepository{db: db}
}

func scanPoint(row interface{ Scan(...any) error }) (domain.Point, error) {
	var (
		p    domain.Point
		x, y sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &x, &y, &p.IsEndOfSegment); err != nil {
		return p, err
	}
	if x.Valid {
		p.X = &x.Float64
	}
	if y.Valid {
		p.Y = &y.Float64
	}
	return p, nil
}

func (r *sqlitePointRepository) FindByID(id int64) (*domain.Point, error) {
	row := r.db.QueryRow(`SELECT id, x, y, is_end_of_segment FROM points WHERE id = ?`, id)

	p, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("failed to find point: %w", err)
	}
	return &p, nil
}

func (r *sqlitePointRepository) Put(point *domain.Point) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO points (id, x, y, is_end_of_segment) VALUES (?, ?, ?, ?)`,
		point.ID, nullFloat(point.X), nullFloat(point.Y), point.IsEndOfSegment,
	)
	if err != nil {
		return fmt.Errorf("failed to put point: %w", err)
	}
	return nil
}

func (r *sqlitePointRepository) List() (domain.PointSequence, error) {
	rows, err := r.db.Query(`SELECT id, x, y, is_end_of_segment FROM points ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list points: %w", err)
	}
	defer rows.Close()

	points := domain.PointSequence{}
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *sqlitePointRepository) DeleteAll() (int, error) {
	res, err := r.db.Exec(`DELETE FROM points`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete points: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
