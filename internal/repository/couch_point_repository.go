package repository

import (
	"context"
	"fmt"
	"net/http"

	"sketchsync/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// Mango queries return 25 documents unless told otherwise.
const couchFindLimit = 1 << 20

type pointDoc struct {
	ID             string   `json:"_id,omitempty"`
	Rev            string   `json:"_rev,omitempty"`
	Kind           string   `json:"kind"`
	PointID        int64    `json:"point_id"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
	IsEndOfSegment bool     `json:"is_end_of_segment"`
}

func (d *pointDoc) point() domain.Point {
	return domain.Point{
		ID:             d.PointID,
		X:              d.X,
		Y:              d.Y,
		IsEndOfSegment: d.IsEndOfSegment,
	}
}

type couchPointRepository struct {
	client *kivik.Client
	dbName string
}

func NewCouchPointRepository(client *kivik.Client, dbName string) PointRepository {
	return &couchPointRepository{
		client: client,
		dbName: dbName,
	}
}

func pointDocID(id int64) string {
	return fmt.Sprintf("point:%020d", id)
}

func (r *couchPointRepository) FindByID(id int64) (*domain.Point, error) {
	db := r.client.DB(r.dbName)

	row := db.Get(context.Background(), pointDocID(id))

	var doc pointDoc
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrPointNotFound
		}
		return nil, fmt.Errorf("failed to find point: %w", err)
	}

	p := doc.point()
	return &p, nil
}

func (r *couchPointRepository) Put(point *domain.Point) error {
	db := r.client.DB(r.dbName)
	docID := pointDocID(point.ID)

	doc := pointDoc{
		Kind:           "point",
		PointID:        point.ID,
		X:              point.X,
		Y:              point.Y,
		IsEndOfSegment: point.IsEndOfSegment,
	}

	var existing pointDoc
	if err := db.Get(context.Background(), docID).ScanDoc(&existing); err == nil {
		doc.Rev = existing.Rev
	} else if kivik.HTTPStatus(err) != http.StatusNotFound {
		return fmt.Errorf("failed to fetch existing point: %w", err)
	}

	if _, err := db.Put(context.Background(), docID, doc); err != nil {
		return fmt.Errorf("failed to put point: %w", err)
	}

	return nil
}

func (r *couchPointRepository) findAll() ([]pointDoc, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"kind": "point",
		},
		"limit": couchFindLimit,
	}

	rows := db.Find(context.Background(), query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list points: %w", err)
	}
	defer rows.Close()

	var docs []pointDoc
	for rows.Next() {
		var doc pointDoc
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (r *couchPointRepository) List() (domain.PointSequence, error) {
	docs, err := r.findAll()
	if err != nil {
		return nil, err
	}

	points := make(domain.PointSequence, 0, len(docs))
	for i := range docs {
		points = append(points, docs[i].point())
	}
	points.SortByID()

	return points, nil
}

func (r *couchPointRepository) DeleteAll() (int, error) {
	docs, err := r.findAll()
	if err != nil {
		return 0, err
	}

	db := r.client.DB(r.dbName)
	deleted := 0
	for _, doc := range docs {
		if _, err := db.Delete(context.Background(), doc.ID, doc.Rev); err != nil {
			return deleted, fmt.Errorf("failed to delete point %d: %w", doc.PointID, err)
		}
		deleted++
	}

	return deleted, nil
}
