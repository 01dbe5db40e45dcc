package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Store = (*GormStore)(nil)

// documentRecord is the single table backing every collection.
type documentRecord struct {
	Collection string         `gorm:"primaryKey;size:128"`
	ID         string         `gorm:"primaryKey;size:191"`
	Body       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRecord) TableName() string {
	return "documents"
}

// GormStore keeps documents as JSON bodies in a SQL table. Filters and
// ordering are pushed down with the SQLite JSON1 functions.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the documents table on gdb and returns a store.
func NewGormStore(gdb *gorm.DB) (*GormStore, error) {
	if gdb == nil {
		return nil, errors.New("gorm db is nil")
	}
	if err := gdb.AutoMigrate(&documentRecord{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &GormStore{db: gdb}, nil
}

// DB exposes the underlying gorm instance.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var rec documentRecord
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	doc, err := decodeDocument(rec.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *GormStore) Set(ctx context.Context, collection, id string, doc Document) error {
	body, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	now := time.Now().UTC()
	rec := documentRecord{
		Collection: collection,
		ID:         id,
		Body:       datatypes.JSON(body),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, collection, id string, fields Document) error {
	for name := range fields {
		if err := ValidateField(name); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec documentRecord
		if err := tx.Where("collection = ? AND id = ?", collection, id).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}

		current, err := decodeDocument(rec.Body)
		if err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		for name, value := range fields {
			current[name] = value
		}

		body, err := encodeDocument(current)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, id, err)
		}

		return tx.Model(&documentRecord{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]interface{}{
				"body":       datatypes.JSON(body),
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&documentRecord{}).Error; err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Model(&documentRecord{}).
		Where("collection = ?", q.Collection)

	for _, f := range q.Filters {
		query = applyFilter(query, f)
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Direction == Descending {
			dir = "DESC"
		}
		// time values live under a nested tag, plain scalars at the field itself
		query = query.Order(fmt.Sprintf(
			"COALESCE(json_extract(body, '$.%s.%s'), json_extract(body, '$.%s')) %s",
			q.OrderBy, timeKey, q.OrderBy, dir,
		))
	}
	query = query.Order("id asc")

	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var records []documentRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	snapshots := make([]Snapshot, 0, len(records))
	for _, rec := range records {
		doc, err := decodeDocument(rec.Body)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", rec.Collection, rec.ID, err)
		}
		snapshots = append(snapshots, Snapshot{ID: rec.ID, Data: doc})
	}
	return snapshots, nil
}

func applyFilter(query *gorm.DB, f Filter) *gorm.DB {
	path := "$." + f.Field
	value := f.Value
	if t, ok := value.(time.Time); ok {
		path += "." + timeKey
		value = formatTime(t)
	}

	switch f.Op {
	case ArrayContains:
		return query.Where("EXISTS (SELECT 1 FROM json_each(documents.body, ?) WHERE json_each.value = ?)", path, value)
	default:
		if value == nil {
			return query.Where("json_extract(body, ?) IS NULL", path)
		}
		return query.Where("json_extract(body, ?) = ?", path, value)
	}
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
