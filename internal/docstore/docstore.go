// Package docstore is a small document-store abstraction: named collections of
// schemaless documents addressed by string id, queried by equality filters,
// ordered by a single field and bounded by a limit. There is no offset and no
// multi-document transaction.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidField = errors.New("invalid field name")
	ErrInvalidQuery = errors.New("invalid query")
)

// Document maps field names to values. Supported value types are string,
// bool, int64, float64, time.Time, []any and map[string]any.
type Document map[string]any

// Snapshot is a document returned from a query together with its id.
type Snapshot struct {
	ID   string
	Data Document
}

// Operator selects how a Filter compares a field.
type Operator int

const (
	// Equal matches documents whose field equals the value.
	Equal Operator = iota
	// ArrayContains matches documents whose array field has the value as an element.
	ArrayContains
)

// Filter is a single predicate on a top-level field.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Direction is the sort direction for Query.OrderBy.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Query describes a read over one collection. Limit <= 0 means no limit.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Direction  Direction
	Limit      int
}

// Where appends an equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: Equal, Value: value})
	return q
}

// WhereArrayContains appends an array-membership filter.
func (q Query) WhereArrayContains(field string, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: ArrayContains, Value: value})
	return q
}

// Store is implemented by every document backend.
type Store interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set creates or fully replaces a document.
	Set(ctx context.Context, collection, id string, doc Document) error
	// Update merges top-level fields into an existing document.
	// It returns ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, fields Document) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Snapshot, error)
	Close() error
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateField rejects names that cannot be used as a top-level field path.
func ValidateField(name string) error {
	if !fieldNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidField, name)
	}
	return nil
}

func validateQuery(q Query) error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	for _, f := range q.Filters {
		if err := ValidateField(f.Field); err != nil {
			return err
		}
		if f.Op != Equal && f.Op != ArrayContains {
			return fmt.Errorf("%w: unknown operator %d", ErrInvalidQuery, f.Op)
		}
	}
	if q.OrderBy != "" {
		if err := ValidateField(q.OrderBy); err != nil {
			return err
		}
	}
	return nil
}
