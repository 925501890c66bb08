package equipment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/ncruces/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/medequip/internal/database"
	"github.com/Additional-Code/medequip/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/medequip/repository/equipment")

// ErrNotFound is returned when an equipment record is missing.
var ErrNotFound = errors.New("equipment not found")

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	serialNumberUniqueIx = "serial_number"
)

// ConstraintViolationError reports a write rejected by a database uniqueness constraint.
type ConstraintViolationError struct {
	Constraint string
	Err        error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("unique constraint %q violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintViolationError) Unwrap() error { return e.Err }

// Predicate narrows an existence query.
type Predicate func(q *bun.SelectQuery) *bun.SelectQuery

// SerialNumberEquals matches records carrying the given serial number.
func SerialNumberEquals(serial string) Predicate {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.serial_number = ?", serial)
	}
}

// ExcludingID skips the record with the given id.
func ExcludingID(id int64) Predicate {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id <> ?", id)
	}
}

// All combines predicates with AND.
func All(preds ...Predicate) Predicate {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, p := range preds {
			if p != nil {
				q = p(q)
			}
		}
		return q
	}
}

// Repository encapsulates read/write access for equipment records.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Insert persists a new record and fills its ID.
func (r *Repository) Insert(ctx context.Context, rec *entity.Equipment) error {
	if rec == nil {
		return errors.New("nil equipment")
	}
	ctx, span := repoTracer.Start(ctx, "EquipmentRepository.Insert", trace.WithAttributes(attribute.String("equipment.serial_number", rec.SerialNumber)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(rec).Exec(ctx)
	if err != nil {
		err = translateWriteError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// UpdateByID overwrites the mutable columns of the record with the given id.
// ID and CreatedAt are never written.
func (r *Repository) UpdateByID(ctx context.Context, id int64, rec *entity.Equipment) error {
	if rec == nil {
		return errors.New("nil equipment")
	}
	ctx, span := repoTracer.Start(ctx, "EquipmentRepository.UpdateByID", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model(rec).
		ExcludeColumn("id", "created_at").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		err = translateWriteError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	rec.ID = id
	return nil
}

// DeleteByID removes the record with the given id, reporting whether a row was removed.
// Deleting an absent id is not an error.
func (r *Repository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "EquipmentRepository.DeleteByID", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.Equipment)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetByID fetches a record by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Equipment, error) {
	ctx, span := repoTracer.Start(ctx, "EquipmentRepository.GetByID", trace.WithAttributes(attribute.Int64("equipment.id", id)))
	defer span.End()

	rec := new(entity.Equipment)
	err := r.reader.NewSelect().Model(rec).Where("?TableAlias.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return rec, nil
}

// ExistsWhere reports whether any record matches the predicate.
// It reads from the writer so a check right after a write sees that write.
func (r *Repository) ExistsWhere(ctx context.Context, pred Predicate) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "EquipmentRepository.ExistsWhere")
	defer span.End()

	q := r.writer.NewSelect().Model((*entity.Equipment)(nil))
	if pred != nil {
		q = pred(q)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exists failed")
	}
	return exists, err
}

// ListOrderedByCreatedAtDesc returns every record, newest first.
// Records created at the same instant are ordered by descending id.
func (r *Repository) ListOrderedByCreatedAtDesc(ctx context.Context) ([]entity.Equipment, error) {
	ctx, span := repoTracer.Start(ctx, "EquipmentRepository.List")
	defer span.End()

	records := make([]entity.Equipment, 0)
	err := r.reader.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("equipment.count", len(records)))
	return records, nil
}

func translateWriteError(err error) error {
	if isUniqueViolation(err) {
		return &ConstraintViolationError{Constraint: serialNumberUniqueIx, Err: err}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return errors.Is(err, sqlite3.CONSTRAINT_UNIQUE)
}
