package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"gorm.io/gorm"
)

// Op is a comparison operator supported by Filter.
type Op string

const (
	OpEq      Op = "="
	OpNeq     Op = "<>"
	OpIn      Op = "IN"
	OpLte     Op = "<="
	OpGte     Op = ">="
	OpIsNull  Op = "IS NULL"
	OpNotNull Op = "IS NOT NULL"
)

// Filter is a single predicate; filters in a Query are AND-combined.
// Column names come from code, never from request input.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(col string, v any) Filter  { return Filter{Column: col, Op: OpEq, Value: v} }
func Neq(col string, v any) Filter { return Filter{Column: col, Op: OpNeq, Value: v} }
func In(col string, v any) Filter  { return Filter{Column: col, Op: OpIn, Value: v} }
func Lte(col string, v any) Filter { return Filter{Column: col, Op: OpLte, Value: v} }
func Gte(col string, v any) Filter { return Filter{Column: col, Op: OpGte, Value: v} }
func IsNull(col string) Filter     { return Filter{Column: col, Op: OpIsNull} }
func NotNull(col string) Filter    { return Filter{Column: col, Op: OpNotNull} }

// Query describes a filtered read.
type Query struct {
	Filters []Filter
	Order   string
	Limit   int
	Select  []string
}

func applyFilters(db *gorm.DB, filters []Filter) *gorm.DB {
	for _, f := range filters {
		switch f.Op {
		case OpIsNull, OpNotNull:
			db = db.Where(fmt.Sprintf("%s %s", f.Column, f.Op))
		case OpIn:
			db = db.Where(fmt.Sprintf("%s IN ?", f.Column), f.Value)
		default:
			db = db.Where(fmt.Sprintf("%s %s ?", f.Column, f.Op), f.Value)
		}
	}
	return db
}

func (q Query) apply(db *gorm.DB) *gorm.DB {
	db = applyFilters(db, q.Filters)
	if len(q.Select) > 0 {
		db = db.Select(q.Select)
	}
	if q.Order != "" {
		db = db.Order(q.Order)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db
}

// BaseRepository defines common CRUD and filtered operations.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	// CreateMany inserts rows in one statement; ids are written back into objs.
	CreateMany(ctx context.Context, objs []T) error
	GetByID(ctx context.Context, id any, dest *T) error
	Update(ctx context.Context, obj *T) error
	Delete(ctx context.Context, id any) error
	Find(ctx context.Context, q Query) ([]T, error)
	First(ctx context.Context, q Query, dest *T) error
	Count(ctx context.Context, filters ...Filter) (int64, error)
	// UpdateWhere applies patch to every row matching filters and returns rows affected.
	UpdateWhere(ctx context.Context, filters []Filter, patch map[string]any) (int64, error)
	// DeleteWhere removes every row matching filters and returns rows affected.
	DeleteWhere(ctx context.Context, filters []Filter) (int64, error)
}

type baseRepository[T any] struct {
	db   *gorm.DB
	name string
}

func NewBaseRepository[T any](db *gorm.DB, name string) BaseRepository[T] {
	return &baseRepository[T]{db: db, name: name}
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return translateError(err, fmt.Sprintf("create %s failed", r.name))
	}
	return nil
}

func (r *baseRepository[T]) CreateMany(ctx context.Context, objs []T) error {
	if len(objs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&objs).Error; err != nil {
		return translateError(err, fmt.Sprintf("create %s batch failed", r.name))
	}
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	if err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		return translateError(err, fmt.Sprintf("get %s failed", r.name))
	}
	return nil
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Save(obj).Error; err != nil {
		return translateError(err, fmt.Sprintf("update %s failed", r.name))
	}
	return nil
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, "id = ?", id)
	if res.Error != nil {
		return translateError(res.Error, fmt.Sprintf("delete %s failed", r.name))
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, fmt.Sprintf("%s %v not found", r.name, id))
	}
	return nil
}

func (r *baseRepository[T]) Find(ctx context.Context, q Query) ([]T, error) {
	var out []T
	if err := q.apply(r.db.WithContext(ctx).Model(new(T))).Find(&out).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("query %s failed", r.name))
	}
	return out, nil
}

func (r *baseRepository[T]) First(ctx context.Context, q Query, dest *T) error {
	if err := q.apply(r.db.WithContext(ctx)).First(dest).Error; err != nil {
		return translateError(err, fmt.Sprintf("get %s failed", r.name))
	}
	return nil
}

func (r *baseRepository[T]) Count(ctx context.Context, filters ...Filter) (int64, error) {
	var n int64
	if err := applyFilters(r.db.WithContext(ctx).Model(new(T)), filters).Count(&n).Error; err != nil {
		return 0, translateError(err, fmt.Sprintf("count %s failed", r.name))
	}
	return n, nil
}

func (r *baseRepository[T]) UpdateWhere(ctx context.Context, filters []Filter, patch map[string]any) (int64, error) {
	if len(filters) == 0 {
		return 0, appErr.New(appErr.CodeInvalid, "update without filters is not allowed")
	}
	if len(patch) == 0 {
		return 0, nil
	}
	res := applyFilters(r.db.WithContext(ctx).Model(new(T)), filters).Updates(patch)
	if res.Error != nil {
		return 0, translateError(res.Error, fmt.Sprintf("update %s failed", r.name))
	}
	return res.RowsAffected, nil
}

func (r *baseRepository[T]) DeleteWhere(ctx context.Context, filters []Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, appErr.New(appErr.CodeInvalid, "delete without filters is not allowed")
	}
	res := applyFilters(r.db.WithContext(ctx), filters).Delete(new(T))
	if res.Error != nil {
		return 0, translateError(res.Error, fmt.Sprintf("delete %s failed", r.name))
	}
	return res.RowsAffected, nil
}

// sqlite extended result codes for unique and primary key violations.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// translateError maps store failures to the application taxonomy using
// structured codes from the driver rather than message text.
func translateError(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErr.New(appErr.CodeNotFound, strings.Replace(msg, "failed", "not found", 1))
	}
	if isUniqueViolation(err) {
		return appErr.Wrap(err, appErr.CodeConflict, "record already exists")
	}
	return appErr.Wrap(err, appErr.CodeUpstream, msg)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		c := coded.Code()
		return c == sqliteConstraintUnique || c == sqliteConstraintPrimaryKey
	}
	return false
}
