// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// translateError maps driver errors onto the AppError taxonomy.
func translateError(err error, resource string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case isUniqueViolation(err):
		return &models.AppError{Code: models.CodeConflict, Message: resource + " already exists", Err: err}
	default:
		return models.NewInternalError(err)
	}
}

func findByID[T any](ctx context.Context, db *gorm.DB, resource string, id uint) (*T, error) {
	defer observability.TrackQuery("get", resource)()
	var out T
	if err := db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, translateError(err, resource, id)
	}
	return &out, nil
}

// saveVersioned writes every column of entity only if the stored row still carries
// the expected version. The caller has already bumped the in-memory version.
func saveVersioned(ctx context.Context, db *gorm.DB, log *observability.RepoLogger, entity interface{}, resource string, id, expected uint) error {
	defer observability.TrackQuery("update", resource)()
	res := db.WithContext(ctx).
		Model(entity).
		Where("version = ?", expected).
		Select("*").
		Omit("created_at", clause.Associations).
		Updates(entity)
	if res.Error != nil {
		log.LogError(ctx, res.Error, "update")
		return translateError(res.Error, resource, id)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(entity).Where("id = ?", id).Count(&count).Error; err != nil {
		return models.NewInternalError(err)
	}
	if count == 0 {
		return models.NewNotFoundError(resource, id)
	}
	log.LogConflict(ctx, id, expected)
	return models.NewConflictError(resource, id)
}
