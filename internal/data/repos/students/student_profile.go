package students

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type StudentProfileRepo interface {
	Create(dbc dbctx.Context, p *types.StudentProfile) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StudentProfile, error)
	// Ensure returns the profile for id, creating an empty one if needed.
	Ensure(dbc dbctx.Context, id uuid.UUID) (*types.StudentProfile, error)
	// LockForUpdate re-reads the row under a row lock where the dialect supports it.
	LockForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.StudentProfile, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
}

type studentProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentProfileRepo(db *gorm.DB, baseLog *logger.Logger) StudentProfileRepo {
	return &studentProfileRepo{
		db:  db,
		log: baseLog.With("repo", "StudentProfileRepo"),
	}
}

func (r *studentProfileRepo) Create(dbc dbctx.Context, p *types.StudentProfile) error {
	if p == nil {
		return nil
	}
	return dbc.DB(r.db).Create(p).Error
}

func (r *studentProfileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StudentProfile, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var p types.StudentProfile
	err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *studentProfileRepo) Ensure(dbc dbctx.Context, id uuid.UUID) (*types.StudentProfile, error) {
	if id == uuid.Nil {
		return nil, errors.New("student id required")
	}
	p := &types.StudentProfile{ID: id}
	if err := dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error; err != nil {
		return nil, err
	}
	return r.GetByID(dbc, id)
}

func (r *studentProfileRepo) LockForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.StudentProfile, error) {
	q := dbc.DB(r.db)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p types.StudentProfile
	if err := q.Where("id = ?", id).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *studentProfileRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.DB(r.db).
		Model(&types.StudentProfile{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *studentProfileRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := dbc.DB(r.db).Model(&types.StudentProfile{}).Order("created_at ASC").Pluck("id", &ids).Error
	return ids, err
}
