package uploads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

type DataUploadRepo interface {
	Create(dbc dbctx.Context, u *types.DataUpload) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DataUpload, error)
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.DataUpload, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateFieldsIfStatus applies updates only while the upload is in one of statuses.
	UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, statuses []string, updates map[string]interface{}) (bool, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type dataUploadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDataUploadRepo(db *gorm.DB, baseLog *logger.Logger) DataUploadRepo {
	return &dataUploadRepo{
		db:  db,
		log: baseLog.With("repo", "DataUploadRepo"),
	}
}

func (r *dataUploadRepo) Create(dbc dbctx.Context, u *types.DataUpload) error {
	return dbc.DB(r.db).Create(u).Error
}

func (r *dataUploadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DataUpload, error) {
	var u types.DataUpload
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (r *dataUploadRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*types.DataUpload, error) {
	var out []*types.DataUpload
	err := dbc.DB(r.db).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *dataUploadRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	_, err := r.UpdateFieldsIfStatus(dbc, id, nil, updates)
	return err
}

func (r *dataUploadRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, statuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	q := dbc.DB(r.db).Model(&types.DataUpload{}).Where("id = ?", id)
	if len(statuses) == 1 {
		q = q.Where("status = ?", statuses[0])
	} else if len(statuses) > 1 {
		q = q.Where("status IN ?", statuses)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *dataUploadRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.DataUpload{}).Error
}
