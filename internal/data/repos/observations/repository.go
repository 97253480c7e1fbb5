package observations

import (
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/edusight-backend/internal/domain"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// Counts is the number of observations per domain.
type Counts struct {
	Academic      int
	Psychological int
	Physical      int
}

func (c Counts) Total() int { return c.Academic + c.Psychological + c.Physical }

// Minus subtracts o per domain, stopping at zero.
func (c Counts) Minus(o Counts) Counts {
	return Counts{
		Academic:      max(c.Academic-o.Academic, 0),
		Psychological: max(c.Psychological-o.Psychological, 0),
		Physical:      max(c.Physical-o.Physical, 0),
	}
}

func (c Counts) For(d types.Domain) int {
	switch d {
	case types.DomainAcademic:
		return c.Academic
	case types.DomainPsychological:
		return c.Psychological
	case types.DomainPhysical:
		return c.Physical
	}
	return 0
}

// Repository is the typed read model scorers, summaries and analytics use in
// place of walking model relations. An empty academicYear means every year.
type Repository interface {
	Academic(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.AcademicObservation, error)
	Psychological(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.PsychologicalObservation, error)
	Physical(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.PhysicalObservation, error)
	LatestPsychological(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.PsychologicalObservation, error)
	LatestPhysical(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.PhysicalObservation, error)
	Counts(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (Counts, error)
	// Years lists the academic years holding at least one observation, ascending.
	Years(dbc dbctx.Context, studentID uuid.UUID) ([]string, error)

	AcademicRepo() AcademicRepo
	PsychologicalRepo() PsychologicalRepo
	PhysicalRepo() PhysicalRepo
}

type repository struct {
	db            *gorm.DB
	log           *logger.Logger
	academic      AcademicRepo
	psychological PsychologicalRepo
	physical      PhysicalRepo
}

func NewRepository(db *gorm.DB, baseLog *logger.Logger) Repository {
	return &repository{
		db:            db,
		log:           baseLog.With("repo", "ObservationRepository"),
		academic:      NewAcademicRepo(db, baseLog),
		psychological: NewPsychologicalRepo(db, baseLog),
		physical:      NewPhysicalRepo(db, baseLog),
	}
}

func (r *repository) AcademicRepo() AcademicRepo           { return r.academic }
func (r *repository) PsychologicalRepo() PsychologicalRepo { return r.psychological }
func (r *repository) PhysicalRepo() PhysicalRepo           { return r.physical }

func (r *repository) Academic(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.AcademicObservation, error) {
	return r.academic.ListByStudent(dbc, studentID, academicYear)
}

func (r *repository) Psychological(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.PsychologicalObservation, error) {
	return r.psychological.ListByStudent(dbc, studentID, academicYear)
}

func (r *repository) Physical(dbc dbctx.Context, studentID uuid.UUID, academicYear string) ([]*types.PhysicalObservation, error) {
	return r.physical.ListByStudent(dbc, studentID, academicYear)
}

func (r *repository) LatestPsychological(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.PsychologicalObservation, error) {
	return r.psychological.Latest(dbc, studentID, academicYear)
}

func (r *repository) LatestPhysical(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (*types.PhysicalObservation, error) {
	return r.physical.Latest(dbc, studentID, academicYear)
}

func (r *repository) Counts(dbc dbctx.Context, studentID uuid.UUID, academicYear string) (Counts, error) {
	var c Counts
	a, err := r.academic.CountByStudent(dbc, studentID, academicYear)
	if err != nil {
		return c, err
	}
	p, err := r.psychological.CountByStudent(dbc, studentID, academicYear)
	if err != nil {
		return c, err
	}
	ph, err := r.physical.CountByStudent(dbc, studentID, academicYear)
	if err != nil {
		return c, err
	}
	return Counts{Academic: int(a), Psychological: int(p), Physical: int(ph)}, nil
}

func (r *repository) Years(dbc dbctx.Context, studentID uuid.UUID) ([]string, error) {
	seen := map[string]struct{}{}
	for _, model := range []interface{}{
		&types.AcademicObservation{},
		&types.PsychologicalObservation{},
		&types.PhysicalObservation{},
	} {
		var years []string
		err := dbc.DB(r.db).
			Model(model).
			Where("student_id = ?", studentID).
			Distinct().
			Pluck("academic_year", &years).Error
		if err != nil {
			return nil, err
		}
		for _, y := range years {
			if y != "" {
				seen[y] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Strings(out)
	return out, nil
}
