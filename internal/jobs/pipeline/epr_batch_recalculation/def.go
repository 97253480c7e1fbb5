package epr_batch_recalculation

import (
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/recompute"
)

const JobType = "epr_batch_recalculation"

type Pipeline struct {
	log      *logger.Logger
	ctrl     recompute.Controller
	profiles students.StudentProfileRepo
}

func New(baseLog *logger.Logger, ctrl recompute.Controller, profiles students.StudentProfileRepo) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", JobType),
		ctrl:     ctrl,
		profiles: profiles,
	}
}

func (p *Pipeline) Type() string { return JobType }
