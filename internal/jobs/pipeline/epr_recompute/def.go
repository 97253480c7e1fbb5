package epr_recompute

import (
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/recompute"
)

const JobType = "epr_recompute"

type Pipeline struct {
	log  *logger.Logger
	ctrl recompute.Controller
}

func New(baseLog *logger.Logger, ctrl recompute.Controller) *Pipeline {
	return &Pipeline{
		log:  baseLog.With("job", JobType),
		ctrl: ctrl,
	}
}

func (p *Pipeline) Type() string { return JobType }
