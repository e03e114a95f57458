package matcharchive

import (
	"context"

	"github.com/cheildo/nexus-checkers/internal/gamemaster"
)

// Sink writes match lifecycle events to the archive.
type Sink struct {
	repo Repository
}

func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo}
}

func (s *Sink) Name() string { return "match-archive" }

func (s *Sink) Handle(ctx context.Context, ev gamemaster.Event) error {
	switch ev.Type {
	case gamemaster.EventMatchStarted:
		return s.repo.SaveStart(ctx, ev)
	case gamemaster.EventMatchFinished:
		return s.repo.SaveFinish(ctx, ev)
	}
	return nil
}
