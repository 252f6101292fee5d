package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/light-recon/internal/database"
	"github.com/kozaktomas/light-recon/internal/live"
	"github.com/kozaktomas/light-recon/internal/registry"
)

// liveSession is a wired live runner plus the resources it was built from.
type liveSession struct {
	runner   *live.Runner
	manager  *registry.Manager
	journal  database.SightingStore // nil when disabled
	switcher bool
}

func (s *liveSession) Close() {
	if s.journal != nil {
		s.journal.Close()
	}
}

// newLiveSession builds the registry, opens the journal and the frame source,
// and wires a Runner over them.
func (a *app) newLiveSession(ctx context.Context, replay string, loop bool, index int, quiet bool) (*liveSession, error) {
	manager, err := a.buildRegistry(ctx, quiet)
	if err != nil {
		return nil, err
	}
	if manager.Current().Len() == 0 {
		a.logger.Warn("registry is empty, every face will be unidentified", "dataset", a.cfg.Dataset.Dir)
	}

	journal, err := a.openJournal(ctx)
	if err != nil {
		return nil, err
	}
	s := &liveSession{manager: manager, journal: journal}

	src, switcher, err := a.openSource(ctx, replay, loop, index)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open frame source: %w", err)
	}

	opts := live.RunnerOptions{
		Matcher:  live.NewMatcher(a.liveConfig(), src, a.vision, a.vision, manager, a.logger),
		Profiles: a.profiles,
		Hub:      live.NewHub(),
		Camera:   switcher,
		Logger:   a.logger,
	}
	if journal != nil {
		opts.Journal = journal
	}
	s.runner = live.NewRunner(opts)
	s.switcher = switcher != nil
	return s, nil
}
