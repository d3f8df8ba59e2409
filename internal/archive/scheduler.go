package archive

import (
	"archivist/internal/archive/interfaces"
	"archivist/internal/providers"
	"archivist/internal/services"
	"archivist/internal/structures"
	"context"
	"sync"

	"github.com/robfig/cron"
	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	service  services.TrackerServiceInterface
	exporter *Exporter
	tracking *gron.Cron
	exports  *cron.Cron
	opsMu    sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// Init starts tracking every configured interval and, when export.schedule
// is set, exporting on that cron spec. A run still in progress when the next
// one is due makes the next one skip.
func (s *Scheduler) Init() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.tracking = gron.New()
	s.tracking.AddFunc(gron.Every(s.config.Tracker.Interval), func() {
		if !s.opsMu.TryLock() {
			s.logger.Warnf(providers.TypeApp, "Previous tracking is still running, skipping")
			return
		}
		defer s.opsMu.Unlock()

		if err := s.runOnce(s.ctx); err != nil {
			s.logger.Errorf(providers.TypeApp, "Tracking finished with errors: %s", err)
		}
	})
	s.tracking.Start()

	if s.config.Export.Schedule == "" || s.config.Export.FilePath == "" {
		return
	}
	schedule, err := cron.Parse(s.config.Export.Schedule)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Invalid export schedule %q: %s", s.config.Export.Schedule, err)
		return
	}
	s.exports = cron.New()
	s.exports.Schedule(schedule, cron.FuncJob(func() {
		if err := s.Persist(s.ctx); err != nil {
			return
		}
		s.logger.Infof(providers.TypeApp, "Exported versions to %s", s.config.Export.FilePath)
	}))
	s.exports.Start()
}

// Stop cancels a run in progress and waits for it to return.
func (s *Scheduler) Stop() {
	if s.tracking == nil {
		return
	}
	s.tracking.Stop()
	if s.exports != nil {
		s.exports.Stop()
	}
	s.cancel()

	s.opsMu.Lock()
	defer s.opsMu.Unlock()
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	return s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) error {
	s.logger.Infof(providers.TypeApp, "Tracking %d documents...", len(s.config.Tracker.Documents))
	err := s.service.TrackAll(ctx)
	s.logger.Infof(providers.TypeApp, "Tracking done")
	return err
}

// Persist exports the history when an export file is configured.
func (s *Scheduler) Persist(ctx context.Context) error {
	if s.config.Export.FilePath == "" {
		return nil
	}

	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Exporting versions to %s...", s.config.Export.FilePath)
	if _, err := s.exporter.Export(ctx, s.config.Export.FilePath); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while exporting versions: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.TrackerServiceInterface, exporter *Exporter) interfaces.SchedulerInterface {
	return &Scheduler{
		config:   config,
		logger:   logger,
		service:  service,
		exporter: exporter,
	}
}
