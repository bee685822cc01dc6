package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	auctionapi "github.com/kilianp07/lineauction/api/auction"
	"github.com/kilianp07/lineauction/app/plugins"
	"github.com/kilianp07/lineauction/config"
	"github.com/kilianp07/lineauction/core/auction"
	"github.com/kilianp07/lineauction/core/auction/journal"
	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/events"
	"github.com/kilianp07/lineauction/core/fleet"
	coremetrics "github.com/kilianp07/lineauction/core/metrics"
	"github.com/kilianp07/lineauction/core/monitoring"
	"github.com/kilianp07/lineauction/core/payout"
	"github.com/kilianp07/lineauction/core/schedule"
	"github.com/kilianp07/lineauction/core/store"
	"github.com/kilianp07/lineauction/infra/logger"
	"github.com/kilianp07/lineauction/infra/metrics"
	inframon "github.com/kilianp07/lineauction/infra/monitoring"
	"github.com/kilianp07/lineauction/infra/mqtt"
	"github.com/kilianp07/lineauction/internal/eventbus"
)

// Service wires the auction core to its store, journal, sinks and outbound
// publishers.
type Service struct {
	Config    *config.Config
	Store     store.Store
	Journal   journal.Store
	Bus       *eventbus.TypedBus[events.Outcome]
	Sink      coremetrics.Sink
	Resolver  *auction.Resolver
	Cascade   *auction.Cascade
	Schedules *schedule.Service
	Fleet     *fleet.Service
	Payout    *payout.Ticker

	publisher *mqtt.OutcomePublisher
	log       logger.Logger
	closeOnce sync.Once
}

// New creates a Service from the configuration. Nothing runs in the
// background until Run is called.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	logg.Debugw("available modules", map[string]any{"modules": plugins.Available()})

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	frames, err := cfg.Auction.FrameTable()
	if err != nil {
		return nil, fmt.Errorf("frames: %w", err)
	}
	caps, err := cfg.Auction.Caps()
	if err != nil {
		return nil, fmt.Errorf("bid caps: %w", err)
	}
	planner := duty.NewPlanner(cfg.Duty)

	svc := &Service{Config: cfg, log: logg, Bus: eventbus.NewTyped[events.Outcome]()}
	st, err := store.New(cfg.Store.ModuleConfig)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	svc.Store = st
	j, err := journal.Open(cfg.Auction.Journal)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	svc.Journal = j
	svc.Sink, err = coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc.Resolver = auction.NewResolver(svc.Store, caps, planner,
		auction.WithJournal(svc.Journal),
		auction.WithBus(svc.Bus),
		auction.WithLogger(logger.New("auction")),
	)
	svc.Cascade = auction.NewCascade(svc.Resolver, logger.New("cascade"))
	svc.Schedules = schedule.New(svc.Store, svc.Resolver,
		schedule.WithFrames(frames),
		schedule.WithCaps(caps),
		schedule.WithPlanner(planner),
		schedule.WithLogger(logger.New("schedule")),
	)
	svc.Fleet = fleet.New(svc.Store, svc.Cascade, logger.New("fleet"))
	svc.Payout, err = payout.NewTicker(svc.Store, frames, cfg.Payout,
		payout.WithSink(svc.Sink),
		payout.WithLogger(logger.New("payout")),
	)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("payout: %w", err)
	}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewOutcomePublisher(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
	}
	return svc, nil
}

// Run starts the background workers and blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wait := func(done <-chan struct{}) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-done
		}()
	}

	wait(metrics.StartOutcomeCollector(ctx, s.Bus, s.Sink))
	if s.publisher != nil {
		wait(mqtt.Forward(ctx, s.Bus, s.publisher))
	}
	if addr := s.Config.Metrics.PrometheusAddr; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			routes := []metrics.Route{
				{Pattern: "/api/auction/journal", Handler: auctionapi.NewJournalHandler(s.Journal)},
				{Pattern: "/api/auction/winners", Handler: auctionapi.NewWinnersHandler(s.Schedules.Winners)},
			}
			if err := metrics.StartPromServer(ctx, addr, nil, routes...); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.Config.Payout.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Payout.Start(ctx); err != nil {
				s.log.Errorf("payout ticker: %v", err)
			}
		}()
	}

	s.log.Infof("lineauction running (store=%s)", s.Config.Store.Type)
	<-ctx.Done()
	wg.Wait()
	s.log.Infof("lineauction stopped")
	return nil
}

type closer interface{ Close() }

// Close releases resources held by the service. It is safe to call more
// than once.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.publisher != nil {
			s.publisher.Disconnect()
		}
		if s.Bus != nil {
			s.Bus.Close()
		}
		if c, ok := s.Sink.(closer); ok {
			c.Close()
		}
		if s.Journal != nil {
			if err := s.Journal.Close(); err != nil {
				errs = append(errs, fmt.Errorf("journal: %w", err))
			}
		}
		if s.Store != nil {
			if err := s.Store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("store: %w", err))
			}
		}
		monitoring.Flush(2 * time.Second)
	})
	return errors.Join(errs...)
}
