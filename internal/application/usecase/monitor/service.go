package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/application/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type PriceFeed = port.PriceFeed

// SnapshotObserver 快照完成回调（指标上报）
type SnapshotObserver func(snap service.Snapshot, err error)

type ServiceDeps struct {
	Feeds           []PriceFeed
	Symbols         []string
	Account         string
	SnapshotEvery   time.Duration
	SpreadThreshold float64
	Sink            port.Sink
	State           *State
	Prices          *service.PriceService
	Snapshots       *service.SnapshotService
	Cron            *cron.Cron
	OnSnapshot      SnapshotObserver
}

type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	st := deps.State
	if st == nil {
		st = NewState(deps.Symbols)
	}
	if deps.SnapshotEvery <= 0 {
		deps.SnapshotEvery = 5 * time.Minute
	}
	return &Service{
		deps: deps,
		st:   st,
		fmt:  NewFormatter(deps.SpreadThreshold),
	}
}

func (s *Service) State() *State {
	return s.st
}

func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Feeds) == 0 {
		return errors.New("no feeds")
	}

	// 退出时通知转发协程
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merged := make(chan port.Tick, 1024)

	for _, feed := range s.deps.Feeds {
		ch, err := feed.Subscribe(ctx, s.deps.Symbols)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", feed.Name(), err)
		}
		go func(in <-chan port.Tick) {
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-in:
					if !ok {
						return
					}
					select {
					case merged <- t:
					case <-ctx.Done():
						return
					}
				}
			}
		}(ch)

		log.Info().Str("feed", feed.Name()).Msg("feed started")
	}

	snapCh := make(chan time.Time, 1)
	if s.deps.Cron != nil {
		id, err := s.deps.Cron.AddFunc(fmt.Sprintf("@every %s", s.deps.SnapshotEvery), func() {
			select {
			case snapCh <- time.Now():
			default:
			}
		})
		if err != nil {
			return fmt.Errorf("schedule snapshot: %w", err)
		}
		defer s.deps.Cron.Remove(id)
	}

	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, RenderLive))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-snapCh:
			s.snapshot(ctx, now)

		case t := <-merged:
			if s.st.Apply(t) {
				_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, RenderLive))
			}
			if t.PriceNum > 0 && s.deps.Prices != nil {
				if err := s.deps.Prices.UpdatePrice(ctx, t.Symbol, t.PriceNum, t.Ts); err != nil {
					log.Debug().Err(err).Str("symbol", t.Symbol).Msg("cache price failed")
				}
			}
		}
	}
}

// snapshot 归档组合快照并输出一行历史记录
func (s *Service) snapshot(ctx context.Context, now time.Time) {
	line := s.fmt.Render(s.st, RenderSnapshot)
	if s.deps.Snapshots == nil {
		_ = s.deps.Sink.WriteSnapshot(now, line)
		return
	}

	snap, err := s.deps.Snapshots.Take(ctx, s.deps.Account, now.UnixMilli())
	if s.deps.OnSnapshot != nil {
		s.deps.OnSnapshot(snap, err)
	}
	if err != nil {
		log.Error().Err(err).Str("account", s.deps.Account).Msg("snapshot failed")
		_ = s.deps.Sink.WriteSnapshot(now, line)
		return
	}
	_ = s.deps.Sink.WriteSnapshot(now, line+"  "+s.fmt.RenderSummary(snap.Summary))
}
