package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultSchedule запускает обход ежедневно в полночь.
const DefaultSchedule = "0 0 * * *"

const sweepTimeout = 5 * time.Minute

// Store описывает массовое обновление флагов в каталоге.
type Store interface {
	FlagNearExpiry(ctx context.Context, before time.Time, discountPercent decimal.Decimal) (int64, error)
}

// Sweeper периодически помечает товары, вошедшие в окно истечения срока.
type Sweeper struct {
	store  Store
	policy Policy
	logger *zap.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// NewSweeper регистрирует обход по расписанию в формате cron. Запуск выполняет Start или Serve.
func NewSweeper(store Store, policy Policy, schedule string, logger *zap.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	s := &Sweeper{
		store:  store,
		policy: policy,
		logger: logger,
		cron:   cron.New(),
		now:    time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		return nil, fmt.Errorf("register sweep schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Run выполняет один проход: помечает активные товары, у которых срок истекает в пределах окна
// и флаг ещё не выставлен. Снятие флага выполняется только при редактировании товара.
func (s *Sweeper) Run(ctx context.Context) (int64, error) {
	before := ThresholdDate(s.now(), s.policy.ThresholdDays)

	n, err := s.store.FlagNearExpiry(ctx, before, s.policy.DiscountPercent)
	if err != nil {
		return 0, fmt.Errorf("flag near-expiry products: %w", err)
	}

	return n, nil
}

func (s *Sweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	s.runLogged(ctx)
}

func (s *Sweeper) runLogged(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("near-expiry sweep panicked", zap.Any("panic", r))
		}
	}()

	s.logger.Info("running near-expiry sweep")

	n, err := s.Run(ctx)
	if err != nil {
		s.logger.Error("near-expiry sweep failed", zap.Error(err))
		return
	}

	s.logger.Info("near-expiry sweep completed", zap.Int64("flagged", n))
}

// Start запускает планировщик в фоне.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик. Возвращённый контекст завершается после окончания текущего прохода.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

// Serve запускает планировщик и блокируется до отмены ctx. При runOnStart сразу выполняет один проход.
func (s *Sweeper) Serve(ctx context.Context, runOnStart bool) {
	s.Start()

	if runOnStart {
		s.runLogged(ctx)
	}

	<-ctx.Done()
	<-s.Stop().Done()
}
