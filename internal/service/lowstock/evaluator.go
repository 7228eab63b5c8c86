package lowstock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockwatch/internal/domain/models"
	"github.com/mamadbah2/stockwatch/internal/lock"
	"github.com/mamadbah2/stockwatch/internal/service/notification"
	"github.com/mamadbah2/stockwatch/internal/service/reporting"
	"github.com/mamadbah2/stockwatch/pkg/metrics"
)

const (
	ChannelThreshold = "threshold"
	ChannelDaily     = "daily"
)

var (
	// ErrRunInProgress is returned when another evaluation holds the run lock.
	ErrRunInProgress = errors.New("low stock evaluation already in progress")
	// ErrMisconfigured is returned when Settings are incomplete.
	ErrMisconfigured = errors.New("low stock evaluator misconfigured")
)

// ItemSource reads the inventory catalog.
type ItemSource interface {
	ListActiveItems(ctx context.Context) ([]models.InventoryItem, error)
}

// RecipientSource reads the alert recipient list.
type RecipientSource interface {
	ListEnabledRecipients(ctx context.Context) ([]models.AlertRecipient, error)
}

// StateStore persists per-item low-stock state.
type StateStore interface {
	ListStates(ctx context.Context) ([]models.LowStockState, error)
	UpsertState(ctx context.Context, state models.LowStockState) error
}

// Archiver records delivered alerts somewhere durable.
type Archiver interface {
	RecordAlert(ctx context.Context, channel string, sentAt time.Time, items []models.InventoryItem) error
}

// Settings is the explicit configuration an evaluation needs.
type Settings struct {
	SenderAddress string
	APIKey        string
	Location      *time.Location
	DigestHour    int
	DigestWindow  time.Duration
}

// Validate reports missing or out-of-range settings.
func (s Settings) Validate() error {
	switch {
	case s.SenderAddress == "":
		return fmt.Errorf("%w: sender address is empty", ErrMisconfigured)
	case s.APIKey == "":
		return fmt.Errorf("%w: email api key is empty", ErrMisconfigured)
	case s.Location == nil:
		return fmt.Errorf("%w: business timezone is not set", ErrMisconfigured)
	case s.DigestHour < 0 || s.DigestHour > 23:
		return fmt.Errorf("%w: digest hour %d out of range", ErrMisconfigured, s.DigestHour)
	case s.DigestWindow <= 0:
		return fmt.Errorf("%w: digest window must be positive", ErrMisconfigured)
	}
	return nil
}

// Params wires the evaluator's collaborators. Archive and Metrics are optional.
type Params struct {
	Items      ItemSource
	Recipients RecipientSource
	States     StateStore
	Mailer     notification.Mailer
	Reports    *reporting.Service
	Locker     lock.Locker
	Archive    Archiver
	Metrics    *metrics.LowStockMetrics
	Settings   Settings
	Logger     *zap.Logger
}

// Evaluator runs the low-stock state machine.
type Evaluator struct {
	items      ItemSource
	recipients RecipientSource
	states     StateStore
	mailer     notification.Mailer
	reports    *reporting.Service
	locker     lock.Locker
	archive    Archiver
	metrics    *metrics.LowStockMetrics
	settings   Settings
	logger     *zap.Logger
	now        func() time.Time
}

// NewEvaluator validates dependencies and builds an Evaluator. Settings are
// not validated here; Run checks them on every invocation.
func NewEvaluator(p Params) (*Evaluator, error) {
	if p.Items == nil {
		return nil, errors.New("item source required")
	}
	if p.Recipients == nil {
		return nil, errors.New("recipient source required")
	}
	if p.States == nil {
		return nil, errors.New("state store required")
	}
	if p.Mailer == nil {
		return nil, errors.New("mailer required")
	}
	if p.Locker == nil {
		p.Locker = lock.NewLocalLocker()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Reports == nil {
		p.Reports = reporting.NewService(p.Settings.Location, p.Logger)
	}
	return &Evaluator{
		items:      p.Items,
		recipients: p.Recipients,
		states:     p.States,
		mailer:     p.Mailer,
		reports:    p.Reports,
		locker:     p.Locker,
		archive:    p.Archive,
		metrics:    p.Metrics,
		settings:   p.Settings,
		logger:     p.Logger,
		now:        time.Now,
	}, nil
}

// Run performs one evaluation. On failure the returned summary carries the
// counts computed before the error plus the error text.
func (e *Evaluator) Run(ctx context.Context) (models.RunSummary, error) {
	log := e.logger.With(zap.String("run_id", uuid.NewString()))
	var summary models.RunSummary

	if err := e.settings.Validate(); err != nil {
		e.metrics.IncRun(metrics.ResultFailure)
		log.Error("low stock run refused", zap.Error(err))
		summary.Error = err.Error()
		return summary, err
	}

	release, ok, err := e.locker.Acquire(ctx)
	if err != nil {
		err = fmt.Errorf("acquire run lock: %w", err)
		e.metrics.IncRun(metrics.ResultFailure)
		log.Error("low stock run failed", zap.Error(err))
		summary.Error = err.Error()
		return summary, err
	}
	if !ok {
		e.metrics.IncRun(metrics.ResultSkipped)
		log.Info("low stock run skipped, another run holds the lock")
		summary.Error = ErrRunInProgress.Error()
		return summary, ErrRunInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release run lock", zap.Error(err))
		}
	}()

	start := time.Now()
	err = e.evaluate(ctx, log, &summary)
	e.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		e.metrics.IncRun(metrics.ResultFailure)
		log.Error("low stock run failed", zap.Error(err), zap.Any("summary", summary))
		summary.Error = err.Error()
		return summary, err
	}

	e.metrics.IncRun(metrics.ResultSuccess)
	log.Info("low stock run complete",
		zap.Int("recipients", summary.RecipientsCount),
		zap.Int("low", summary.LowCount),
		zap.Int("newly_low", summary.NewlyLowCount),
		zap.Bool("sent_threshold", summary.SentThreshold),
		zap.Bool("sent_daily", summary.SentDaily))
	return summary, nil
}

func (e *Evaluator) evaluate(ctx context.Context, log *zap.Logger, summary *models.RunSummary) error {
	now := e.now()

	items, err := e.items.ListActiveItems(ctx)
	if err != nil {
		return fmt.Errorf("load inventory items: %w", err)
	}
	states, err := e.states.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("load low stock state: %w", err)
	}
	recipients, err := e.recipients.ListEnabledRecipients(ctx)
	if err != nil {
		return fmt.Errorf("load alert recipients: %w", err)
	}

	to, rejected := notification.NormalizeRecipients(recipients)
	if len(rejected) > 0 {
		log.Warn("skipping undeliverable recipient addresses", zap.Strings("addresses", rejected))
	}
	summary.RecipientsCount = len(to)

	p := plan(items, states, now)
	summary.LowCount = len(p.low)
	summary.NewlyLowCount = len(p.newlyLow)
	e.metrics.SetLowItems(len(p.low))

	for _, state := range p.writes {
		if err := e.states.UpsertState(ctx, state); err != nil {
			return fmt.Errorf("persist low stock state: %w", err)
		}
	}
	log.Debug("low stock state persisted", zap.Int("writes", len(p.writes)))

	if len(p.pending) > 0 && len(to) > 0 {
		email, err := e.reports.ThresholdEmail(p.pending, now)
		if err != nil {
			return err
		}
		if err := e.mailer.Send(ctx, models.EmailMessage{To: to, Subject: email.Subject, HTML: email.HTML}); err != nil {
			return fmt.Errorf("send threshold email: %w", err)
		}
		summary.SentThreshold = true
		e.metrics.IncEmail(ChannelThreshold)

		stamp := now
		for _, item := range p.pending {
			state := p.target[item.ID]
			state.LastThresholdEmailAt = &stamp
			state.UpdatedAt = now
			if err := e.states.UpsertState(ctx, state); err != nil {
				return fmt.Errorf("stamp threshold email: %w", err)
			}
			p.target[item.ID] = state
		}
		e.archiveAlert(ctx, log, ChannelThreshold, now, p.pending)
	}

	localNow := now.In(e.settings.Location)
	today := e.reports.LocalDate(now)
	if e.inDigestWindow(localNow) && len(to) > 0 && p.needsDigest(today) {
		email, err := e.reports.DailyDigestEmail(p.low, today)
		if err != nil {
			return err
		}
		if err := e.mailer.Send(ctx, models.EmailMessage{To: to, Subject: email.Subject, HTML: email.HTML}); err != nil {
			return fmt.Errorf("send daily digest: %w", err)
		}
		summary.SentDaily = true
		e.metrics.IncEmail(ChannelDaily)

		for _, item := range p.low {
			state := p.target[item.ID]
			state.LastDailyDigestLocalDate = today
			state.UpdatedAt = now
			if err := e.states.UpsertState(ctx, state); err != nil {
				return fmt.Errorf("stamp daily digest: %w", err)
			}
			p.target[item.ID] = state
		}
		e.archiveAlert(ctx, log, ChannelDaily, now, p.low)
	}

	return nil
}

// inDigestWindow reports whether local falls within [DigestHour:00, DigestHour:00+DigestWindow].
func (e *Evaluator) inDigestWindow(local time.Time) bool {
	start := time.Date(local.Year(), local.Month(), local.Day(), e.settings.DigestHour, 0, 0, 0, local.Location())
	end := start.Add(e.settings.DigestWindow)
	return !local.Before(start) && !local.After(end)
}

func (e *Evaluator) archiveAlert(ctx context.Context, log *zap.Logger, channel string, sentAt time.Time, items []models.InventoryItem) {
	if e.archive == nil {
		return
	}
	// The email already went out; an archive failure must not fail the run.
	if err := e.archive.RecordAlert(ctx, channel, sentAt, items); err != nil {
		log.Warn("failed to archive alert", zap.String("channel", channel), zap.Error(err))
	}
}

// CurrentLowStock returns the items that are low right now, joined with their
// persisted state. Items without a state row get an empty state.
func (e *Evaluator) CurrentLowStock(ctx context.Context) ([]models.LowStockEntry, error) {
	items, err := e.items.ListActiveItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory items: %w", err)
	}
	states, err := e.states.ListStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load low stock state: %w", err)
	}

	byItem := make(map[string]models.LowStockState, len(states))
	for _, s := range states {
		byItem[s.ItemID] = s
	}

	entries := make([]models.LowStockEntry, 0)
	for _, item := range items {
		if !item.IsLow() {
			continue
		}
		state, ok := byItem[item.ID]
		if !ok {
			state = models.LowStockState{ItemID: item.ID}
		}
		entries = append(entries, models.LowStockEntry{Item: item, State: state})
	}
	return entries, nil
}

// runPlan is the outcome of classifying one snapshot.
type runPlan struct {
	// low is the current low set in catalog order.
	low []models.InventoryItem
	// newlyLow are low items whose previous state was absent or not low.
	newlyLow []models.InventoryItem
	// pending are low items whose threshold email is still owed. It is a
	// superset of newlyLow when an earlier send failed.
	pending []models.InventoryItem
	// target holds the post-classification state of every low item.
	target map[string]models.LowStockState
	// writes are the state rows whose classification changed.
	writes []models.LowStockState
}

// plan classifies items against the previous state snapshot. It is pure so
// that newly-low detection only ever sees the state read at run start.
func plan(items []models.InventoryItem, states []models.LowStockState, now time.Time) runPlan {
	prev := make(map[string]models.LowStockState, len(states))
	for _, s := range states {
		prev[s.ItemID] = s
	}

	p := runPlan{target: make(map[string]models.LowStockState)}
	lowIDs := make(map[string]struct{})

	for _, item := range items {
		if !item.IsLow() {
			continue
		}
		if _, dup := lowIDs[item.ID]; dup {
			continue
		}
		lowIDs[item.ID] = struct{}{}
		p.low = append(p.low, item)

		old, seen := prev[item.ID]
		wasLow := seen && old.IsLow && old.FirstLowAt != nil

		state := old
		state.ItemID = item.ID
		if !wasLow {
			firstLow := now
			state.IsLow = true
			state.FirstLowAt = &firstLow
			state.UpdatedAt = now
			p.writes = append(p.writes, state)
		}
		if !seen || !old.IsLow {
			p.newlyLow = append(p.newlyLow, item)
		}
		p.target[item.ID] = state

		if !state.ThresholdNotified() {
			p.pending = append(p.pending, item)
		}
	}

	var recovered []models.LowStockState
	for id, old := range prev {
		if !old.IsLow {
			continue
		}
		if _, stillLow := lowIDs[id]; stillLow {
			continue
		}
		state := old
		state.IsLow = false
		state.FirstLowAt = nil
		state.UpdatedAt = now
		recovered = append(recovered, state)
	}
	sort.Slice(recovered, func(i, j int) bool { return recovered[i].ItemID < recovered[j].ItemID })
	p.writes = append(p.writes, recovered...)

	return p
}

// needsDigest reports whether any low item has not been digested on today.
func (p runPlan) needsDigest(today string) bool {
	for _, item := range p.low {
		if p.target[item.ID].LastDailyDigestLocalDate != today {
			return true
		}
	}
	return false
}
