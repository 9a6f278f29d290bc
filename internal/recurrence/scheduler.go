package recurrence

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Manudeeprao/expense-tracker/internal/clock"
	"github.com/Manudeeprao/expense-tracker/internal/events"
	"github.com/Manudeeprao/expense-tracker/internal/logger"
	"github.com/Manudeeprao/expense-tracker/internal/metrics"
	"github.com/Manudeeprao/expense-tracker/internal/models"
)

// Store is the slice of the ledger port the scheduler needs. Generated
// expenses are written directly and never pass through the budget gate.
type Store interface {
	ListActiveTemplates(ctx context.Context) ([]models.RecurrenceTemplate, error)
	ExistsExpense(ctx context.Context, userID, name string, date time.Time) (bool, error)
	SaveExpense(ctx context.Context, expense *models.Expense) error
	SaveTemplate(ctx context.Context, template *models.RecurrenceTemplate) error
}

// RunResult summarizes one pass over the active templates.
type RunResult struct {
	Date      string        `json:"date"`
	Checked   int           `json:"checked"`
	Generated int           `json:"generated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

type outcome string

const (
	outcomeGenerated outcome = "generated"
	outcomeNotDue    outcome = "not_due"
	outcomeDuplicate outcome = "duplicate"
	outcomeInactive  outcome = "inactive"
	outcomeFailed    outcome = "failed"
)

// Scheduler emits expenses for due templates.
type Scheduler struct {
	store     Store
	clock     clock.Clock
	publisher events.Publisher
	log       *zap.SugaredLogger
}

// NewScheduler creates a Scheduler. A nil publisher disables events.
func NewScheduler(store Store, clk clock.Clock, publisher events.Publisher) *Scheduler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Scheduler{
		store:     store,
		clock:     clk,
		publisher: publisher,
		log:       logger.Named("recurrence"),
	}
}

// RunDueRecurrences processes every active template once for today. A
// failing template is logged and counted; the rest of the batch still runs.
// Running twice on the same day generates nothing new.
func (s *Scheduler) RunDueRecurrences(ctx context.Context) (result RunResult) {
	start := time.Now()
	today := models.DateOf(s.clock.Now())
	result.Date = today.Format("2006-01-02")

	defer func() {
		result.Duration = time.Since(start)
		metrics.RecurrenceRuns.Inc()
		metrics.RecurrenceRunDuration.Observe(result.Duration.Seconds())
	}()

	templates, err := s.store.ListActiveTemplates(ctx)
	if err != nil {
		s.log.Errorw("Failed to list recurrence templates", "error", err)
		result.Failed++
		metrics.RecurrenceTemplates.WithLabelValues(string(outcomeFailed)).Inc()
		return result
	}

	s.log.Infow("Processing recurrence templates", "total_active", len(templates), "date", result.Date)

	for i := range templates {
		if ctx.Err() != nil {
			s.log.Warnw("Recurrence run interrupted", "reason", ctx.Err(), "remaining", len(templates)-i)
			break
		}

		tpl := &templates[i]
		result.Checked++

		out, err := s.process(ctx, tpl, today)
		metrics.RecurrenceTemplates.WithLabelValues(string(out)).Inc()
		switch out {
		case outcomeGenerated:
			result.Generated++
		case outcomeFailed:
			result.Failed++
			s.log.Errorw("Failed to process recurrence template",
				"template_id", tpl.ID,
				"source_expense_id", tpl.SourceExpenseID,
				"error", err,
			)
		default:
			result.Skipped++
		}
	}

	s.log.Infow("Recurrence run complete",
		"checked", result.Checked,
		"generated", result.Generated,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result
}

func (s *Scheduler) process(ctx context.Context, tpl *models.RecurrenceTemplate, today time.Time) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = outcomeFailed, fmt.Errorf("panic: %v", r)
		}
	}()

	if !tpl.Active || tpl.Policy == models.RecurrenceNone {
		return outcomeInactive, nil
	}
	if !IsDue(tpl.Policy, tpl.AnchorDate, today) {
		return outcomeNotDue, nil
	}

	exists, err := s.store.ExistsExpense(ctx, tpl.UserID, tpl.Name, today)
	if err != nil {
		return outcomeFailed, fmt.Errorf("check existing expense: %w", err)
	}
	if exists {
		// Already on the books for today; move the anchor so the template
		// is not reconsidered until its next period.
		if err := s.advance(ctx, tpl, today); err != nil {
			return outcomeFailed, err
		}
		return outcomeDuplicate, nil
	}

	expense := tpl.Instance(today)
	if err := s.store.SaveExpense(ctx, expense); err != nil {
		return outcomeFailed, fmt.Errorf("save expense: %w", err)
	}
	if err := s.advance(ctx, tpl, today); err != nil {
		return outcomeFailed, err
	}

	s.log.Infow("Created expense from recurrence template",
		"template_id", tpl.ID,
		"expense_id", expense.ID,
		"user_id", tpl.UserID,
		"policy", tpl.Policy,
	)

	if err := s.publisher.PublishExpenseGenerated(ctx, events.NewExpenseGenerated(expense, s.clock.Now())); err != nil {
		s.log.Warnw("Failed to publish expense generated event", "expense_id", expense.ID, "error", err)
	}
	return outcomeGenerated, nil
}

func (s *Scheduler) advance(ctx context.Context, tpl *models.RecurrenceTemplate, today time.Time) error {
	tpl.AnchorDate = today
	if err := s.store.SaveTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("advance template anchor: %w", err)
	}
	return nil
}
