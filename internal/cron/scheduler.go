package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ecitizenpay/internal/metrics"
	"ecitizenpay/internal/models"
)

// AttemptStore is the slice of the attempt repository the jobs need.
type AttemptStore interface {
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
	StatusCounts(ctx context.Context, since time.Time) (map[string]int64, error)
}

// Reporter posts operator messages. *telegram.Notifier satisfies it.
type Reporter interface {
	Report(text string)
}

// Scheduler manages all cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	attempts AttemptStore
	reporter Reporter
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a new cron scheduler. Pending attempts older than timeout are
// expired; reporter may be nil.
func New(attempts AttemptStore, reporter Reporter, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 2 * time.Hour
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(nairobi)),
		attempts: attempts,
		reporter: reporter,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

var nairobi = time.FixedZone("EAT", 3*60*60)

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...")

	// Payment expire - every 5 minutes
	if _, err := s.cron.AddFunc("0 */5 * * * *", func() {
		s.logger.Debug("Running: payment expire")
		s.paymentExpire()
	}); err != nil {
		return fmt.Errorf("register payment expire: %w", err)
	}

	// Daily status report - at 23:45 Nairobi time
	if s.reporter != nil {
		if _, err := s.cron.AddFunc("0 45 23 * * *", func() {
			s.logger.Debug("Running: daily status report")
			s.dailyStatusReport()
		}); err != nil {
			return fmt.Errorf("register daily report: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// paymentExpire marks attempts that never got a callback as expired. It
// only touches the database; the gateway is never polled.
func (s *Scheduler) paymentExpire() {
	defer s.recoverFromPanic("paymentExpire")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.timeout)
	n, err := s.attempts.ExpirePending(ctx, cutoff)
	if err != nil {
		s.logger.Error("Payment expire failed", zap.Error(err))
		return
	}
	if n > 0 {
		metrics.AttemptsExpiredTotal.Add(float64(n))
	}
	s.logger.Debug("Payment expire completed", zap.Int64("expired", n))
}

func (s *Scheduler) dailyStatusReport() {
	defer s.recoverFromPanic("dailyStatusReport")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := s.now().In(nairobi)
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, nairobi)
	counts, err := s.attempts.StatusCounts(ctx, since)
	if err != nil {
		s.logger.Error("Daily status report failed", zap.Error(err))
		return
	}
	s.reporter.Report(formatDailyReport(now, counts))
}

var reportRows = []struct{ status, label string }{
	{models.AttemptPaid, "Paid"},
	{models.AttemptFailed, "Failed"},
	{models.AttemptExpired, "Expired"},
	{models.AttemptPending, "Pending"},
}

func formatDailyReport(day time.Time, counts map[string]int64) string {
	var total int64
	for _, n := range counts {
		total += n
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Daily payment report</b> %s\n\n", day.Format("2006-01-02"))
	fmt.Fprintf(&b, "Requests: %d\n", total)
	for _, row := range reportRows {
		fmt.Fprintf(&b, "%s: %d\n", row.label, counts[row.status])
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
