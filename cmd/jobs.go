package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-sponsorships/app/service"
	"github.com/vibast-solutions/ms-go-sponsorships/config"
)

var (
	workerMode bool
)

type jobFunc func(s *service.PaymentService, ctx context.Context) error

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Poll providers for open orders that have not heard back",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"reconcile",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunReconcileBatch(ctx)
			},
		)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Run order event related commands",
}

var eventsDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Publish order events that are due for delivery",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"events_dispatch",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.EventDispatchInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunDispatchEventsBatch(ctx)
			},
		)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Mark pending and processing orders past their deadline as expired",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunExpirePendingBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(expireCmd)
	eventsCmd.AddCommand(eventsDispatchCmd)
	expireCmd.AddCommand(expirePendingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

// jobObserver records job runs.
type jobObserver interface {
	ObserveJob(job string, err error, elapsed time.Duration)
}

func runCommand(name string, intervalResolver func(cfg *config.Config) time.Duration, fn jobFunc) {
	app := mustCreateApplication()
	defer app.cleanup()

	if workerMode {
		runWorker(name, intervalResolver(app.cfg), app.payments, app.metrics, fn)
		return
	}

	ctx := context.Background()
	runJob(name, app.metrics, func() error { return fn(app.payments, ctx) })
}

func runWorker(name string, interval time.Duration, paymentService *service.PaymentService, observer jobObserver, fn jobFunc) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, observer, func() error { return fn(paymentService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, observer, func() error { return fn(paymentService, ctx) })
		}
	}
}

func runJob(name string, observer jobObserver, fn func() error) {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if observer != nil {
		observer.ObserveJob(name, err, elapsed)
	}

	entry := logrus.WithFields(logrus.Fields{
		"job":        name,
		"latency":    elapsed.String(),
		"latency_ns": elapsed.Nanoseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("job_failed")
		return
	}
	entry.Info("job_completed")
}
