package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/roadmaster/internal/config"
	"github.com/suPer8Hu/roadmaster/internal/db"
	"github.com/suPer8Hu/roadmaster/internal/haul"
	"github.com/suPer8Hu/roadmaster/internal/logger"
	"github.com/suPer8Hu/roadmaster/internal/observe"
	"github.com/suPer8Hu/roadmaster/internal/store/rabbitmq"
)

const (
	maxRetries = 3
	retryDelay = 5 * time.Second
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.L()

	if err := observe.Init(observe.SentryOptions{
		Dsn:         cfg.SentryDSN,
		Name:        "roadmaster-worker",
		Environment: cfg.AppEnv,
	}); err != nil {
		log.WithError(err).Warn("sentry init failed")
	}
	defer observe.Flush()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	// scoring never publishes, so the service runs without events
	svc := haul.NewService(haul.NewRepo(gdb), nil)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	//  strict concurrency control
	concurrency := cfg.WorkerConcurrency

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"queue":       cfg.RabbitQueue,
		"concurrency": concurrency,
	}).Info("worker started")

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	// amqp channels are not safe for concurrent publishing
	var pubMu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wlog := log.WithField("worker", workerID)
			for d := range jobs {
				m, err := rabbitmq.Decode(d.Body)
				if err != nil {
					wlog.WithError(err).Warn("bad message")
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				card, err := svc.ScoreJob(ctx, m.JobID)
				jlog := wlog.WithFields(logrus.Fields{
					"job_id":  m.JobID,
					"user_id": m.UserID,
					"cost":    time.Since(start).String(),
				})
				if err != nil {
					settleFailure(ctx, ch, &pubMu, cfg.RabbitQueue, d, err, jlog)
					continue
				}

				fields := logrus.Fields{
					"score":         card.Score,
					"rating":        card.Rating,
					"opportunities": len(card.Opportunities),
				}
				if len(card.Opportunities) > 0 {
					top := card.Opportunities[0]
					fields["top_opportunity"] = top.Category
					fields["potential_savings"] = top.PotentialSavings
				}
				jlog.WithFields(fields).Info("job scored")
				if err := d.Ack(false); err != nil {
					jlog.WithError(err).Warn("ack failed")
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// settleFailure dead-letters messages that can never succeed and sends the
// rest through the retry queue until maxRetries is reached.
func settleFailure(ctx context.Context, ch *amqp.Channel, mu *sync.Mutex, queue string, d amqp.Delivery, err error, log *logrus.Entry) {
	if errors.Is(err, haul.ErrJobNotFound) || errors.Is(err, haul.ErrJobNotCompleted) {
		log.WithError(err).Warn("job cannot be scored, dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	attempt := rabbitmq.Attempts(d)
	if attempt >= maxRetries {
		observe.CaptureError(ctx, err, logrus.Fields{"op": "score_job", "attempts": attempt})
		_ = d.Nack(false, false)
		return
	}

	mu.Lock()
	perr := rabbitmq.Retry(ctx, ch, queue, d, retryDelay)
	mu.Unlock()
	if perr != nil {
		log.WithError(perr).Error("retry publish failed")
		_ = d.Nack(false, false)
		return
	}
	log.WithError(err).WithField("attempt", attempt+1).Warn("scoring failed, retrying")
	_ = d.Ack(false)
}
