package haul

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/suPer8Hu/roadmaster/internal/metrics"
	"gorm.io/gorm"
)

const (
	alice = "5b6f8a52-2d1c-4b7e-9f3a-0c1d2e3f4a5b"
	bob   = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

type recordingEvents struct {
	published []string
	err       error
}

func (e *recordingEvents) PublishJobCompleted(_ context.Context, jobID, userID string) error {
	e.published = append(e.published, jobID+"/"+userID)
	return e.err
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingEvents) {
	t.Helper()
	db := openTestDB(t)
	ev := &recordingEvents{}
	return NewService(NewRepo(db), ev), db, ev
}

func startJob(t *testing.T, svc *Service, userID string) *Job {
	t.Helper()
	job, err := svc.StartJob(context.Background(), userID, StartParams{
		SourceCity:      "Berlin",
		DestinationCity: "Prague",
		CargoType:       "Electronics",
		Income:          5000,
		Distance:        400,
	})
	if err != nil {
		t.Fatalf("start job: %v", err)
	}
	return job
}

// insertSample writes a telemetry row with an explicit capture time.
func insertSample(t *testing.T, db *gorm.DB, userID, jobID string, at time.Time, fuel, speed float64, rpm int, damage float64) {
	t.Helper()
	jid := jobID
	row := &Telemetry{
		ID:           uuid.NewString(),
		UserID:       userID,
		JobID:        &jid,
		Speed:        speed,
		RPM:          rpm,
		Gear:         6,
		FuelCurrent:  fuel,
		FuelCapacity: 200,
		EngineDamage: damage,
		CreatedAt:    at.UTC(),
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("insert telemetry: %v", err)
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestStartJob_Persists(t *testing.T) {
	svc, db, _ := newTestService(t)
	job := startJob(t, svc, alice)

	if _, err := uuid.Parse(job.ID); err != nil {
		t.Fatalf("job id is not a uuid: %q", job.ID)
	}
	var got Job
	if err := db.First(&got, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if got.UserID != alice || got.Income != 5000 || got.Distance != 400 {
		t.Fatalf("unexpected job: %+v", got)
	}
	if got.Completed() || got.StartedAt.IsZero() {
		t.Fatalf("new job should be open with a start time: %+v", got)
	}
}

func TestCompleteJob_DerivesFromTelemetry(t *testing.T) {
	svc, db, ev := newTestService(t)
	job := startJob(t, svc, alice)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertSample(t, db, alice, job.ID, t0, 100, 55, 1200, 0.01)
	insertSample(t, db, alice, job.ID, t0.Add(time.Second), 80, 0, 0, 0.03)
	insertSample(t, db, alice, job.ID, t0.Add(2*time.Second), 60, 60, 1300, 0.05)

	// ignored: telemetry cannot be overridden by the payload
	payloadFuel := 999.0
	res, err := svc.CompleteJob(context.Background(), alice, job.ID, CompleteParams{
		CargoDamage:   0.02,
		DeliveredLate: true,
		FuelConsumed:  &payloadFuel,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	m := res.Metrics
	if m.FuelConsumed == nil || *m.FuelConsumed != 40 {
		t.Fatalf("fuel consumed = %v, want 40", m.FuelConsumed)
	}
	if m.DamageTaken == nil || !near(*m.DamageTaken, 5) {
		t.Fatalf("damage taken = %v, want 5", m.DamageTaken)
	}
	if m.AvgSpeed == nil || !near(*m.AvgSpeed, 57.5) {
		t.Fatalf("avg speed = %v, want 57.5", m.AvgSpeed)
	}
	if m.FuelEconomy == nil || !near(*m.FuelEconomy, 10) {
		t.Fatalf("fuel economy = %v, want 10", m.FuelEconomy)
	}
	wantProfit := 5000 - metrics.FuelCost(40) - metrics.DamageCost(5)
	if m.Profit == nil || !near(*m.Profit, wantProfit) {
		t.Fatalf("profit = %v, want %v", m.Profit, wantProfit)
	}

	var stored Job
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !stored.Completed() || !stored.DeliveredLate || stored.NeedsReview {
		t.Fatalf("unexpected stored job: %+v", stored)
	}
	if stored.AvgRPM == nil || !near(*stored.AvgRPM, 1250) {
		t.Fatalf("avg rpm = %v, want 1250", stored.AvgRPM)
	}
	if stored.CargoDamage == nil || *stored.CargoDamage != 0.02 {
		t.Fatalf("cargo damage = %v", stored.CargoDamage)
	}
	if len(ev.published) != 1 || ev.published[0] != job.ID+"/"+alice {
		t.Fatalf("published = %v", ev.published)
	}
}

func TestCompleteJob_SecondCompletionIsRejected(t *testing.T) {
	svc, db, ev := newTestService(t)
	job := startJob(t, svc, alice)
	insertSample(t, db, alice, job.ID, time.Now(), 50, 40, 1000, 0)

	if _, err := svc.CompleteJob(context.Background(), alice, job.ID, CompleteParams{}); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	var first Job
	db.First(&first, "id = ?", job.ID)

	_, err := svc.CompleteJob(context.Background(), alice, job.ID, CompleteParams{DeliveredLate: true})
	if !errors.Is(err, ErrJobAlreadyCompleted) {
		t.Fatalf("second complete: got %v, want ErrJobAlreadyCompleted", err)
	}

	var after Job
	db.First(&after, "id = ?", job.ID)
	if !after.CompletedAt.Equal(*first.CompletedAt) || after.DeliveredLate {
		t.Fatalf("second completion must not mutate the job: before=%+v after=%+v", first, after)
	}
	if len(ev.published) != 1 {
		t.Fatalf("expected one event, got %v", ev.published)
	}
}

func TestCompleteJob_ForeignJob(t *testing.T) {
	svc, db, _ := newTestService(t)
	job := startJob(t, svc, alice)

	_, err := svc.CompleteJob(context.Background(), bob, job.ID, CompleteParams{})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("got %v, want ErrJobNotFound", err)
	}
	var stored Job
	db.First(&stored, "id = ?", job.ID)
	if stored.Completed() {
		t.Fatalf("foreign user must not complete the job")
	}
}

func TestCompleteJob_NoDataLeavesMetricsNull(t *testing.T) {
	svc, _, _ := newTestService(t)
	job := startJob(t, svc, alice)

	res, err := svc.CompleteJob(context.Background(), alice, job.ID, CompleteParams{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	m := res.Metrics
	if m.FuelConsumed != nil || m.DamageTaken != nil || m.AvgSpeed != nil || m.Profit != nil || m.FuelEconomy != nil {
		t.Fatalf("expected null metrics, got %+v", m)
	}
	if !res.Job.Completed() {
		t.Fatalf("job should still be completed")
	}
}

func TestCompleteJob_PayloadFillsGaps(t *testing.T) {
	svc, _, _ := newTestService(t)
	job := startJob(t, svc, alice)

	fuel, dmg, speed := 50.0, 0.05, 62.0
	res, err := svc.CompleteJob(context.Background(), alice, job.ID, CompleteParams{
		FuelConsumed: &fuel,
		DamageTaken:  &dmg,
		AvgSpeed:     &speed,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	m := res.Metrics
	if m.FuelConsumed == nil || *m.FuelConsumed != 50 {
		t.Fatalf("fuel consumed = %v", m.FuelConsumed)
	}
	if m.DamageTaken == nil || !near(*m.DamageTaken, 5) {
		t.Fatalf("payload damage ratio should become percent, got %v", m.DamageTaken)
	}
	if m.Profit == nil || !near(*m.Profit, 4297.50) {
		t.Fatalf("profit = %v, want 4297.50", m.Profit)
	}
	if m.AvgSpeed == nil || *m.AvgSpeed != 62 {
		t.Fatalf("avg speed = %v", m.AvgSpeed)
	}
}

func TestCompleteJob_RefuelFlagsReview(t *testing.T) {
	svc, db, _ := newTestService(t)
	job := startJob(t, svc, alice)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertSample(t, db, alice, job.ID, t0, 20, 50, 1000, 0)
	insertSample(t, db, alice, job.ID, t0.Add(time.Minute), 180, 50, 1000, 0)

	res, err := svc.CompleteJob(context.Background(), alice, job.ID, CompleteParams{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Metrics.FuelConsumed == nil || *res.Metrics.FuelConsumed != 0 {
		t.Fatalf("fuel consumed = %v, want 0", res.Metrics.FuelConsumed)
	}
	if !res.Job.NeedsReview {
		t.Fatalf("expected job to be flagged for review")
	}
}

func TestCompleteJob_PublishFailureIsNotFatal(t *testing.T) {
	svc, _, ev := newTestService(t)
	ev.err = errors.New("broker down")
	job := startJob(t, svc, alice)

	if _, err := svc.CompleteJob(context.Background(), alice, job.ID, CompleteParams{}); err != nil {
		t.Fatalf("complete should succeed when publish fails: %v", err)
	}
}

func TestOwnsResource(t *testing.T) {
	svc, db, _ := newTestService(t)
	job := startJob(t, svc, alice)
	insertSample(t, db, alice, job.ID, time.Now(), 50, 40, 1000, 0)
	var sample Telemetry
	db.First(&sample)

	ctx := context.Background()
	cases := []struct {
		name  string
		user  string
		table string
		id    string
		want  bool
	}{
		{"owner job", alice, "jobs", job.ID, true},
		{"other user job", bob, "jobs", job.ID, false},
		{"missing job", alice, "jobs", uuid.NewString(), false},
		{"owner sample", alice, "telemetry", sample.ID, true},
		{"other user sample", bob, "telemetry", sample.ID, false},
	}
	for _, c := range cases {
		got, err := svc.OwnsResource(ctx, c.user, c.table, c.id)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}

	if _, err := svc.OwnsResource(ctx, alice, "user_preferences", alice); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("unknown table: got %v", err)
	}
}

func TestIngestTelemetry(t *testing.T) {
	svc, db, _ := newTestService(t)
	job := startJob(t, svc, alice)

	row := &Telemetry{JobID: &job.ID, Speed: 55, RPM: 1200, Gear: 8, FuelCurrent: 100, FuelCapacity: 200}
	if err := svc.IngestTelemetry(context.Background(), alice, row); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	var got Telemetry
	if err := db.First(&got, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.UserID != alice || got.JobID == nil || *got.JobID != job.ID {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestPreferences(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Preferences(ctx, alice)
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if p.Units != "imperial" || p.FuelAlertThreshold != 20 {
		t.Fatalf("unexpected defaults: %+v", p)
	}

	if err := svc.UpdatePreferences(ctx, alice, map[string]any{"units": "metric", "fuel_alert_threshold": 0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	p, _ = svc.Preferences(ctx, alice)
	if p.Units != "metric" || p.FuelAlertThreshold != 0 || p.Currency != "USD" {
		t.Fatalf("unexpected preferences: %+v", p)
	}

	if err := svc.UpdatePreferences(ctx, alice, map[string]any{"currency": "EUR"}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	p, _ = svc.Preferences(ctx, alice)
	if p.Units != "metric" || p.Currency != "EUR" {
		t.Fatalf("update should keep earlier values: %+v", p)
	}
}

func TestAPIKeyDigestLookup(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	repo := svc.Repo()

	if _, found, err := repo.UserIDByAPIKeyDigest(ctx, "abc"); err != nil || found {
		t.Fatalf("empty store: found=%v err=%v", found, err)
	}
	if err := svc.RotateAPIKey(ctx, alice, "digest-1"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	uid, found, err := repo.UserIDByAPIKeyDigest(ctx, "digest-1")
	if err != nil || !found || uid != alice {
		t.Fatalf("lookup = %q %v %v", uid, found, err)
	}

	if err := svc.RotateAPIKey(ctx, alice, "digest-2"); err != nil {
		t.Fatalf("rotate again: %v", err)
	}
	if _, found, _ := repo.UserIDByAPIKeyDigest(ctx, "digest-1"); found {
		t.Fatalf("old key must stop working after rotation")
	}
}

func TestScoreJob(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	// two earlier jobs: 8 MPG, 10% damage, 50 mph
	for i := 0; i < 2; i++ {
		j := startJob(t, svc, alice)
		fuel, dmg, speed := 50.0, 0.10, 50.0
		if _, err := svc.CompleteJob(ctx, alice, j.ID, CompleteParams{FuelConsumed: &fuel, DamageTaken: &dmg, AvgSpeed: &speed}); err != nil {
			t.Fatalf("complete baseline: %v", err)
		}
	}

	j := startJob(t, svc, alice)
	fuel, dmg, speed := 50.0, 0.10, 60.0
	if _, err := svc.CompleteJob(ctx, alice, j.ID, CompleteParams{DeliveredLate: true, FuelConsumed: &fuel, DamageTaken: &dmg, AvgSpeed: &speed}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	card, err := svc.ScoreJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !near(card.Score, 70) || card.Rating != "Good" {
		t.Fatalf("scorecard = %+v, want 70/Good", card)
	}
	if len(card.Opportunities) != 1 || card.Opportunities[0].Category != "Speed Management" {
		t.Fatalf("opportunities = %+v", card.Opportunities)
	}
	var stored Job
	db.First(&stored, "id = ?", j.ID)
	if stored.PerformanceScore == nil || !near(*stored.PerformanceScore, 70) {
		t.Fatalf("stored score = %v", stored.PerformanceScore)
	}

	open := startJob(t, svc, alice)
	if _, err := svc.ScoreJob(ctx, open.ID); !errors.Is(err, ErrJobNotCompleted) {
		t.Fatalf("open job: got %v", err)
	}
}
