package haul

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/roadmaster/internal/logger"
	"github.com/suPer8Hu/roadmaster/internal/metrics"
)

// Events is notified after a job completion commits.
type Events interface {
	PublishJobCompleted(ctx context.Context, jobID, userID string) error
}

type Service struct {
	repo   *Repo
	events Events
	now    func() time.Time
}

func NewService(repo *Repo, events Events) *Service {
	return &Service{repo: repo, events: events, now: time.Now}
}

func (s *Service) Repo() *Repo { return s.repo }

type StartParams struct {
	SourceCity         string
	SourceCompany      *string
	DestinationCity    string
	DestinationCompany *string
	CargoType          string
	CargoWeight        *int
	Income             int
	Distance           int
	Deadline           *time.Time
}

func (s *Service) StartJob(ctx context.Context, userID string, p StartParams) (*Job, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	job := &Job{
		ID:                 id.String(),
		UserID:             userID,
		SourceCity:         p.SourceCity,
		SourceCompany:      p.SourceCompany,
		DestinationCity:    p.DestinationCity,
		DestinationCompany: p.DestinationCompany,
		CargoType:          p.CargoType,
		CargoWeight:        p.CargoWeight,
		Income:             p.Income,
		Distance:           p.Distance,
		Deadline:           p.Deadline,
		StartedAt:          s.now(),
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// IngestTelemetry stores one sample. Sample ids are time ordered so rows
// written within the same clock tick still sort in arrival order.
func (s *Service) IngestTelemetry(ctx context.Context, userID string, t *Telemetry) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	t.ID = id.String()
	t.UserID = userID
	return s.repo.InsertTelemetry(ctx, t)
}

func (s *Service) OwnsResource(ctx context.Context, userID, table, id string) (bool, error) {
	return s.repo.OwnsResource(ctx, userID, table, id)
}

// CompleteParams is what the client reports when closing a job. The
// optional metrics only fill gaps the recorded telemetry leaves.
type CompleteParams struct {
	CargoDamage   float64
	DeliveredLate bool
	FuelConsumed  *float64
	DamageTaken   *float64 // ratio 0..1
	AvgSpeed      *float64
	AvgRPM        *float64
}

// Completion is a closed job plus the headline figures returned to the client.
type Completion struct {
	Job     *Job
	Metrics Summary
}

type Summary struct {
	FuelConsumed *float64 `json:"fuel_consumed"`
	DamageTaken  *float64 `json:"damage_taken"`
	AvgSpeed     *float64 `json:"avg_speed"`
	Profit       *float64 `json:"profit"`
	FuelEconomy  *float64 `json:"fuel_economy"`
}

func (s *Service) CompleteJob(ctx context.Context, userID, jobID string, p CompleteParams) (*Completion, error) {
	job, err := s.repo.CompleteJob(ctx, userID, jobID, func(job *Job, samples []Telemetry) (map[string]any, error) {
		d := metrics.Derive(toSamples(samples))
		fillFromPayload(&d, p)
		m := metrics.Summarize(float64(job.Income), float64(job.Distance), d)

		if d.RefuelDetected {
			logger.From(ctx).WithFields(logrus.Fields{
				"user_id": userID,
				"job_id":  jobID,
			}).Warn("[Jobs] refuel detected, fuel consumed clamped to 0")
		}

		return map[string]any{
			"completed_at":    s.now(),
			"cargo_damage":    p.CargoDamage,
			"delivered_late":  p.DeliveredLate,
			"fuel_consumed":   d.FuelConsumed,
			"damage_taken":    d.DamageTaken,
			"avg_speed":       d.AvgSpeed,
			"avg_rpm":         d.AvgRPM,
			"fuel_cost":       m.FuelCost,
			"damage_cost":     m.DamageCost,
			"profit":          m.Profit,
			"profit_per_mile": m.ProfitPerMile,
			"fuel_economy":    m.FuelEconomy,
			"needs_review":    d.RefuelDetected,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishJobCompleted(ctx, job.ID, userID); err != nil {
			logger.From(ctx).WithError(err).WithField("job_id", job.ID).
				Warn("[Jobs] publish job.completed failed")
		}
	}

	return &Completion{
		Job: job,
		Metrics: Summary{
			FuelConsumed: job.FuelConsumed,
			DamageTaken:  job.DamageTaken,
			AvgSpeed:     job.AvgSpeed,
			Profit:       job.Profit,
			FuelEconomy:  job.FuelEconomy,
		},
	}, nil
}

func toSamples(rows []Telemetry) []metrics.Sample {
	out := make([]metrics.Sample, len(rows))
	for i := range rows {
		t := &rows[i]
		rpm := float64(t.RPM)
		out[i] = metrics.Sample{
			FuelCurrent:        &t.FuelCurrent,
			Speed:              &t.Speed,
			RPM:                &rpm,
			EngineDamage:       t.EngineDamage,
			TransmissionDamage: t.TransmissionDamage,
			ChassisDamage:      t.ChassisDamage,
			WheelsDamage:       t.WheelsDamage,
			CabinDamage:        t.CabinDamage,
			CargoDamage:        t.CargoDamage,
		}
	}
	return out
}

func fillFromPayload(d *metrics.Derived, p CompleteParams) {
	if d.FuelConsumed == nil && p.FuelConsumed != nil {
		v := *p.FuelConsumed
		d.FuelConsumed = &v
	}
	if d.DamageTaken == nil && p.DamageTaken != nil {
		v := *p.DamageTaken * 100
		d.DamageTaken = &v
	}
	if d.AvgSpeed == nil && p.AvgSpeed != nil {
		v := *p.AvgSpeed
		d.AvgSpeed = &v
	}
	if d.AvgRPM == nil && p.AvgRPM != nil {
		v := *p.AvgRPM
		d.AvgRPM = &v
	}
}

// Scorecard is the worker's verdict on a completed job.
type Scorecard struct {
	Score         float64               `json:"score"`
	Rating        string                `json:"rating"`
	Opportunities []metrics.Opportunity `json:"opportunities"`
}

// ScoreJob rates a completed job against the user's other completed jobs
// and stores the score.
func (s *Service) ScoreJob(ctx context.Context, jobID string) (*Scorecard, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Completed() {
		return nil, ErrJobNotCompleted
	}
	avg, err := s.repo.UserAverages(ctx, job.UserID, job.ID)
	if err != nil {
		return nil, err
	}
	late := job.DeliveredLate
	result := metrics.JobResult{
		Distance:      float64(job.Distance),
		FuelConsumed:  job.FuelConsumed,
		DamageTaken:   job.DamageTaken,
		AvgSpeed:      job.AvgSpeed,
		DeliveredLate: &late,
	}
	score := metrics.PerformanceScore(result, avg)
	if err := s.repo.SetPerformanceScore(ctx, job.ID, score); err != nil {
		return nil, err
	}
	return &Scorecard{
		Score:         score,
		Rating:        metrics.PerformanceRating(score),
		Opportunities: metrics.ImprovementOpportunities(result, avg),
	}, nil
}

// Preferences

func (s *Service) Preferences(ctx context.Context, userID string) (*UserPreference, error) {
	return s.repo.GetPreferences(ctx, userID)
}

func (s *Service) UpdatePreferences(ctx context.Context, userID string, updates map[string]any) error {
	return s.repo.UpsertPreferences(ctx, userID, updates)
}

// RotateAPIKey stores the digest of a freshly generated key.
func (s *Service) RotateAPIKey(ctx context.Context, userID, digest string) error {
	return s.repo.SetAPIKeyDigest(ctx, userID, digest)
}
