package haul

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/roadmaster/internal/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrJobNotFound         = errors.New("job not found")
	ErrJobAlreadyCompleted = errors.New("job already completed")
	ErrJobNotCompleted     = errors.New("job not completed")
	ErrUnknownResource     = errors.New("unknown resource table")
)

// ownable lists the tables whose rows carry a user_id.
var ownable = map[string]bool{
	"jobs":      true,
	"telemetry": true,
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJob(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *Repo) InsertTelemetry(ctx context.Context, t *Telemetry) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// OwnsResource reports whether the row id in table belongs to userID. A
// missing row is reported the same way as a row owned by someone else.
func (r *Repo) OwnsResource(ctx context.Context, userID, table, id string) (bool, error) {
	if !ownable[table] {
		return false, fmt.Errorf("%w: %q", ErrUnknownResource, table)
	}
	var owner string
	err := r.db.WithContext(ctx).
		Table(table).
		Select("user_id").
		Where("id = ?", id).
		Limit(1).
		Scan(&owner).Error
	if err != nil {
		return false, err
	}
	return owner != "" && owner == userID, nil
}

// CompleteFunc computes the column updates for a job from its telemetry.
type CompleteFunc func(job *Job, samples []Telemetry) (map[string]any, error)

// CompleteJob closes a job in one transaction. The job row is locked where
// the dialect supports it and the final update only applies while
// completed_at is still null, so a job is completed at most once.
func (r *Repo) CompleteJob(ctx context.Context, userID, jobID string, fn CompleteFunc) (*Job, error) {
	var out Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ? AND user_id = ?", jobID, userID)
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var job Job
		if err := q.First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			return err
		}
		if job.Completed() {
			return ErrJobAlreadyCompleted
		}

		var samples []Telemetry
		if err := tx.Where("job_id = ?", jobID).
			Order("created_at ASC").
			Order("id ASC").
			Find(&samples).Error; err != nil {
			return err
		}

		updates, err := fn(&job, samples)
		if err != nil {
			return err
		}

		res := tx.Model(&Job{}).
			Where("id = ? AND completed_at IS NULL", jobID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrJobAlreadyCompleted
		}
		return tx.First(&out, "id = ?", jobID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UserAverages is the user's baseline over completed jobs other than excludeJobID.
func (r *Repo) UserAverages(ctx context.Context, userID, excludeJobID string) (metrics.UserAverage, error) {
	var row struct {
		AvgMPG    *float64
		AvgDamage *float64
		AvgSpeed  *float64
	}
	err := r.db.WithContext(ctx).
		Model(&Job{}).
		Select(
			"AVG(CASE WHEN fuel_economy > 0 THEN fuel_economy END) AS avg_mpg, "+
				"AVG(damage_taken) AS avg_damage, "+
				"AVG(CASE WHEN avg_speed > 0 THEN avg_speed END) AS avg_speed",
		).
		Where("user_id = ? AND completed_at IS NOT NULL AND id <> ?", userID, excludeJobID).
		Scan(&row).Error
	if err != nil {
		return metrics.UserAverage{}, err
	}

	var avg metrics.UserAverage
	if row.AvgMPG != nil {
		avg.AvgMPG = *row.AvgMPG
	}
	if row.AvgDamage != nil {
		avg.AvgDamage = *row.AvgDamage
	}
	if row.AvgSpeed != nil {
		avg.AvgSpeed = *row.AvgSpeed
	}
	return avg, nil
}

func (r *Repo) SetPerformanceScore(ctx context.Context, jobID string, score float64) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", jobID).
		Update("performance_score", score).Error
}

// UserIDByAPIKeyDigest finds the user whose stored key digest matches exactly.
func (r *Repo) UserIDByAPIKeyDigest(ctx context.Context, digest string) (string, bool, error) {
	var p UserPreference
	err := r.db.WithContext(ctx).
		Select("user_id").
		Where("api_key = ?", digest).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return p.UserID, true, nil
}

// GetPreferences returns the stored row or defaults when the user has none.
func (r *Repo) GetPreferences(ctx context.Context, userID string) (*UserPreference, error) {
	var p UserPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			d := DefaultPreferences(userID)
			return &d, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpsertPreferences creates the row from defaults if needed and applies
// the given column updates.
func (r *Repo) UpsertPreferences(ctx context.Context, userID string, updates map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d := DefaultPreferences(userID)
		d.UpdatedAt = time.Now()
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&d).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&UserPreference{}).
			Where("user_id = ?", userID).
			Updates(updates).Error
	})
}

func (r *Repo) SetAPIKeyDigest(ctx context.Context, userID, digest string) error {
	return r.UpsertPreferences(ctx, userID, map[string]any{"api_key": digest})
}
