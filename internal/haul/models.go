package haul

import "time"

type Job struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"type:varchar(36);index;not null" json:"user_id"`

	SourceCity         string  `gorm:"type:varchar(100);not null" json:"source_city"`
	SourceCompany      *string `gorm:"type:varchar(100)" json:"source_company"`
	DestinationCity    string  `gorm:"type:varchar(100);not null" json:"destination_city"`
	DestinationCompany *string `gorm:"type:varchar(100)" json:"destination_company"`
	CargoType          string  `gorm:"type:varchar(100);not null" json:"cargo_type"`
	CargoWeight        *int    `json:"cargo_weight"`
	Income             int     `gorm:"not null" json:"income"`
	Distance           int     `gorm:"not null" json:"distance"`

	StartedAt     time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt   *time.Time `gorm:"index" json:"completed_at"`
	Deadline      *time.Time `json:"deadline"`
	DeliveredLate bool       `gorm:"not null;default:false" json:"delivered_late"`
	CargoDamage   *float64   `json:"cargo_damage"`

	// Filled on completion. Nil means no data, not zero.
	FuelConsumed  *float64 `json:"fuel_consumed"`
	DamageTaken   *float64 `json:"damage_taken"`
	AvgSpeed      *float64 `json:"avg_speed"`
	AvgRPM        *float64 `gorm:"column:avg_rpm" json:"avg_rpm"`
	FuelCost      *float64 `json:"fuel_cost"`
	DamageCost    *float64 `json:"damage_cost"`
	Profit        *float64 `json:"profit"`
	ProfitPerMile *float64 `json:"profit_per_mile"`
	FuelEconomy   *float64 `json:"fuel_economy"`

	// Set when the tank level rose during the job.
	NeedsReview bool `gorm:"not null;default:false" json:"needs_review"`

	// Filled by the worker after completion.
	PerformanceScore *float64 `json:"performance_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

// Completed reports whether the job has been closed.
func (j *Job) Completed() bool { return j.CompletedAt != nil }

type Telemetry struct {
	ID     string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string  `gorm:"type:varchar(36);index;not null" json:"user_id"`
	JobID  *string `gorm:"type:varchar(36);index:idx_telemetry_job_created,priority:1" json:"job_id"`

	Speed        float64 `gorm:"not null" json:"speed"`
	RPM          int     `gorm:"column:rpm;not null" json:"rpm"`
	Gear         int     `gorm:"not null" json:"gear"`
	FuelCurrent  float64 `gorm:"not null" json:"fuel_current"`
	FuelCapacity float64 `gorm:"not null" json:"fuel_capacity"`

	EngineDamage       float64 `gorm:"not null" json:"engine_damage"`
	TransmissionDamage float64 `gorm:"not null" json:"transmission_damage"`
	ChassisDamage      float64 `gorm:"not null" json:"chassis_damage"`
	WheelsDamage       float64 `gorm:"not null" json:"wheels_damage"`
	CabinDamage        float64 `gorm:"not null" json:"cabin_damage"`
	CargoDamage        float64 `gorm:"not null" json:"cargo_damage"`

	PositionX float64    `gorm:"not null" json:"position_x"`
	PositionY float64    `gorm:"not null" json:"position_y"`
	PositionZ float64    `gorm:"not null" json:"position_z"`
	GameTime  *time.Time `json:"game_time"`

	CruiseControlSpeed   *float64 `json:"cruise_control_speed"`
	CruiseControlEnabled *bool    `json:"cruise_control_enabled"`
	ParkingBrake         *bool    `json:"parking_brake"`
	MotorBrake           *bool    `json:"motor_brake"`
	RetarderLevel        *int     `json:"retarder_level"`
	AirPressure          *float64 `json:"air_pressure"`
	BrakeTemperature     *float64 `json:"brake_temperature"`
	NavigationDistance   *float64 `json:"navigation_distance"`
	NavigationTime       *float64 `json:"navigation_time"`
	SpeedLimit           *float64 `json:"speed_limit"`

	CreatedAt time.Time `gorm:"index:idx_telemetry_job_created,priority:2" json:"created_at"`
}

func (Telemetry) TableName() string { return "telemetry" }

type UserPreference struct {
	UserID string `gorm:"primaryKey;type:varchar(36)" json:"user_id"`

	// BLAKE2b digest of the plugin key; the plaintext is never stored.
	APIKeyDigest *string `gorm:"column:api_key;type:varchar(64);uniqueIndex" json:"-"`

	FuelAlertThreshold        int    `gorm:"not null" json:"fuel_alert_threshold"`
	RestAlertMinutes          int    `gorm:"not null" json:"rest_alert_minutes"`
	MaintenanceAlertThreshold int    `gorm:"not null" json:"maintenance_alert_threshold"`
	Units                     string `gorm:"type:varchar(16);not null" json:"units"`
	Currency                  string `gorm:"type:varchar(8);not null" json:"currency"`
	Timezone                  string `gorm:"type:varchar(100);not null" json:"timezone"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (UserPreference) TableName() string { return "user_preferences" }

// DefaultPreferences is what a user sees before saving any settings. Rows
// are always created from it, so the columns carry no database defaults.
func DefaultPreferences(userID string) UserPreference {
	return UserPreference{
		UserID:                    userID,
		FuelAlertThreshold:        20,
		RestAlertMinutes:          240,
		MaintenanceAlertThreshold: 30,
		Units:                     "imperial",
		Currency:                  "USD",
		Timezone:                  "UTC",
	}
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&Job{}, &Telemetry{}, &UserPreference{}}
}
