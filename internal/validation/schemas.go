package validation

// Auth carries the caller's credentials inside a request body. At least one
// of the two must be present.
type Auth struct {
	UserID *string `json:"user_id" validate:"omitempty,uuid"`
	APIKey *string `json:"api_key" validate:"omitempty,apikey"`
}

// TelemetryInput is one sample streamed by the game plugin.
type TelemetryInput struct {
	Auth
	JobID *string `json:"job_id" validate:"omitempty,uuid"`

	Speed        *float64 `json:"speed" validate:"required,gte=0,lte=150"`
	RPM          *int     `json:"rpm" validate:"required,gte=0,lte=3000"`
	Gear         *int     `json:"gear" validate:"required,gte=-6,lte=18"`
	FuelCurrent  *float64 `json:"fuel_current" validate:"required,gte=0"`
	FuelCapacity *float64 `json:"fuel_capacity" validate:"required,gt=0"`

	EngineDamage       *float64 `json:"engine_damage" validate:"required,gte=0,lte=1"`
	TransmissionDamage *float64 `json:"transmission_damage" validate:"required,gte=0,lte=1"`
	ChassisDamage      *float64 `json:"chassis_damage" validate:"required,gte=0,lte=1"`
	WheelsDamage       *float64 `json:"wheels_damage" validate:"required,gte=0,lte=1"`
	CabinDamage        *float64 `json:"cabin_damage" validate:"required,gte=0,lte=1"`
	CargoDamage        *float64 `json:"cargo_damage" validate:"required,gte=0,lte=1"`

	PositionX *float64 `json:"position_x" validate:"required"`
	PositionY *float64 `json:"position_y" validate:"required"`
	PositionZ *float64 `json:"position_z" validate:"required"`
	GameTime  *string  `json:"game_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`

	CruiseControlSpeed   *float64 `json:"cruise_control_speed" validate:"omitempty,gte=0,lte=150"`
	CruiseControlEnabled *bool    `json:"cruise_control_enabled"`
	ParkingBrake         *bool    `json:"parking_brake"`
	MotorBrake           *bool    `json:"motor_brake"`
	Retarder             *int     `json:"retarder_level" validate:"omitempty,gte=0,lte=5"`
	AirPressure          *float64 `json:"air_pressure" validate:"omitempty,gte=0,lte=200"`
	BrakeTemperature     *float64 `json:"brake_temperature" validate:"omitempty,gte=0,lte=1000"`
	NavigationDistance   *float64 `json:"navigation_distance" validate:"omitempty,gte=0"`
	NavigationTime       *float64 `json:"navigation_time" validate:"omitempty,gte=0"`
	SpeedLimit           *float64 `json:"speed_limit" validate:"omitempty,gte=0,lte=150"`
}

// JobStartInput opens a new delivery.
type JobStartInput struct {
	Auth
	SourceCity         string  `json:"source_city" validate:"required,min=1,max=100"`
	SourceCompany      *string `json:"source_company" validate:"omitempty,min=1,max=100"`
	DestinationCity    string  `json:"destination_city" validate:"required,min=1,max=100"`
	DestinationCompany *string `json:"destination_company" validate:"omitempty,min=1,max=100"`
	CargoType          string  `json:"cargo_type" validate:"required,min=1,max=100"`
	CargoWeight        *int    `json:"cargo_weight" validate:"omitempty,gte=0,lte=100000"`
	Income             *int    `json:"income" validate:"required,gte=0,lte=1000000"`
	Distance           *int    `json:"distance" validate:"required,gte=1,lte=10000"`
	Deadline           *string `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// JobCompleteInput closes a job. The optional metric fields are used only
// where the recorded telemetry cannot supply a value.
type JobCompleteInput struct {
	Auth
	JobID         string   `json:"job_id" validate:"required,uuid"`
	CargoDamage   *float64 `json:"cargo_damage" validate:"required,gte=0,lte=1"`
	DeliveredLate *bool    `json:"delivered_late" validate:"required"`
	FuelConsumed  *float64 `json:"fuel_consumed" validate:"omitempty,gte=0"`
	DamageTaken   *float64 `json:"damage_taken" validate:"omitempty,gte=0,lte=1"`
	AvgSpeed      *float64 `json:"avg_speed" validate:"omitempty,gte=0,lte=150"`
	AvgRPM        *int     `json:"avg_rpm" validate:"omitempty,gte=0,lte=3000"`
}

// PreferencesInput is a partial update of a user's alert and display settings.
type PreferencesInput struct {
	FuelAlertThreshold        *int    `json:"fuel_alert_threshold" validate:"omitempty,gte=0,lte=100"`
	RestAlertMinutes          *int    `json:"rest_alert_minutes" validate:"omitempty,gte=0,lte=480"`
	MaintenanceAlertThreshold *int    `json:"maintenance_alert_threshold" validate:"omitempty,gte=0,lte=100"`
	Units                     *string `json:"units" validate:"omitempty,oneof=imperial metric"`
	Currency                  *string `json:"currency" validate:"omitempty,oneof=USD EUR GBP CAD AUD"`
	Timezone                  *string `json:"timezone" validate:"omitempty,max=100"`
}
