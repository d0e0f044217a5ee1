package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/roadmaster/internal/common"
	"github.com/suPer8Hu/roadmaster/internal/haul"
	"github.com/suPer8Hu/roadmaster/internal/observe"
	"github.com/suPer8Hu/roadmaster/internal/ratelimit"
	"github.com/suPer8Hu/roadmaster/internal/validation"
)

func (h *Handler) IngestTelemetry(c *gin.Context) {
	var req validation.TelemetryInput
	if !h.bind(c, &req) {
		return
	}
	uid, ok := h.authenticate(c, req.Auth)
	if !ok {
		return
	}
	if !h.limit(c, ratelimit.Telemetry, uid) {
		return
	}
	if req.JobID != nil && !h.owns(c, uid, "jobs", *req.JobID) {
		return
	}

	row := telemetryRow(&req)
	if err := h.Haul.IngestTelemetry(c.Request.Context(), uid, row); err != nil {
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{"op": "insert_telemetry", "user_id": uid})
		common.Fail(c, http.StatusInternalServerError, 50001, "Failed to insert telemetry")
		return
	}
	common.OK(c, gin.H{"success": true})
}

func telemetryRow(req *validation.TelemetryInput) *haul.Telemetry {
	row := &haul.Telemetry{
		JobID:                req.JobID,
		Speed:                *req.Speed,
		RPM:                  *req.RPM,
		Gear:                 *req.Gear,
		FuelCurrent:          *req.FuelCurrent,
		FuelCapacity:         *req.FuelCapacity,
		EngineDamage:         *req.EngineDamage,
		TransmissionDamage:   *req.TransmissionDamage,
		ChassisDamage:        *req.ChassisDamage,
		WheelsDamage:         *req.WheelsDamage,
		CabinDamage:          *req.CabinDamage,
		CargoDamage:          *req.CargoDamage,
		PositionX:            *req.PositionX,
		PositionY:            *req.PositionY,
		PositionZ:            *req.PositionZ,
		CruiseControlSpeed:   req.CruiseControlSpeed,
		CruiseControlEnabled: req.CruiseControlEnabled,
		ParkingBrake:         req.ParkingBrake,
		MotorBrake:           req.MotorBrake,
		RetarderLevel:        req.Retarder,
		AirPressure:          req.AirPressure,
		BrakeTemperature:     req.BrakeTemperature,
		NavigationDistance:   req.NavigationDistance,
		NavigationTime:       req.NavigationTime,
		SpeedLimit:           req.SpeedLimit,
	}
	if req.GameTime != nil {
		if t, err := time.Parse(time.RFC3339, *req.GameTime); err == nil {
			row.GameTime = &t
		}
	}
	return row
}
