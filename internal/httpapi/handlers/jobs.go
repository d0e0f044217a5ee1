package handlers

import (
	"errors"
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

func (h *Handler) StartJob(c *gin.Context) {
	var req validation.JobStartInput
	if !h.bind(c, &req) {
		return
	}
	uid, ok := h.authenticate(c, req.Auth)
	if !ok {
		return
	}
	if !h.limit(c, ratelimit.Mutation, uid) {
		return
	}

	p := haul.StartParams{
		SourceCity:         req.SourceCity,
		SourceCompany:      req.SourceCompany,
		DestinationCity:    req.DestinationCity,
		DestinationCompany: req.DestinationCompany,
		CargoType:          req.CargoType,
		CargoWeight:        req.CargoWeight,
		Income:             *req.Income,
		Distance:           *req.Distance,
	}
	if req.Deadline != nil {
		// already checked by the schema
		d, _ := time.Parse(time.RFC3339, *req.Deadline)
		p.Deadline = &d
	}

	job, err := h.Haul.StartJob(c.Request.Context(), uid, p)
	if err != nil {
		observe.CaptureError(c.Request.Context(), err, logrus.Fields{"op": "start_job", "user_id": uid})
		common.Fail(c, http.StatusInternalServerError, 50001, "Failed to create job")
		return
	}
	common.OK(c, gin.H{"job": job})
}

func (h *Handler) CompleteJob(c *gin.Context) {
	var req validation.JobCompleteInput
	if !h.bind(c, &req) {
		return
	}
	uid, ok := h.authenticate(c, req.Auth)
	if !ok {
		return
	}
	if !h.limit(c, ratelimit.Mutation, uid) {
		return
	}
	if !h.owns(c, uid, "jobs", req.JobID) {
		return
	}

	p := haul.CompleteParams{
		CargoDamage:   *req.CargoDamage,
		DeliveredLate: *req.DeliveredLate,
		FuelConsumed:  req.FuelConsumed,
		DamageTaken:   req.DamageTaken,
		AvgSpeed:      req.AvgSpeed,
	}
	if req.AvgRPM != nil {
		rpm := float64(*req.AvgRPM)
		p.AvgRPM = &rpm
	}

	res, err := h.Haul.CompleteJob(c.Request.Context(), uid, req.JobID, p)
	if err != nil {
		switch {
		case errors.Is(err, haul.ErrJobNotFound):
			common.Fail(c, http.StatusNotFound, 40401, "Job not found")
		case errors.Is(err, haul.ErrJobAlreadyCompleted):
			common.Fail(c, http.StatusConflict, 40901, "Job already completed")
		default:
			observe.CaptureError(c.Request.Context(), err, logrus.Fields{
				"op":      "complete_job",
				"user_id": uid,
				"job_id":  req.JobID,
			})
			common.Fail(c, http.StatusInternalServerError, 50001, "Failed to complete job")
		}
		return
	}

	common.OK(c, gin.H{
		"success": true,
		"job":     res.Job,
		"metrics": res.Metrics,
	})
}
