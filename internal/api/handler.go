// Package api exposes the engine to the host application over the loopback
// HTTP daemon.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/trackforce/fieldguard/internal/behavior"
	"github.com/trackforce/fieldguard/internal/device"
	"github.com/trackforce/fieldguard/internal/fraud"
	"github.com/trackforce/fieldguard/internal/location"
	"github.com/trackforce/fieldguard/internal/route"
	"github.com/trackforce/fieldguard/internal/sensors"
	"github.com/trackforce/fieldguard/pkg/alerthub"
	"github.com/trackforce/fieldguard/pkg/common"
	"github.com/trackforce/fieldguard/pkg/config"
)

// Handler wires the engine components to HTTP endpoints
type Handler struct {
	tracker   *location.Tracker
	source    *location.ChannelSource
	monitor   *sensors.Monitor
	collector *device.Collector
	prober    *device.PushProber
	behavior  *behavior.Store
	fraud     *fraud.Service
	hub       *alerthub.Hub
	tracking  config.TrackingConfig
	log       *zap.Logger

	upgrader websocket.Upgrader
}

// NewHandler creates the API handler
func NewHandler(
	tracker *location.Tracker,
	source *location.ChannelSource,
	monitor *sensors.Monitor,
	collector *device.Collector,
	prober *device.PushProber,
	behaviorStore *behavior.Store,
	fraudService *fraud.Service,
	hub *alerthub.Hub,
	tracking config.TrackingConfig,
	log *zap.Logger,
) *Handler {
	return &Handler{
		tracker:   tracker,
		source:    source,
		monitor:   monitor,
		collector: collector,
		prober:    prober,
		behavior:  behaviorStore,
		fraud:     fraudService,
		hub:       hub,
		tracking:  tracking,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Loopback daemon; the host app is the only caller
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes attaches all engine endpoints to the router group
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	loc := api.Group("/location")
	{
		loc.POST("/fix", h.PushFix)
		loc.GET("/current", h.GetCurrentLocation)
		loc.GET("/history", h.GetLocationHistory)
		loc.GET("/movements", h.GetSuspiciousMovements)
		loc.POST("/tracking/start", h.StartTracking)
		loc.POST("/tracking/stop", h.StopTracking)
	}

	geofences := api.Group("/geofences")
	{
		geofences.GET("", h.ListGeofences)
		geofences.POST("", h.AddGeofence)
		geofences.DELETE("/:id", h.RemoveGeofence)
	}

	snsr := api.Group("/sensors")
	{
		snsr.POST("/sample", h.RecordSensorSample)
		snsr.GET("/movement", h.GetRecentMovement)
	}

	fr := api.Group("/fraud")
	{
		fr.POST("/check", h.CheckFraud)
		fr.GET("/logs", h.GetFraudLogs)
	}

	bh := api.Group("/behavior")
	{
		bh.POST("/visit", h.RecordVisit)
		bh.GET("/:agent_id", h.GetBehaviorPattern)
	}

	api.POST("/device/fingerprint", h.SubmitDeviceFingerprint)
	api.GET("/device/fingerprint", h.GetDeviceFingerprint)
	api.POST("/route/optimize", h.OptimizeRoute)
	api.GET("/ws/alerts", h.HandleAlertSocket)
}

// PushFix accepts a platform location fix from the host app
func (h *Handler) PushFix(c *gin.Context) {
	var p location.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	accepted := h.source.Push(p)
	common.SuccessResponse(c, gin.H{"accepted": accepted})
}

// GetCurrentLocation acquires a single fix and records it in the history
func (h *Handler) GetCurrentLocation(c *gin.Context) {
	p, err := h.tracker.CurrentLocation(c.Request.Context())
	if err != nil {
		if errors.Is(err, location.ErrLocationUnavailable) {
			common.ErrorResponse(c, http.StatusServiceUnavailable, "location unavailable")
			return
		}
		if errors.Is(err, location.ErrPermissionDenied) {
			common.ErrorResponse(c, http.StatusForbidden, "location permission denied")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to acquire location")
		return
	}

	common.SuccessResponse(c, p)
}

// GetLocationHistory returns the recorded fixes, oldest first
func (h *Handler) GetLocationHistory(c *gin.Context) {
	common.SuccessResponse(c, h.tracker.History().Points())
}

// GetSuspiciousMovements returns the suspicious-movement log
func (h *Handler) GetSuspiciousMovements(c *gin.Context) {
	common.SuccessResponse(c, h.tracker.Movements())
}

// StartTracking begins the continuous fix pipeline
func (h *Handler) StartTracking(c *gin.Context) {
	opts := location.Options{
		Accuracy:    location.AccuracyTier(h.tracking.AccuracyTier),
		MinInterval: time.Duration(h.tracking.MinIntervalMs) * time.Millisecond,
		MinDistance: h.tracking.MinDistanceMeters,
	}

	// The stream must outlive this request
	if err := h.tracker.StartTracking(context.Background(), opts); err != nil {
		if errors.Is(err, location.ErrPermissionDenied) {
			common.ErrorResponse(c, http.StatusForbidden, "location permission denied")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to start tracking")
		return
	}

	common.SuccessResponse(c, gin.H{"tracking": true})
}

// StopTracking stops the continuous fix pipeline. Idempotent.
func (h *Handler) StopTracking(c *gin.Context) {
	h.tracker.StopTracking()
	common.SuccessResponse(c, gin.H{"tracking": false})
}

// ListGeofences returns the registered areas
func (h *Handler) ListGeofences(c *gin.Context) {
	common.SuccessResponse(c, h.tracker.Geofences())
}

// AddGeofence registers a monitored area
func (h *Handler) AddGeofence(c *gin.Context) {
	var g location.Geofence
	if err := c.ShouldBindJSON(&g); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.RadiusMeters <= 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "radius_meters must be positive")
		return
	}

	h.tracker.AddGeofence(c.Request.Context(), g)
	common.CreatedResponse(c, g)
}

// RemoveGeofence unregisters a monitored area
func (h *Handler) RemoveGeofence(c *gin.Context) {
	h.tracker.RemoveGeofence(c.Request.Context(), c.Param("id"))
	common.SuccessResponse(c, gin.H{"removed": c.Param("id")})
}

type sensorSampleRequest struct {
	Kind      string    `json:"kind" binding:"required"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordSensorSample buffers one motion-sensor reading
func (h *Handler) RecordSensorSample(c *gin.Context) {
	var req sensorSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	kind := sensors.Kind(req.Kind)
	switch kind {
	case sensors.Accelerometer, sensors.Gyroscope, sensors.Magnetometer:
	default:
		common.ErrorResponse(c, http.StatusBadRequest, "unknown sensor kind")
		return
	}

	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	h.monitor.Record(kind, sensors.Sample{X: req.X, Y: req.Y, Z: req.Z, Timestamp: req.Timestamp})

	common.SuccessResponse(c, gin.H{"buffered": h.monitor.Len(kind)})
}

// GetRecentMovement summarizes recent accelerometer activity
func (h *Handler) GetRecentMovement(c *gin.Context) {
	window := 0
	if q := c.Query("window"); q != "" {
		w, err := strconv.Atoi(q)
		if err != nil || w < 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid window")
			return
		}
		window = w
	}

	common.SuccessResponse(c, h.monitor.RecentMovement(window))
}

// CheckFraud evaluates one activity event and returns the verdict
func (h *Handler) CheckFraud(c *gin.Context) {
	var in fraud.CheckInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if in.AgentID == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "agent_id is required")
		return
	}

	result := h.fraud.CheckFraud(c.Request.Context(), in)
	common.SuccessResponse(c, result)
}

// GetFraudLogs returns the bounded audit log, oldest first
func (h *Handler) GetFraudLogs(c *gin.Context) {
	common.SuccessResponse(c, h.fraud.AuditLog())
}

type recordVisitRequest struct {
	AgentID         string         `json:"agent_id" binding:"required"`
	Location        location.Point `json:"location"`
	DurationMinutes float64        `json:"duration_minutes"`
}

// RecordVisit folds a completed visit into the agent's behavior baseline
func (h *Handler) RecordVisit(c *gin.Context) {
	var req recordVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.DurationMinutes < 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "duration_minutes must not be negative")
		return
	}

	pattern, err := h.behavior.RecordVisit(c.Request.Context(), req.AgentID, req.Location, req.DurationMinutes)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to record visit")
		return
	}

	common.SuccessResponse(c, pattern)
}

// GetBehaviorPattern returns the agent's baseline, or 404 when untrained
func (h *Handler) GetBehaviorPattern(c *gin.Context) {
	pattern, err := h.behavior.Load(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load behavior pattern")
		return
	}
	if pattern == nil {
		common.ErrorResponse(c, http.StatusNotFound, "no baseline for agent")
		return
	}

	common.SuccessResponse(c, pattern)
}

// SubmitDeviceFingerprint accepts the platform snapshot from the host and
// runs collection, which compares it against the persisted last-known device.
func (h *Handler) SubmitDeviceFingerprint(c *gin.Context) {
	var fp device.Fingerprint
	if err := c.ShouldBindJSON(&fp); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if fp.DeviceID == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "device_id is required")
		return
	}

	h.prober.Set(fp)
	collected, err := h.collector.Collect(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to collect fingerprint")
		return
	}

	common.CreatedResponse(c, gin.H{
		"fingerprint":    collected,
		"device_changed": device.IdentityChanged(collected, h.collector.Last()),
	})
}

// GetDeviceFingerprint returns the fingerprint collected at startup
func (h *Handler) GetDeviceFingerprint(c *gin.Context) {
	fp := h.collector.Current()
	if fp == nil {
		common.ErrorResponse(c, http.StatusNotFound, "fingerprint not collected")
		return
	}

	common.SuccessResponse(c, fp)
}

type optimizeRouteRequest struct {
	Start             location.Point   `json:"start"`
	Waypoints         []route.Waypoint `json:"waypoints" binding:"required"`
	FuelPricePerLiter float64          `json:"fuel_price_per_liter"`
}

// OptimizeRoute plans a visiting order for the supplied waypoints
func (h *Handler) OptimizeRoute(c *gin.Context) {
	var req optimizeRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.FuelPricePerLiter < 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "fuel_price_per_liter must not be negative")
		return
	}

	common.SuccessResponse(c, route.Optimize(req.Start, req.Waypoints, req.FuelPricePerLiter))
}

// HandleAlertSocket upgrades the connection and streams security alerts
func (h *Handler) HandleAlertSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := alerthub.NewClient(uuid.New().String(), conn, h.hub, h.log)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
