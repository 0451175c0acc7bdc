// Package handlers provides HTTP request handlers for the adherence API endpoints.
// It implements the HTTPHandler interface with dependency injection and covers the
// review overview, per-medication timelines, manual dispensing corrections and
// package-size overrides, with proper input validation and error handling.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/adherence-api/adherence"
	"github.com/giygas/adherence-api/adherence/entities"
	"github.com/giygas/adherence-api/health"
	"github.com/giygas/adherence-api/interfaces"
	"github.com/giygas/adherence-api/logging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateParamLayout = "2006-01-02"

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.DataValidator
	rebuilder     interfaces.Rebuilder
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.DataValidator, rebuilder interfaces.Rebuilder, healthChecker interfaces.HealthChecker) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		rebuilder:     rebuilder,
		healthChecker: healthChecker,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *HTTPHandlerImpl) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// This is a placeholder - the actual routing is handled by chi
	http.Error(w, "Not implemented", http.StatusNotImplemented)
}

// HealthResponseImpl defines the structure for consistent JSON ordering
type HealthResponseImpl struct {
	Status        string                 `json:"status"`
	LastUpdate    string                 `json:"last_update"`
	DataAgeHours  float64                `json:"data_age_hours"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	Data          map[string]interface{} `json:"data"`
	System        map[string]interface{} `json:"system"`
}

// medicationSummary is the list form of one reviewed medication
type medicationSummary struct {
	ID              string                    `json:"id"`
	Name            string                    `json:"name"`
	Cnk             string                    `json:"cnk,omitempty"`
	Match           entities.MatchKind        `json:"match"`
	UnitsPerPackage decimal.Decimal           `json:"units_per_package"`
	HasTimeline     bool                      `json:"has_timeline"`
	Reason          entities.NoTimelineReason `json:"reason,omitempty"`
}

// reviewResponse is the full review overview: the visible window plus every
// timeline clipped to it, sharing one chart ceiling
type reviewResponse struct {
	Window      adherence.ViewWindow `json:"window"`
	ChartScale  int64                `json:"chart_scale"`
	Degraded    bool                 `json:"degraded"`
	Medications []medicationSummary  `json:"medications"`
	Timelines   []entities.Timeline  `json:"timelines"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]interface{}{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// parseWindowOptions reads the from/to/zoom/pan query parameters.
// Absent parameters leave the full window; malformed or out-of-range
// values are a client error. Zoom must be in (0, 1], pan in [0, 100].
func parseWindowOptions(r *http.Request) (adherence.WindowOptions, error) {
	opts := adherence.WindowOptions{Zoom: 1, Pan: 0}
	query := r.URL.Query()

	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(dateParamLayout, raw)
		if err != nil {
			return opts, fmt.Errorf("invalid from date: %s", raw)
		}
		opts.From = &from
	}

	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(dateParamLayout, raw)
		if err != nil {
			return opts, fmt.Errorf("invalid to date: %s", raw)
		}
		opts.To = &to
	}

	if raw := query.Get("zoom"); raw != "" {
		zoom, err := strconv.ParseFloat(raw, 64)
		if err != nil || zoom <= 0 || zoom > 1 {
			return opts, fmt.Errorf("invalid zoom value: %s", raw)
		}
		opts.Zoom = zoom
	}

	if raw := query.Get("pan"); raw != "" {
		pan, err := strconv.ParseFloat(raw, 64)
		if err != nil || pan < 0 || pan > 100 {
			return opts, fmt.Errorf("invalid pan value: %s", raw)
		}
		opts.Pan = pan
	}

	return opts, nil
}

// clipTimeline returns a copy with only the points inside the window
func clipTimeline(timeline entities.Timeline, window adherence.ViewWindow) entities.Timeline {
	if !timeline.HasData() {
		return timeline
	}

	points := make([]entities.StockPoint, 0, len(timeline.Points))
	for _, point := range timeline.Points {
		if point.Date.Before(window.Start) || point.Date.After(window.End) {
			continue
		}
		points = append(points, point)
	}
	timeline.Points = points
	return timeline
}

// ServeReview returns the review overview: visible window, shared chart
// scale and every medication's timeline clipped to the window
func (h *HTTPHandlerImpl) ServeReview(w http.ResponseWriter, r *http.Request) {
	opts, err := parseWindowOptions(r)
	if err != nil {
		logging.Warn("Unusual user input", "query", r.URL.RawQuery)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := adherence.ComputeViewWindow(h.dataStore.GetGroups(), time.Now(), opts)

	timelines := h.dataStore.GetTimelines()
	clipped := make([]entities.Timeline, 0, len(timelines))
	for _, timeline := range timelines {
		clipped = append(clipped, clipTimeline(timeline, window))
	}

	response := reviewResponse{
		Window:      window,
		ChartScale:  h.dataStore.GetChartScale(),
		Degraded:    h.dataStore.IsDegraded(),
		Medications: h.medicationSummaries(),
		Timelines:   clipped,
	}

	h.RespondWithJSON(w, http.StatusOK, response)
}

// ServeMedications returns the reviewed medications with their match state
func (h *HTTPHandlerImpl) ServeMedications(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, h.medicationSummaries())
}

func (h *HTTPHandlerImpl) medicationSummaries() []medicationSummary {
	matches := h.dataStore.GetMatches()
	timelinesMap := h.dataStore.GetTimelinesMap()

	summaries := make([]medicationSummary, 0, len(matches))
	for _, match := range matches {
		summary := medicationSummary{
			ID:              match.Medication.ID,
			Name:            match.Medication.Name,
			Cnk:             match.Medication.Cnk,
			Match:           match.Kind,
			UnitsPerPackage: match.UnitsPerPackage,
		}
		if timeline, ok := timelinesMap[match.Medication.ID]; ok {
			summary.HasTimeline = timeline.HasData()
			summary.Reason = timeline.Reason
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// ServeMedicationTimeline returns the full simulated timeline for one medication
func (h *HTTPHandlerImpl) ServeMedicationTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		h.RespondWithError(w, http.StatusBadRequest, "Missing medication ID")
		return
	}

	timeline, exists := h.dataStore.GetTimelinesMap()[id]
	if !exists {
		h.RespondWithError(w, http.StatusNotFound, "Medication not found")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, timeline)
}

// manualDispensingRequest is the body of POST /review/dispensings
type manualDispensingRequest struct {
	Cnk         string `json:"cnk"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Amount      int    `json:"amount"`
}

// AddManualDispensing registers a user-entered dispensing moment and rebuilds
func (h *HTTPHandlerImpl) AddManualDispensing(w http.ResponseWriter, r *http.Request) {
	var req manualDispensingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cnk, err := h.validator.ValidateCNK(req.Cnk)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validator.ValidateAmount(req.Amount); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Description != "" {
		if err := h.validator.ValidateInput(req.Description); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	date, err := time.Parse(dateParamLayout, req.Date)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid date: %s", req.Date))
		return
	}

	manual := entities.ManualDispensing{
		ID:          uuid.NewString(),
		Cnk:         cnk,
		Description: req.Description,
		Date:        date,
		Amount:      req.Amount,
	}
	h.dataStore.AddManualDispensing(manual)

	if err := h.rebuilder.Rebuild(); err != nil {
		logging.Error("Rebuild after manual dispensing failed", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to rebuild review data")
		return
	}

	h.RespondWithJSON(w, http.StatusCreated, manual)
}

// DeleteManualDispensing removes a manual moment by ID and rebuilds
func (h *HTTPHandlerImpl) DeleteManualDispensing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		h.RespondWithError(w, http.StatusBadRequest, "Missing dispensing ID")
		return
	}

	if !h.dataStore.RemoveManualDispensing(id) {
		h.RespondWithError(w, http.StatusNotFound, "Manual dispensing not found")
		return
	}

	if err := h.rebuilder.Rebuild(); err != nil {
		logging.Error("Rebuild after manual dispensing removal failed", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to rebuild review data")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// packageSizeRequest is the body of PUT /review/medications/{id}/package-size
type packageSizeRequest struct {
	UnitsPerPackage decimal.Decimal `json:"units_per_package"`
}

// SetPackageSize records a corrected units-per-package value and rebuilds
func (h *HTTPHandlerImpl) SetPackageSize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		h.RespondWithError(w, http.StatusBadRequest, "Missing medication ID")
		return
	}

	var req packageSizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Zero clears the value back to "not specified"
	if req.UnitsPerPackage.IsNegative() {
		h.RespondWithError(w, http.StatusBadRequest, "units_per_package must not be negative")
		return
	}

	if !h.medicationExists(id) {
		h.RespondWithError(w, http.StatusNotFound, "Medication not found")
		return
	}

	h.dataStore.SetPackageSizeOverride(id, req.UnitsPerPackage)

	if err := h.rebuilder.Rebuild(); err != nil {
		logging.Error("Rebuild after package size override failed", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to rebuild review data")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":                id,
		"units_per_package": req.UnitsPerPackage,
	})
}

func (h *HTTPHandlerImpl) medicationExists(id string) bool {
	for _, med := range h.dataStore.GetMedications() {
		if med.ID == id {
			return true
		}
	}
	return false
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// Get memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.dataStore.GetServerStartTime())

	medications := h.dataStore.GetMedications()
	matches := h.dataStore.GetMatches()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()
	dataAge := time.Since(lastUpdate)

	matched := 0
	for _, match := range matches {
		if match.Kind != entities.MatchNone {
			matched++
		}
	}

	// Determine health status based on data availability and age
	var healthStatus string
	var httpStatus int
	switch {
	case len(medications) == 0:
		healthStatus = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case h.dataStore.IsDegraded():
		healthStatus = "degraded"
		httpStatus = http.StatusOK
	case dataAge > 24*time.Hour:
		healthStatus = "degraded"
		httpStatus = http.StatusOK
	default:
		healthStatus = "healthy"
		httpStatus = http.StatusOK
	}

	response := HealthResponseImpl{
		Status:        healthStatus,
		LastUpdate:    lastUpdate.Format(time.RFC3339),
		DataAgeHours:  dataAge.Hours(),
		UptimeSeconds: uptime.Seconds(),
		Data: map[string]interface{}{
			"api_version":         "1.0",
			"medications":         len(medications),
			"matched_medications": matched,
			"manual_dispensings":  len(h.dataStore.GetManualDispensings()),
			"resolver_degraded":   h.dataStore.IsDegraded(),
			"is_updating":         isUpdating,
			"uptime_human":        health.FormatUptime(uptime),
			"next_update":         h.healthChecker.CalculateNextUpdate().Format(time.RFC3339),
		},
		System: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}
