package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/armslength-data/sigint.report/internal/db"
	"github.com/armslength-data/sigint.report/internal/fusion"
	"github.com/armslength-data/sigint.report/internal/httputil"
	"github.com/armslength-data/sigint.report/internal/version"
)

func (s *Server) deviceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "invalid device id")
		return 0, false
	}
	return id, true
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.db.ListDevices()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list devices: %v", err))
		return
	}
	if devices == nil {
		devices = []fusion.Device{}
	}
	httputil.WriteJSONOK(w, devices)
}

func (s *Server) showDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}
	device, err := s.db.GetDevice(id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "device not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load device: %v", err))
		return
	}
	httputil.WriteJSONOK(w, device)
}

func (s *Server) listDeviceObservations(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	observations, err := s.db.ListObservationsByDevice(id, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list observations: %v", err))
		return
	}
	if observations == nil {
		observations = []fusion.Observation{}
	}
	httputil.WriteJSONOK(w, observations)
}

// showDeviceFix triangulates a device's position from its full observation
// history. 404 when there is nothing usable to fix on.
func (s *Server) showDeviceFix(w http.ResponseWriter, r *http.Request) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}
	if _, err := s.db.GetDevice(id); errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "device not found")
		return
	} else if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load device: %v", err))
		return
	}

	observations, err := s.db.ListObservationsByDevice(id, 0)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list observations: %v", err))
		return
	}

	fix := s.engine.TriangulateDevice(observations)
	if fix == nil {
		httputil.NotFound(w, "no geotagged signal readings to fix on")
		return
	}
	httputil.WriteJSONOK(w, fix)
}

func (s *Server) setDeviceTracked(w http.ResponseWriter, r *http.Request) {
	s.setDeviceFlag(w, r, s.db.SetDeviceTracked)
}

func (s *Server) setDeviceFlagged(w http.ResponseWriter, r *http.Request) {
	s.setDeviceFlag(w, r, s.db.SetDeviceFlagged)
}

// setDeviceFlag toggles a device bit and returns the updated device.
func (s *Server) setDeviceFlag(w http.ResponseWriter, r *http.Request, set func(int64, bool) error) {
	id, ok := s.deviceID(w, r)
	if !ok {
		return
	}

	var body struct {
		Value *bool `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == nil {
		httputil.BadRequest(w, "payload must be {\"value\": true|false}")
		return
	}

	if err := set(id, *body.Value); errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "device not found")
		return
	} else if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to update device: %v", err))
		return
	}

	device, err := s.db.GetDevice(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load device: %v", err))
		return
	}
	httputil.WriteJSONOK(w, device)
}

func (s *Server) listAssociations(w http.ResponseWriter, r *http.Request) {
	var associations []fusion.DeviceAssociation
	var err error
	if d := r.URL.Query().Get("device_id"); d != "" {
		id, parseErr := strconv.ParseInt(d, 10, 64)
		if parseErr != nil || id <= 0 {
			httputil.BadRequest(w, "Invalid 'device_id' parameter")
			return
		}
		associations, err = s.db.AssociationsForDevice(id)
	} else {
		associations, err = s.db.ListAssociations()
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list associations: %v", err))
		return
	}
	if associations == nil {
		associations = []fusion.DeviceAssociation{}
	}
	httputil.WriteJSONOK(w, associations)
}

// runAnalysis executes one fusion batch synchronously and returns the new
// associations it persisted. The request context bounds the run, so an
// impatient client cancelling mid-batch still leaves consistent state.
func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request) {
	worker := db.NewFusionWorker(s.db, s.engine, 0)
	run, err := worker.RunOnce(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) showLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.db.LatestAnalysisRun()
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "no analysis runs yet")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load run: %v", err))
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"version": version.Version,
		"tuning":  s.tuning,
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("database unavailable: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "ok", "version": version.Version})
}
