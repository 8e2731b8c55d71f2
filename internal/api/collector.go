package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/armslength-data/sigint.report/internal/fusion"
	"github.com/armslength-data/sigint.report/internal/httputil"
	"github.com/armslength-data/sigint.report/internal/monitoring"
	"github.com/armslength-data/sigint.report/internal/units"
)

// maxPushBody caps a single collector push at 4MB.
const maxPushBody = 4 << 20

// collectorDevice is the wire shape one collector sighting arrives in. Field
// names follow the collector clients; only macAddress is mandatory.
type collectorDevice struct {
	MACAddress     string   `json:"macAddress"`
	Name           string   `json:"name"`
	SignalType     string   `json:"signalType"`
	DeviceType     string   `json:"deviceType"`
	Manufacturer   string   `json:"manufacturer"`
	SignalStrength *float64 `json:"signalStrength"`
	Frequency      *float64 `json:"frequency"`
	Channel        *int     `json:"channel"`
	Protocol       *string  `json:"protocol"`
	Encryption     *string  `json:"encryption"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Heading        *float64 `json:"heading"`
	Speed          *float64 `json:"speed"`
	Altitude       *float64 `json:"altitude"`
}

type collectorPush struct {
	Devices []collectorDevice `json:"devices"`
}

type collectorPushResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// collectorPush ingests one batch of sightings from a field collector.
// Devices are upserted by MAC; every entry appends an observation.
func (s *Server) collectorPush(w http.ResponseWriter, r *http.Request) {
	if s.collectorKey == "" {
		httputil.Unauthorized(w, "collector ingest is disabled")
		return
	}
	auth := r.Header.Get("Authorization")
	if auth != "Bearer "+s.collectorKey {
		httputil.Unauthorized(w, "invalid collector key")
		return
	}

	var push collectorPush
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBody)).Decode(&push); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if len(push.Devices) == 0 {
		httputil.BadRequest(w, "payload has no devices")
		return
	}

	now := time.Now().UTC()
	resp := collectorPushResponse{}
	for i := range push.Devices {
		if err := s.ingestDevice(&push.Devices[i], now); err != nil {
			monitoring.Logf("collector push: skipping device %q: %v", push.Devices[i].MACAddress, err)
			resp.Rejected++
			continue
		}
		resp.Accepted++
	}

	httputil.WriteJSONOK(w, resp)
}

func (s *Server) ingestDevice(cd *collectorDevice, at time.Time) error {
	mac := strings.ToUpper(strings.TrimSpace(cd.MACAddress))
	if mac == "" {
		return fmt.Errorf("missing macAddress")
	}

	manufacturer := cd.Manufacturer
	if manufacturer == "" || manufacturer == "Unknown" {
		manufacturer = LookupManufacturer(mac)
	}

	device := &fusion.Device{
		MACAddress:   mac,
		Name:         cd.Name,
		SignalType:   cd.SignalType,
		DeviceType:   cd.DeviceType,
		Manufacturer: manufacturer,
	}
	if cd.Protocol != nil {
		device.Protocol = *cd.Protocol
	}
	if cd.Encryption != nil {
		device.Encryption = *cd.Encryption
	}
	if err := s.db.UpsertDevice(device, at); err != nil {
		return err
	}

	obs := &fusion.Observation{
		DeviceID:       device.ID,
		Timestamp:      at,
		Latitude:       cd.Latitude,
		Longitude:      cd.Longitude,
		SignalStrength: cd.SignalStrength,
		Frequency:      cd.Frequency,
		Channel:        cd.Channel,
		Protocol:       cd.Protocol,
		Encryption:     cd.Encryption,
		Heading:        cd.Heading,
		Speed:          cd.Speed,
		Altitude:       cd.Altitude,
	}

	// Collectors that only know the WiFi channel still get a frequency.
	if obs.Frequency == nil && cd.Channel != nil {
		if hz := units.ChannelToFrequency(*cd.Channel); hz > 0 {
			obs.Frequency = &hz
		}
	}

	return s.db.InsertObservation(obs)
}
