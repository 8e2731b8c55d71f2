package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/armslength-data/sigint.report/internal/httputil"
	"github.com/armslength-data/sigint.report/internal/units"
)

// chartRSSI renders a scatter (HTML) of a device's signal strength over
// time. Debugging-only endpoint to eyeball RSSI traces without a UI.
// Query params:
//   - device_id (required)
//   - max_points (optional; default 2000)
func (s *Server) chartRSSI(w http.ResponseWriter, r *http.Request) {
	deviceID, err := strconv.ParseInt(r.URL.Query().Get("device_id"), 10, 64)
	if err != nil || deviceID <= 0 {
		httputil.BadRequest(w, "Invalid 'device_id' parameter")
		return
	}

	maxPoints := 2000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 10 && v <= 50000 {
			maxPoints = v
		}
	}

	observations, err := s.db.ListObservationsByDevice(deviceID, maxPoints)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list observations: %v", err))
		return
	}

	data := make([]opts.ScatterData, 0, len(observations))
	for _, obs := range observations {
		if obs.SignalStrength == nil {
			continue
		}
		data = append(data, opts.ScatterData{
			Value: []interface{}{
				obs.Timestamp.Format("2006-01-02 15:04:05"),
				*obs.SignalStrength,
				units.SignalLabel(*obs.SignalStrength),
			},
		})
	}
	if len(data) == 0 {
		httputil.NotFound(w, "no signal readings for device")
		return
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Device RSSI", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Device %d RSSI", deviceID),
			Subtitle: fmt.Sprintf("points=%d", len(data)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "dBm"}),
	)
	scatter.AddSeries("rssi", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	s.renderChart(w, scatter)
}

// chartAssociations renders a bar chart of association confidences grouped
// by type, highest first.
func (s *Server) chartAssociations(w http.ResponseWriter, r *http.Request) {
	associations, err := s.db.ListAssociations()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list associations: %v", err))
		return
	}
	if len(associations) == 0 {
		httputil.NotFound(w, "no associations yet")
		return
	}

	labels := make([]string, 0, len(associations))
	values := make([]opts.BarData, 0, len(associations))
	for _, assoc := range associations {
		labels = append(labels, fmt.Sprintf("%d-%d %s", assoc.DeviceID1, assoc.DeviceID2, assoc.Type))
		values = append(values, opts.BarData{Value: assoc.Confidence})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Associations", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Device Associations",
			Subtitle: fmt.Sprintf("count=%d", len(associations)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "confidence", Max: 100}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("confidence", values)

	s.renderChart(w, bar)
}

type chartRenderer interface {
	Render(w io.Writer) error
}

func (s *Server) renderChart(w http.ResponseWriter, chart chartRenderer) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
