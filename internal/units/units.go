// Package units provides shared constants and helpers for the RF quantities
// stored by the collection pipeline: frequencies in Hz and signal strength in dBm.
package units

import "fmt"

// Frequency constants in Hz.
const (
	KHz = 1e3
	MHz = 1e6
	GHz = 1e9
)

// Consumer ISM / unlicensed band edges in Hz. Shared frequencies inside these
// bands are weak association evidence because nearly every consumer device
// transmits there.
const (
	ism900StartHz = 902 * MHz
	ism900EndHz   = 928 * MHz

	ism24StartHz = 2400 * MHz
	ism24EndHz   = 2500 * MHz

	unii5StartHz = 5150 * MHz
	unii5EndHz   = 5875 * MHz
)

// IsConsumerBand reports whether the frequency falls inside one of the
// well-known consumer bands (900 MHz ISM, 2.4 GHz ISM, 5 GHz U-NII).
func IsConsumerBand(hz float64) bool {
	switch {
	case hz >= ism900StartHz && hz <= ism900EndHz:
		return true
	case hz >= ism24StartHz && hz <= ism24EndHz:
		return true
	case hz >= unii5StartHz && hz <= unii5EndHz:
		return true
	}
	return false
}

// BandName returns a human-readable name for the band containing hz,
// or "other" when the frequency is outside the known consumer bands.
func BandName(hz float64) string {
	switch {
	case hz >= ism900StartHz && hz <= ism900EndHz:
		return "900MHz ISM"
	case hz >= ism24StartHz && hz <= ism24EndHz:
		return "2.4GHz ISM"
	case hz >= unii5StartHz && hz <= unii5EndHz:
		return "5GHz U-NII"
	}
	return "other"
}

// FormatFrequency renders a frequency in Hz with an appropriate unit suffix.
func FormatFrequency(hz float64) string {
	switch {
	case hz >= GHz:
		return fmt.Sprintf("%.3f GHz", hz/GHz)
	case hz >= MHz:
		return fmt.Sprintf("%.1f MHz", hz/MHz)
	case hz >= KHz:
		return fmt.Sprintf("%.1f kHz", hz/KHz)
	}
	return fmt.Sprintf("%.0f Hz", hz)
}

// ChannelToFrequency converts a WiFi channel number to its centre frequency
// in Hz. Returns 0 for unknown channels; the collectors send channel 0 when
// the adapter did not report one.
func ChannelToFrequency(channel int) float64 {
	switch {
	case channel >= 1 && channel <= 13:
		return (2407 + 5*float64(channel)) * MHz
	case channel == 14:
		return 2484 * MHz
	case channel >= 32 && channel <= 177:
		return (5000 + 5*float64(channel)) * MHz
	}
	return 0
}

// SignalLabel maps an RSSI reading in dBm to a coarse strength label.
func SignalLabel(dbm float64) string {
	switch {
	case dbm >= -50:
		return "strong"
	case dbm >= -70:
		return "moderate"
	case dbm >= -85:
		return "weak"
	}
	return "trace"
}
