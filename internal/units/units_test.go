package units

import "testing"

func TestIsConsumerBand(t *testing.T) {
	tests := []struct {
		name string
		hz   float64
		want bool
	}{
		{"wifi channel 6", 2437 * MHz, true},
		{"wifi channel 44", 5220 * MHz, true},
		{"lora 915", 915 * MHz, true},
		{"fm broadcast", 101.1 * MHz, false},
		{"433 remote", 433.92 * MHz, false},
		{"air band", 121.5 * MHz, false},
		{"6ghz", 6100 * MHz, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConsumerBand(tt.hz); got != tt.want {
				t.Errorf("IsConsumerBand(%v) = %v, want %v", tt.hz, got, tt.want)
			}
		})
	}
}

func TestBandName(t *testing.T) {
	if got := BandName(2437 * MHz); got != "2.4GHz ISM" {
		t.Errorf("BandName(2437MHz) = %q", got)
	}
	if got := BandName(433.92 * MHz); got != "other" {
		t.Errorf("BandName(433.92MHz) = %q", got)
	}
}

func TestFormatFrequency(t *testing.T) {
	tests := []struct {
		hz   float64
		want string
	}{
		{2437 * MHz, "2.437 GHz"},
		{915 * MHz, "915.0 MHz"},
		{433.5 * KHz, "433.5 kHz"},
		{250, "250 Hz"},
	}

	for _, tt := range tests {
		if got := FormatFrequency(tt.hz); got != tt.want {
			t.Errorf("FormatFrequency(%v) = %q, want %q", tt.hz, got, tt.want)
		}
	}
}

func TestChannelToFrequency(t *testing.T) {
	tests := []struct {
		channel int
		wantHz  float64
	}{
		{1, 2412 * MHz},
		{6, 2437 * MHz},
		{11, 2462 * MHz},
		{14, 2484 * MHz},
		{36, 5180 * MHz},
		{149, 5745 * MHz},
		{0, 0},
		{200, 0},
	}

	for _, tt := range tests {
		if got := ChannelToFrequency(tt.channel); got != tt.wantHz {
			t.Errorf("ChannelToFrequency(%d) = %v, want %v", tt.channel, got, tt.wantHz)
		}
	}
}

func TestSignalLabel(t *testing.T) {
	tests := []struct {
		dbm  float64
		want string
	}{
		{-40, "strong"},
		{-60, "moderate"},
		{-80, "weak"},
		{-95, "trace"},
	}

	for _, tt := range tests {
		if got := SignalLabel(tt.dbm); got != tt.want {
			t.Errorf("SignalLabel(%v) = %q, want %q", tt.dbm, got, tt.want)
		}
	}
}
