// Command gen-obs seeds a database with synthetic device observations for
// exercising the fusion analyzers: a co-moving pair walking a shared route,
// a pair of stationary transmitters on matching ISM frequencies, and a
// handful of unrelated background devices.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	_ "modernc.org/sqlite"

	"github.com/armslength-data/sigint.report/internal/db"
	"github.com/armslength-data/sigint.report/internal/fusion"
)

const metersPerDegree = 111320.0

func main() {
	output := flag.String("db", "sigint_data.db", "database to seed")
	waypoints := flag.Int("n", 8, "waypoints per moving track")
	background := flag.Int("background", 4, "number of unrelated background devices")
	seed := flag.Int64("seed", 1, "PRNG seed")
	flag.Parse()

	database, err := db.NewDB(*output)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	rng := rand.New(rand.NewSource(*seed))
	start := time.Now().UTC().Add(-time.Duration(*waypoints) * 10 * time.Minute)
	total := 0

	// Co-moving pair: two devices tracing the same walk, a few meters apart.
	pair := make([]*fusion.Device, 2)
	for i := range pair {
		pair[i] = seedDevice(database, fmt.Sprintf("AA:BB:CC:00:00:%02X", i+1), "wifi", start)
	}
	for i := 0; i < *waypoints; i++ {
		at := start.Add(time.Duration(i) * 10 * time.Minute)
		lat := 40.7000 + float64(i)*250/metersPerDegree
		lon := -74.0000 + rng.Float64()*20/metersPerDegree
		for d, device := range pair {
			total += seedObservation(database, device.ID, at,
				geotag(lat+float64(d)*5/metersPerDegree, lon), rssi(-58-2*float64(d), rng), nil)
		}
	}

	// Stationary transmitters sharing two non-consumer frequencies.
	tx := make([]*fusion.Device, 2)
	for i := range tx {
		tx[i] = seedDevice(database, fmt.Sprintf("DD:EE:FF:00:00:%02X", i+1), "sdr", start)
	}
	for _, freq := range []float64{433.92e6, 868.30e6} {
		for i := 0; i < *waypoints; i++ {
			at := start.Add(time.Duration(i)*10*time.Minute + time.Duration(rng.Intn(120))*time.Second)
			for _, device := range tx {
				f := freq
				total += seedObservation(database, device.ID, at, nil, rssi(-70, rng), &f)
			}
		}
	}

	// Background devices seen at unrelated times and places.
	for b := 0; b < *background; b++ {
		device := seedDevice(database, fmt.Sprintf("11:22:33:00:00:%02X", b+1), "bluetooth", start)
		for i := 0; i < *waypoints; i++ {
			at := start.Add(time.Duration(rng.Intn(*waypoints*600)) * time.Second)
			lat := 40.7000 + (rng.Float64()-0.5)*5000/metersPerDegree
			lon := -74.0000 + (rng.Float64()-0.5)*5000/metersPerDegree
			total += seedObservation(database, device.ID, at, geotag(lat, lon), rssi(-80, rng), nil)
		}
	}

	log.Printf("✓ Seeded %s: %d devices, %d observations", *output, 2+2+*background, total)
}

func seedDevice(database *db.DB, mac, signalType string, seen time.Time) *fusion.Device {
	device := &fusion.Device{MACAddress: mac, SignalType: signalType}
	if err := database.UpsertDevice(device, seen); err != nil {
		log.Fatalf("failed to seed device %s: %v", mac, err)
	}
	return device
}

func seedObservation(database *db.DB, deviceID int64, at time.Time, loc *[2]float64, signal float64, freq *float64) int {
	obs := &fusion.Observation{
		DeviceID:       deviceID,
		Timestamp:      at,
		SignalStrength: &signal,
		Frequency:      freq,
	}
	if loc != nil {
		obs.Latitude = &loc[0]
		obs.Longitude = &loc[1]
	}
	if err := database.InsertObservation(obs); err != nil {
		log.Fatalf("failed to seed observation: %v", err)
	}
	return 1
}

func geotag(lat, lon float64) *[2]float64 {
	return &[2]float64{lat, lon}
}

func rssi(base float64, rng *rand.Rand) float64 {
	return base + rng.Float64()*4 - 2
}
