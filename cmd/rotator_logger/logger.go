// Command rotator_logger records the rotator's status stream in InfluxDB.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/w1xm/steprot/planner"
)

var (
	org    = flag.String("org", "w1xm", "InfluxDB organization")
	bucket = flag.String("bucket", "rotator.raw", "InfluxDB bucket")
)

func main() {
	flag.Parse()
	// Create client
	server := os.Getenv("INFLUX_SERVER")
	if server == "" {
		server = "http://localhost:9999"
	}
	client := influxdb2.NewClient(server, os.Getenv("INFLUX_TOKEN"))
	defer client.Close()
	// Get non-blocking write client
	writeApi := client.WriteApi(*org, *bucket)
	defer writeApi.Close()
	errorsCh := writeApi.Errors()
	go func() {
		for err := range errorsCh {
			log.Printf("write error: %v", err)
		}
	}()
	for {
		if err := logData(writeApi); err != nil {
			log.Print(err)
		}
		time.Sleep(1 * time.Second)
	}
}

func statusFields(status planner.Status) map[string]interface{} {
	fields := map[string]interface{}{
		"azimuth.current":   status.Azimuth.Current,
		"azimuth.target":    status.Azimuth.Target,
		"elevation.current": status.Elevation.Current,
		"elevation.target":  status.Elevation.Target,
		"step_test_count":   status.StepTestCount,
		"moving":            status.Moving,
	}
	if status.LastError != "" {
		fields["last_error"] = status.LastError
	}
	return fields
}

func logData(writeApi api.WriteApi) error {
	url := os.Getenv("ROTATOR_ADDRESS")
	if url == "" {
		url = "ws://localhost:8080/api/ws"
	}
	defer writeApi.Flush()
	var dialer websocket.Dialer
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("connected to %s", url)
	for {
		var status planner.Status
		if err := conn.ReadJSON(&status); err != nil {
			return err
		}
		p := influxdb2.NewPoint("rotator.status",
			nil,
			statusFields(status),
			time.Now(),
		)
		// write asynchronously
		writeApi.WritePoint(p)
	}
}
