// Command touch-sensor polls two capacitive touch pads and a connection-detect
// line and publishes debounced touch transitions to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/touch-sensor/internal/clock"
	"github.com/sweeney/touch-sensor/internal/config"
	"github.com/sweeney/touch-sensor/internal/diag"
	"github.com/sweeney/touch-sensor/internal/gpio"
	"github.com/sweeney/touch-sensor/internal/mqtt"
	"github.com/sweeney/touch-sensor/internal/status"
	"github.com/sweeney/touch-sensor/internal/touch"
	"github.com/sweeney/touch-sensor/internal/web"
)

func main() {
	cfg, printState, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags loads the config file named by -config and applies any flags
// given explicitly on top of it.
func parseFlags(args []string) (*config.Config, bool, error) {
	def := config.Default()

	fs := flag.NewFlagSet("touch-sensor", flag.ContinueOnError)
	configPath := fs.String("config", "/etc/touch-sensor.yaml", "YAML config file (defaults are used if missing)")
	poll := fs.Duration("poll", def.Poll, "Sensor polling interval")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address")
	pinLeft := fs.Int("pin-left", def.Pins.Left, "BCM pin number for the left touch pad")
	pinRight := fs.Int("pin-right", def.Pins.Right, "BCM pin number for the right touch pad")
	pinSense := fs.Int("pin-sense", def.Pins.Sense, "BCM pin number for connection detect input")
	pinDrive := fs.Int("pin-drive", def.Pins.Drive, "BCM pin number for connection detect output")
	httpAddr := fs.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	diagSerial := fs.String("diag-serial", def.Diagnostics.Serial, `Serial port for state dumps ("-" for stdout, empty to disable)`)
	diagEvery := fs.Int("diag-every", def.Diagnostics.Every, "Polling cycles between state dumps (0 to disable)")
	diagFormat := fs.String("diag-format", def.Diagnostics.Format, `State dump contents: "state" or "readings"`)
	printState := fs.Bool("print-state", false, "Calibrate, print one reading and exit")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, false, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Poll = *poll
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "broker":
			cfg.MQTT.Broker = *broker
		case "pin-left":
			cfg.Pins.Left = *pinLeft
		case "pin-right":
			cfg.Pins.Right = *pinRight
		case "pin-sense":
			cfg.Pins.Sense = *pinSense
		case "pin-drive":
			cfg.Pins.Drive = *pinDrive
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "diag-serial":
			cfg.Diagnostics.Serial = *diagSerial
		case "diag-every":
			cfg.Diagnostics.Every = *diagEvery
		case "diag-format":
			cfg.Diagnostics.Format = *diagFormat
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *printState, nil
}

func run(cfg *config.Config, printState bool) error {
	pins := cfg.TouchPins()

	// Initialize GPIO
	hw, err := gpio.NewRealHardware(cfg.Chip, pins.Left, pins.Right, pins.Sense, pins.Drive)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()

	log.Printf("calibrating: left=%d right=%d sense=%d drive=%d", pins.Left, pins.Right, pins.Sense, pins.Drive)
	sensor := touch.New(hw, clock.BusyWait{Now: time.Now}, pins)
	calibratedAt := time.Now()
	left, right := sensor.Baselines()
	log.Printf("calibrated: left=%d right=%d", left, right)

	// Print state mode
	if printState {
		sensor.Update()
		return sensor.WriteState(os.Stdout)
	}

	var dump *diag.Writer
	if cfg.Diagnostics.Serial != "" && cfg.Diagnostics.Every > 0 {
		format, err := diag.ParseFormat(cfg.Diagnostics.Format)
		if err != nil {
			return fmt.Errorf("init diagnostics: %w", err)
		}
		sink, err := diag.Open(cfg.Diagnostics.Serial, cfg.Diagnostics.Baud)
		if err != nil {
			return fmt.Errorf("init diagnostics: %w", err)
		}
		defer sink.Close()
		dump = diag.NewWriter(sink, cfg.Diagnostics.Every, format)
		log.Printf("diagnostics: %s %s every %d cycles", cfg.Diagnostics.Serial, format, cfg.Diagnostics.Every)
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.MQTTOptions())
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
		Pins:        pins,
	})
	tracker.MarkCalibrated(calibratedAt, sensor.Reading())
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	calibrate := make(chan struct{}, 1)
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, calibrate)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: poll=%v broker=%s heartbeat=%v", cfg.Poll, cfg.MQTT.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	return runLoop(sensor, publisher, publisher, tracker, dump, cfg.Heartbeat, time.Now, ticker.C, sigCh, calibrate)
}

// runLoop owns the sensor: every Update and Calibrate happens on this
// goroutine. SIGHUP or a request on calibrate re-measures the baselines;
// SIGINT or SIGTERM publishes SHUTDOWN and returns.
func runLoop(sensor *touch.Sensor, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, dump *diag.Writer, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, calibrate <-chan struct{}) error {
	refresh := func() {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	recalibrate := func(reason string) {
		sensor.Calibrate()
		at := now()
		tracker.MarkCalibrated(at, sensor.Reading())
		left, right := sensor.Baselines()
		log.Printf("calibrated (%s): left=%d right=%d", reason, left, right)

		refresh()
		snap := tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp:  at,
			Event:      "CALIBRATED",
			Reason:     reason,
			RawPayload: status.FormatStatusEvent(snap, "CALIBRATED", reason),
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish calibration event: %v", err)
		}
	}

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			if s == syscall.SIGHUP {
				recalibrate(name)
				continue
			}

			log.Printf("received %v, shutting down", s)
			refresh()
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     name,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", name),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-calibrate:
			recalibrate("HTTP")

		case <-tick:
			t := now()
			from := sensor.State()

			if sensor.Update() {
				tr := touch.Transition{
					Timestamp: t,
					From:      from,
					To:        sensor.State(),
					Reading:   sensor.Reading(),
				}
				log.Printf("event: %s -> %s (left=%d/%d right=%d/%d connected=%v)",
					tr.From, tr.To, tr.Reading.LeftRaw, tr.Reading.LeftBaseline,
					tr.Reading.RightRaw, tr.Reading.RightBaseline, tr.Reading.Connected)
				if err := publisher.Publish(tr); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
				tracker.RecordTransition(tr.To, t)
			}

			// Update status tracker for HTTP consumers
			tracker.Update(sensor.Reading())
			refresh()

			if err := dump.Tick(sensor); err != nil {
				log.Printf("diagnostics error: %v", err)
			}

			if tracker.HeartbeatDue(t, heartbeat) {
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v state=%s transitions=%d",
					snap.Uptime().Truncate(time.Second), snap.Reading.State, snap.Counts.Total())

				hbEvent := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGHUP:
		return "SIGHUP"
	default:
		return "UNKNOWN"
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
