// Command uvc-timer runs a UV-C disinfection chamber: it reads the door and
// button over GPIO, drives the lamp relay and status LED, and publishes state
// changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/uvc-timer/internal/button"
	"github.com/sweeney/uvc-timer/internal/config"
	"github.com/sweeney/uvc-timer/internal/gpio"
	"github.com/sweeney/uvc-timer/internal/logic"
	"github.com/sweeney/uvc-timer/internal/metrics"
	"github.com/sweeney/uvc-timer/internal/mqtt"
	"github.com/sweeney/uvc-timer/internal/status"
	"github.com/sweeney/uvc-timer/internal/web"
)

func main() {
	cfg, printState, err := parseConfig(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		log.Fatalf("config: %v", err)
	}

	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseConfig builds the daemon config from defaults, an optional YAML file
// and flags. Only flags passed explicitly override the file.
func parseConfig(args []string) (config.Config, bool, error) {
	def := config.Default()
	fs := flag.NewFlagSet("uvc-timer", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML config file")
	profile := fs.String("profile", def.Profile, "Timing profile (normal, debug)")
	poll := fs.Duration("poll", time.Duration(def.Poll), "GPIO polling interval")
	debounce := fs.Duration("debounce", 0, "Button debounce (0 for the profile default)")
	broker := fs.String("broker", def.Broker, "MQTT broker address")
	heartbeat := fs.Duration("heartbeat", time.Duration(def.Heartbeat), "Heartbeat interval (0 to disable)")
	pinDoor := fs.Int("pin-door", def.Pins.Door, "BCM pin number for the door sensor")
	pinButton := fs.Int("pin-button", def.Pins.Button, "BCM pin number for the push button")
	pinRelay := fs.Int("pin-relay", def.Pins.Relay, "BCM pin number for the lamp relay")
	pinLED := fs.Int("pin-led", def.Pins.LED, "BCM pin number for the status LED")
	httpAddr := fs.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	envFile := fs.String("env-file", def.EnvFile, "pi-helper env file with network state")
	printState := fs.Bool("print-state", false, "Print current inputs and exit")

	if err := fs.Parse(args); err != nil {
		return def, false, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return def, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "profile":
			cfg.Profile = *profile
		case "poll":
			cfg.Poll = config.Duration(*poll)
		case "debounce":
			cfg.Debounce = config.Duration(*debounce)
		case "broker":
			cfg.Broker = *broker
		case "heartbeat":
			cfg.Heartbeat = config.Duration(*heartbeat)
		case "pin-door":
			cfg.Pins.Door = *pinDoor
		case "pin-button":
			cfg.Pins.Button = *pinButton
		case "pin-relay":
			cfg.Pins.Relay = *pinRelay
		case "pin-led":
			cfg.Pins.LED = *pinLED
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "env-file":
			cfg.EnvFile = *envFile
		}
	})

	cfg, err := cfg.Resolve()
	if err != nil {
		return cfg, false, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, *printState, nil
}

func run(cfg config.Config, printState bool) error {
	// Initialize GPIO. The relay comes up asserted (lamp off).
	hw, err := gpio.NewRealIO(cfg.GPIOPins(), time.Duration(cfg.Debounce))
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()

	// Print state mode
	if printState {
		s, err := hw.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("Door: %s, Button: %s\n", doorString(s.DoorOpen), buttonString(s.ButtonPressed))
		return nil
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.Broker)
	defer publisher.Close()

	recorder := metrics.NewRecorder(nil)
	recorder.WatchBuffer(publisher.Buffered, publisher.Dropped)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(cfg.EnvFile); net != nil {
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
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, recorder.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: profile=%s uvc=%v idle=%v poll=%v debounce=%v broker=%s heartbeat=%v",
		cfg.Profile, time.Duration(cfg.UVCTime), time.Duration(cfg.IdleTime), time.Duration(cfg.Poll),
		time.Duration(cfg.Debounce), cfg.Broker, time.Duration(cfg.Heartbeat))

	ticker := time.NewTicker(time.Duration(cfg.Poll))
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(hw, hw, publisher, publisher, tracker, recorder, loopOptions{
		Timing:    cfg.Timing(),
		Policy:    cfg.RelayPolicy(),
		ClickTime: time.Duration(cfg.ClickTime),
		PressTime: time.Duration(cfg.PressTime),
		Heartbeat: time.Duration(cfg.Heartbeat),
		Debug:     cfg.Debug(),
		EnvFile:   cfg.EnvFile,
	}, time.Now, ticker.C, sigCh)
}

// loopOptions carries the controller settings runLoop needs.
type loopOptions struct {
	Timing    logic.Timing
	Policy    logic.RelayPolicy
	ClickTime time.Duration
	PressTime time.Duration
	Heartbeat time.Duration
	Debug     bool   // log a progress line every second
	EnvFile   string // re-read for each heartbeat
}

// outputLatch remembers the last levels written so unchanged outputs are
// not rewritten on every poll.
type outputLatch struct {
	valid bool
	relay bool
	led   bool
}

func (l *outputLatch) drive(w gpio.Writer, out logic.Output, recorder *metrics.Recorder) {
	ok := true
	if !l.valid || l.relay != out.RelayAsserted {
		if err := w.SetRelay(out.RelayAsserted); err != nil {
			log.Printf("gpio relay write error: %v", err)
			recorder.GPIOError("relay")
			ok = false
		} else {
			l.relay = out.RelayAsserted
		}
	}
	if !l.valid || l.led != out.LedLevel {
		if err := w.SetLED(out.LedLevel); err != nil {
			log.Printf("gpio led write error: %v", err)
			recorder.GPIOError("led")
			ok = false
		} else {
			l.led = out.LedLevel
		}
	}
	// A failed write forces both outputs to be rewritten next poll.
	l.valid = ok
}

func runLoop(reader gpio.Reader, writer gpio.Writer, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, recorder *metrics.Recorder, opts loopOptions, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	machine := logic.NewMachine(opts.Timing, opts.Policy)
	classifier := button.NewClassifier(opts.ClickTime, opts.PressTime)
	heartbeat := logic.NewHeartbeat(startTime)
	if recorder == nil {
		recorder = metrics.NewRecorder(nil)
	}

	var (
		latch        outputLatch
		doorOpen     bool
		lastProgress time.Time
	)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Leave the lamp off whatever state the chamber was in.
			if err := writer.SetRelay(true); err != nil {
				log.Printf("failed to assert relay on shutdown: %v", err)
				recorder.GPIOError("relay")
			}
			if err := writer.SetLED(false); err != nil {
				log.Printf("failed to clear led on shutdown: %v", err)
			}

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				out := machine.Output(logic.Elapsed(startTime, event.Timestamp), doorOpen)
				out.LampOn, out.RelayAsserted, out.LedLevel = false, true, false
				tracker.Update(out, doorOpen, 0, machine.Counts())
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			sample, err := reader.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				recorder.GPIOError("read")
				continue
			}
			doorOpen = sample.DoorOpen

			ev := classifier.Update(sample.ButtonPressed, t)
			if ev != logic.ButtonNone {
				log.Printf("button: %s", ev)
				recorder.ObserveButton(ev)
			}

			ms := logic.Elapsed(startTime, t)
			out, transitions := machine.Step(logic.Input{
				Now:      ms,
				DoorOpen: sample.DoorOpen,
				Button:   ev,
			})
			latch.drive(writer, out, recorder)

			for _, tr := range transitions {
				stateEvent := mqtt.StateEvent{
					Timestamp:  t,
					Transition: tr,
					Remaining:  tr.Remaining(),
				}
				log.Printf("event: %s %s -> %s (cause=%s armed=%v remaining=%v)",
					stateEvent.Kind(), tr.From, tr.To, tr.Cause, tr.Armed, stateEvent.Remaining)
				recorder.ObserveTransition(tr)
				if err := publisher.Publish(stateEvent); err != nil {
					log.Printf("publish error: %v", err)
					recorder.PublishError()
					// Don't crash on publish failure
				}
				// A press that outlives an interlock must not restart the cycle.
				if tr.Cause == logic.CauseDoor {
					classifier.Cancel(t)
				}
			}

			remaining := machine.Remaining(ms)
			recorder.ObserveOutput(out, sample.DoorOpen, remaining)

			if opts.Debug && t.Sub(lastProgress) >= time.Second {
				lastProgress = t
				log.Printf("progress: state=%s door=%s lamp=%v armed=%v remaining=%v",
					out.State, doorString(sample.DoorOpen), out.LampOn, out.Armed, remaining.Truncate(time.Second))
			}

			// Check for heartbeat
			if hbData := heartbeat.Check(t, opts.Heartbeat, machine); hbData != nil {
				log.Printf("heartbeat: uptime=%v state=%s cycles=%d interlocks=%d overrides=%d",
					hbData.Uptime, hbData.State, hbData.Counts.Cycles, hbData.Counts.Interlocks, hbData.Counts.Overrides)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
					Retained:  true,
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(opts.EnvFile); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(out, sample.DoorOpen, remaining, machine.Counts())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
					recorder.PublishError()
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(out, sample.DoorOpen, remaining, machine.Counts())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Profile:     cfg.Profile,
		PollMs:      time.Duration(cfg.Poll).Milliseconds(),
		DebounceMs:  time.Duration(cfg.Debounce).Milliseconds(),
		UVCTimeMs:   time.Duration(cfg.UVCTime).Milliseconds(),
		IdleTimeMs:  time.Duration(cfg.IdleTime).Milliseconds(),
		HeartbeatMs: time.Duration(cfg.Heartbeat).Milliseconds(),
		IdleLampOn:  cfg.IdleLampOn,
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
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

// readNetworkInfo reads network state from the pi-helper env file. When the
// file is missing or unreadable it falls back to the process environment.
func readNetworkInfo(envFile string) *status.NetworkInfo {
	get := os.Getenv
	if envFile != "" {
		if vars, err := godotenv.Read(envFile); err == nil {
			get = func(key string) string { return vars[key] }
		}
	}

	s := get(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       get(envNetworkType),
		IP:         get(envNetworkIP),
		Status:     s,
		Gateway:    get(envNetworkGateway),
		WifiStatus: get(envNetworkWifiStatus),
		SSID:       get(envNetworkWifiSSID),
	}
}

func doorString(open bool) string {
	if open {
		return "OPEN"
	}
	return "CLOSED"
}

func buttonString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}
