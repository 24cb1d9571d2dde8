// Command flightnode runs the onboard flight computer's cooperative
// 1kHz main loop: sensor ingest, phase state machine, and the LoRa radio
// protocol handler (§2, §5). The flight recorder is initialised and
// serves the radio's flash commands; the loop does not start, log to,
// or end a recorder flight.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/markgavin/rocketavionics/internal/buildinfo"
	"github.com/markgavin/rocketavionics/internal/config"
	"github.com/markgavin/rocketavionics/internal/flash"
	"github.com/markgavin/rocketavionics/internal/flightcontrol"
	"github.com/markgavin/rocketavionics/internal/flightsim"
	"github.com/markgavin/rocketavionics/internal/logging"
	"github.com/markgavin/rocketavionics/internal/radio"
	"github.com/markgavin/rocketavionics/internal/recorder"
	"github.com/markgavin/rocketavionics/pkg/loraserial"
	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagSimulate   bool
	flagPort       string
	flagTicks      int
)

func main() {
	root := &cobra.Command{
		Use:     "flightnode",
		Short:   "Onboard flight computer main loop",
		Version: buildinfo.BuildString(),
		RunE:    run,
	}
	root.Flags().StringVar(&flagConfigPath, "config", "", "path to a YAML config file")
	root.Flags().BoolVar(&flagSimulate, "simulate", false, "drive the controller from a synthetic flight profile instead of real sensors")
	root.Flags().StringVar(&flagPort, "port", "", "serial device carrying the LoRa radio link (omit to run with no radio transport)")
	root.Flags().IntVar(&flagTicks, "ticks", 0, "stop after this many 1ms ticks (0 = run forever)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// nullTransport is used when no serial port is configured: telemetry
// and command replies are silently dropped rather than failing the
// main loop, matching §7's "transient failures are non-fatal" design.
type nullTransport struct{}

func (nullTransport) Send([]byte, time.Duration) error   { return nil }
func (nullTransport) Receive() ([]byte, int8, int8, bool) { return nil, 0, 0, false }

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFlightNode(flagConfigPath)
	if err != nil {
		return err
	}
	if flagSimulate {
		cfg.Simulate = true
	}
	if flagPort != "" {
		cfg.Radio.Port = flagPort
	}

	log := logging.New("flightnode", cfg.LogLevel)
	log.Info().Str("version", buildinfo.Version).Bool("simulate", cfg.Simulate).Msg("starting flight node")

	layout := recorder.DefaultLayout()
	dev := flash.NewDevice(layout.FlashSize())
	rec := recorder.New(dev, layout, log)
	if err := rec.Init(); err != nil {
		return fmt.Errorf("flightnode: recorder init: %w", err)
	}
	if cfg.RocketName != "" {
		rec.SetRocketName(cfg.RocketName)
	}

	ctrl := flightcontrol.New(cfg.TraceCapacity, log)

	var transport radio.Transport
	if cfg.Simulate || cfg.Radio.Port == "" {
		transport = nullTransport{}
	} else {
		port, err := loraserial.Open(loraserial.Config{Name: cfg.Radio.Port, BaudRate: cfg.Radio.BaudRate}, log)
		if err != nil {
			return fmt.Errorf("flightnode: opening radio port: %w", err)
		}
		defer port.Close()
		transport = port
	}

	handler := radio.New(transport, ctrl, rec, log)

	profile := flightsim.DefaultProfile()
	tMs := uint32(0)
	ticks := 0
	for {
		if cfg.Simulate {
			ctrl.UpdateSensors(profile.PressureAt(tMs), 20, tMs)
		}
		ctrl.Update(tMs)
		handler.Tick(tMs, cfg.RocketID)
		handler.PollRX(tMs, cfg.RocketID, buildinfo.Version, buildinfo.BuildString())

		tMs++
		ticks++
		if flagTicks > 0 && ticks >= flagTicks {
			return nil
		}
		if !cfg.Simulate {
			time.Sleep(time.Millisecond)
		}
	}
}
