// Command gateway runs the ground station: a radio/host bridge that
// validates frames from the flight node, emits line-delimited JSON
// telemetry to the host, supervises link health, and forwards operator
// commands back over the radio (§4.5, §6).
package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/markgavin/rocketavionics/internal/buildinfo"
	"github.com/markgavin/rocketavionics/internal/config"
	"github.com/markgavin/rocketavionics/internal/gatewayproto"
	"github.com/markgavin/rocketavionics/internal/hostlink"
	"github.com/markgavin/rocketavionics/internal/logging"
	"github.com/markgavin/rocketavionics/pkg/loraserial"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tarm/serial"
)

var (
	flagConfigPath string
	flagRadioPort  string
	flagHostPort   string
)

func main() {
	root := &cobra.Command{
		Use:     "gateway",
		Short:   "Ground-station radio/host bridge",
		Version: buildinfo.BuildString(),
		RunE:    run,
	}
	root.Flags().StringVar(&flagConfigPath, "config", "", "path to a YAML config file")
	root.Flags().StringVar(&flagRadioPort, "radio-port", "", "serial device carrying the LoRa radio link")
	root.Flags().StringVar(&flagHostPort, "host-port", "", "serial device carrying the host-link protocol (omit to use stdio)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stdioConn adapts stdin/stdout to io.ReadWriter for a hostlink.Link
// when no dedicated host serial port is configured.
type stdioConn struct{}

func (stdioConn) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioConn) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// simulatedGroundBarometer stands in for the gateway's local pressure
// sensor when no real hardware is attached: a slow random walk around
// standard sea-level pressure, matching the kind of drift a ground
// barometer actually exhibits between launches.
type simulatedGroundBarometer struct {
	pressurePa  float64
	temperatureC float64
	rnd         *rand.Rand
}

func newSimulatedGroundBarometer() *simulatedGroundBarometer {
	return &simulatedGroundBarometer{
		pressurePa:   101325,
		temperatureC: 20,
		rnd:          rand.New(rand.NewSource(1)),
	}
}

func (b *simulatedGroundBarometer) Read() (float64, float64, error) {
	b.pressurePa += (b.rnd.Float64() - 0.5) * 2
	return b.pressurePa, b.temperatureC, nil
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadGateway(flagConfigPath)
	if err != nil {
		return err
	}
	if flagRadioPort != "" {
		cfg.Radio.Port = flagRadioPort
	}
	if flagHostPort != "" {
		cfg.HostPort = flagHostPort
	}

	log := logging.New("gateway", cfg.LogLevel)
	log.Info().Str("version", buildinfo.Version).Msg("starting gateway")

	radioPort, err := loraserial.Open(loraserial.Config{Name: cfg.Radio.Port, BaudRate: cfg.Radio.BaudRate}, log)
	if err != nil {
		return fmt.Errorf("gateway: opening radio port: %w", err)
	}
	defer radioPort.Close()

	var link *hostlink.Link
	if cfg.HostPort != "" {
		hostConn, err := serial.OpenPort(&serial.Config{Name: cfg.HostPort, Baud: cfg.HostBaudRate})
		if err != nil {
			return fmt.Errorf("gateway: opening host port: %w", err)
		}
		defer hostConn.Close()
		link = hostlink.NewLink(hostConn)
	} else {
		link = hostlink.NewLink(stdioConn{})
	}

	metrics := logging.NewGatewayMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, metrics, log)
	}

	baro := newSimulatedGroundBarometer()
	tr := gatewayproto.New(radioPort, link, baro, metrics, log)
	tr.Init()
	if err := tr.OnUSBConnected(); err != nil {
		log.Warn().Err(err).Msg("failed to announce usb_connected to host")
	}

	go readHostCommands(link, tr, cfg)

	tMs := uint32(0)
	for {
		tr.ReadGroundBarometer(tMs)
		if frame, rssi, snr, ok := radioPort.Receive(); ok {
			tr.OnRadioFrame(frame, rssi, snr, tMs)
		}
		tr.SuperviseLink(tMs, cfg.LinkTimeoutMs)

		tMs++
		time.Sleep(time.Millisecond)
	}
}

func readHostCommands(link *hostlink.Link, tr *gatewayproto.Translator, cfg config.GatewayConfig) {
	for {
		line, err := link.ReadLine()
		if err != nil {
			return
		}
		tr.OnHostLine(line, cfg.RocketID, buildinfo.Version, buildinfo.BuildString())
	}
}

func serveMetrics(addr string, metrics *logging.GatewayMetrics, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
