// Command flightctl is the operator's command-line tool: it speaks the
// gateway's line-delimited JSON host-link protocol (§6) to arm/disarm
// the rocket, query status, download stored flights, and toggle
// orientation mode.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/markgavin/rocketavionics/internal/hostlink"
	"github.com/spf13/cobra"
	"github.com/tarm/serial"
)

var (
	flagPort     string
	flagBaudRate int
	flagTimeout  time.Duration
)

func main() {
	root := &cobra.Command{
		Use:     "flightctl",
		Short:   "Operator CLI for the rocket avionics gateway",
		Version: "dev",
	}
	root.PersistentFlags().StringVar(&flagPort, "port", "", "serial device the gateway's host link is on (omit to use stdio)")
	root.PersistentFlags().IntVar(&flagBaudRate, "baud", 115200, "baud rate of --port")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 3*time.Second, "how long to wait for a response line")

	root.AddCommand(
		simpleCmd("ping", hostlink.CmdPing),
		simpleCmd("status", hostlink.CmdStatus),
		simpleCmd("gw-info", hostlink.CmdGatewayInfo),
		simpleCmd("info", hostlink.CmdInfo),
		simpleCmd("arm", hostlink.CmdArm),
		simpleCmd("disarm", hostlink.CmdDisarm),
		simpleCmd("reset", hostlink.CmdReset),
		simpleCmd("download", hostlink.CmdDownload),
		simpleCmd("flash-list", hostlink.CmdFlashList),
		orientationModeCmd(),
		flashReadCmd(),
		flashDeleteCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func simpleCmd(use, cmdName string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Send the %q command", cmdName),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendAndPrint(hostlink.Command{Cmd: cmdName})
		},
	}
}

func orientationModeCmd() *cobra.Command {
	var enable bool
	c := &cobra.Command{
		Use:   "orientation-mode",
		Short: "Enable or disable high-rate orientation-confirmation telemetry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendAndPrint(hostlink.Command{Cmd: hostlink.CmdOrientationMode, Enabled: enable})
		},
	}
	c.Flags().BoolVar(&enable, "enable", true, "set to false to disable")
	return c
}

func flashReadCmd() *cobra.Command {
	var slot uint8
	var sample uint32
	c := &cobra.Command{
		Use:   "flash-read",
		Short: "Read a stored flight's header (sample 0xFFFFFFFF) or a page of samples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendAndPrint(hostlink.Command{Cmd: hostlink.CmdFlashRead, Slot: slot, Sample: sample})
		},
	}
	c.Flags().Uint8Var(&slot, "slot", 0, "flight slot index")
	c.Flags().Uint32Var(&sample, "sample", 0xFFFFFFFF, "starting sample index (0xFFFFFFFF for the header)")
	return c
}

func flashDeleteCmd() *cobra.Command {
	var slot uint8
	var all bool
	c := &cobra.Command{
		Use:   "flash-delete",
		Short: "Delete one stored flight, or all of them with --all",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				slot = 0xFF
			}
			return sendAndPrint(hostlink.Command{Cmd: hostlink.CmdFlashDelete, Slot: slot})
		},
	}
	c.Flags().Uint8Var(&slot, "slot", 0, "flight slot index")
	c.Flags().BoolVar(&all, "all", false, "delete every stored flight")
	return c
}

// sendAndPrint opens the configured transport, writes cmd with a fresh
// correlation id, and prints the first response line verbatim.
func sendAndPrint(cmd hostlink.Command) error {
	rw, closeFn, err := openTransport()
	if err != nil {
		return err
	}
	defer closeFn()

	cmd.ID = int64(uuid.New().ID())
	link := hostlink.NewLink(rw)
	if err := link.WriteRecord(cmd); err != nil {
		return fmt.Errorf("flightctl: writing command: %w", err)
	}

	lineCh := make(chan []byte, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := link.ReadLine()
		if err != nil {
			errCh <- err
			return
		}
		lineCh <- line
	}()

	select {
	case line := <-lineCh:
		return printPretty(line)
	case err := <-errCh:
		return fmt.Errorf("flightctl: reading response: %w", err)
	case <-time.After(flagTimeout):
		return fmt.Errorf("flightctl: no response within %s", flagTimeout)
	}
}

func printPretty(line []byte) error {
	var generic map[string]any
	if err := json.Unmarshal(line, &generic); err != nil {
		fmt.Println(string(line))
		return nil
	}
	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		fmt.Println(string(line))
		return nil
	}
	fmt.Println(string(out))
	return nil
}

type stdioRW struct{}

func (stdioRW) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioRW) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func openTransport() (io.ReadWriter, func(), error) {
	if flagPort == "" {
		return stdioRW{}, func() {}, nil
	}
	conn, err := serial.OpenPort(&serial.Config{Name: flagPort, Baud: flagBaudRate})
	if err != nil {
		return nil, nil, fmt.Errorf("flightctl: opening %s: %w", flagPort, err)
	}
	return conn, func() { conn.Close() }, nil
}
