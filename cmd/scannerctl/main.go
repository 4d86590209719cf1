// Command scannerctl drives a document-feed scanner's command interface
// directly, for bench testing against a device exposed as three
// byte-stream files (an OUT endpoint to write to, and two IN endpoints to
// read control responses and image data from).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ballotscan/internal/logging"
	"ballotscan/internal/scanner"
	"ballotscan/internal/scanner/protocol"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scannerctl",
		Short: "drive a PDI-style document-feed scanner over its byte-stream endpoints",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			var level slog.Level
			if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
				level = slog.LevelInfo
			}
			slog.SetDefault(logging.Logger(os.Stderr, false, level))
		},
	}
	cmd.PersistentFlags().String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	cmd.PersistentFlags().String("out", "", "path to the OUT endpoint byte stream")
	cmd.PersistentFlags().String("in-primary", "", "path to the IN control-response endpoint byte stream")
	cmd.PersistentFlags().String("in-image", "", "path to the IN image-data endpoint byte stream")

	cmd.AddCommand(newConnectCmd(), newStatusCmd(), newEjectCmd())
	return cmd
}

func openClient(cmd *cobra.Command) (*scanner.Client, *scanner.Transport, error) {
	outPath, _ := cmd.Flags().GetString("out")
	inPrimaryPath, _ := cmd.Flags().GetString("in-primary")
	inImagePath, _ := cmd.Flags().GetString("in-image")
	if outPath == "" || inPrimaryPath == "" || inImagePath == "" {
		return nil, nil, fmt.Errorf("--out, --in-primary, and --in-image are all required")
	}

	out, err := os.OpenFile(outPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open out endpoint: %w", err)
	}
	inPrimary, err := os.Open(inPrimaryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open in-primary endpoint: %w", err)
	}
	inImage, err := os.Open(inImagePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open in-image endpoint: %w", err)
	}

	transport := scanner.NewTransport(scanner.Endpoints{Out: out, InPrimary: inPrimary, InImage: inImage})
	transport.Start()
	return scanner.NewClient(transport), transport, nil
}

func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "replay the initial command sequence a freshly attached scanner expects",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, transport, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer transport.Stop()
			return client.Connect()
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "request and print the scanner's current status flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, transport, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer transport.Stop()

			match := func(p protocol.Incoming) (any, bool) {
				resp, ok := p.(protocol.ScannerStatusResponse)
				return resp, ok
			}
			result, err := client.Call(protocol.GetScannerStatusRequest{}, match, time.Now().Add(2*time.Second))
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", result.(protocol.ScannerStatusResponse).Status)
			return nil
		},
	}
}

func newEjectCmd() *cobra.Command {
	var motion string
	cmd := &cobra.Command{
		Use:   "eject",
		Short: "eject the document currently in the transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, transport, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer transport.Stop()

			m, err := parseMotion(motion)
			if err != nil {
				return err
			}
			return client.EjectDocument(m)
		},
	}
	cmd.Flags().StringVar(&motion, "motion", "front", "eject motion: front, rear, hold, or rescan")
	return cmd
}

func parseMotion(s string) (protocol.EjectMotion, error) {
	switch s {
	case "front":
		return protocol.EjectToFront, nil
	case "rear":
		return protocol.EjectToRear, nil
	case "hold":
		return protocol.EjectToFrontAndHold, nil
	case "rescan":
		return protocol.EjectToFrontAndRescan, nil
	default:
		return 0, fmt.Errorf("unknown eject motion %q", s)
	}
}
