// Command ballotinterpret runs the timing-mark grid detector and bubble
// scorer over a pair of ballot page images and prints the interpreted
// result as JSON.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ballotscan/internal/logging"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ballotinterpret",
		Short: "interpret a scanned ballot card",
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
	cmd.AddCommand(newInterpretCmd())
	return cmd
}

func newInterpretCmd() *cobra.Command {
	var frontPath, backPath string
	cmd := &cobra.Command{
		Use:   "interpret",
		Short: "interpret one front/back page pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if frontPath == "" || backPath == "" {
				return fmt.Errorf("both --front and --back are required")
			}
			result, err := runInterpret(frontPath, backPath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&frontPath, "front", "", "path to the front page image (8-bit grayscale PNG)")
	cmd.Flags().StringVar(&backPath, "back", "", "path to the back page image (8-bit grayscale PNG)")
	return cmd
}
