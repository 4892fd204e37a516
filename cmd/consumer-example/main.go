// Command consumer-example is a native host that prints every payload it receives.
//
// Install it by pointing a manifest at the binary:
//
//	$XDG_CONFIG_HOME/mailnotify/native-hosts/scriptableNotifications.json
//	{"name": "scriptableNotifications", "path": "/usr/local/bin/consumer-example", "type": "stdio"}
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/cristianoliveira/mailnotify/internal/delivery"
	"github.com/spf13/cobra"
)

// entry is one received payload as printed to the output.
type entry struct {
	Received time.Time       `json:"received"`
	Host     string          `json:"host,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "consumer-example [manifest] [origin]",
		Short: "Print every mailnotify payload as a JSON line",
		// Native hosts receive the manifest path and origin as arguments.
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			logger := clog.NewWithOptions(cmd.ErrOrStderr(), clog.Options{Prefix: "consumer-example"})
			return consume(cmd.InOrStdin(), out, os.Getenv("MAILNOTIFY_HOST_NAME"), logger)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Append payloads to this file instead of stdout")
	return cmd
}

// consume reads frames until the sender closes the stream.
func consume(in io.Reader, out io.Writer, host string, logger *clog.Logger) error {
	enc := json.NewEncoder(out)
	for {
		frame, err := delivery.ReadFrame(in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			logger.Error("reading frame failed", "err", err)
			return err
		}
		if !json.Valid(frame) {
			logger.Warn("skipping frame that is not JSON", "bytes", len(frame))
			continue
		}
		if err := enc.Encode(entry{Received: time.Now(), Host: host, Payload: frame}); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
		logger.Debug("payload received", "bytes", len(frame))
	}
}
