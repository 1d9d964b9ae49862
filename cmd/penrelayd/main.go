package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penrelay/penrelay/pkg/desktop"
	"github.com/penrelay/penrelay/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		listen       string
		accessCode   string
		display      string
		preferHW     []string
		logFormat    string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "penrelayd",
		Short: "penrelay desktop streaming daemon",
		Long:  "Captures a display or window, encodes it to H.264, and streams it to a browser over WebSocket while relaying pointer/keyboard input back to the native desktop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logFormat, logLevel, os.Stderr)
			log := logging.L("main")

			cfg := desktop.Config{
				AccessCode: accessCode,
				Capture: desktop.CaptureConfig{
					PreferPortal: true,
					Display:      display,
				},
				Prefer: parseAccelPreference(preferHW),
			}

			manager := desktop.NewSessionManager(cfg)

			mux := http.NewServeMux()
			mux.Handle("/ws", manager)

			server := &http.Server{Addr: listen, Handler: mux}

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", "addr", listen)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("listen: %w", err)
			case <-sigCh:
				log.Info("shutdown signal received")
			}

			manager.Shutdown()
			return server.Close()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":9811", "address to accept WebSocket connections on")
	cmd.Flags().StringVar(&accessCode, "access-code", "", "if set, clients must send this as their first text frame")
	cmd.Flags().StringVar(&display, "display", "", "X11 $DISPLAY override (Linux only; empty uses the environment)")
	cmd.Flags().StringSliceVar(&preferHW, "prefer-hw", nil, "ordered acceleration preference (vaapi, nvenc, videotoolbox, mediafoundation, software); default tries all, hardware first")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "log output format: text or json")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func parseAccelPreference(names []string) []desktop.AccelPath {
	if len(names) == 0 {
		return nil
	}
	var out []desktop.AccelPath
	for _, n := range names {
		switch n {
		case "vaapi":
			out = append(out, desktop.PathVAAPI)
		case "nvenc":
			out = append(out, desktop.PathNVENC)
		case "videotoolbox":
			out = append(out, desktop.PathVideoToolbox)
		case "mediafoundation":
			out = append(out, desktop.PathMediaFoundation)
		case "software":
			out = append(out, desktop.PathSoftware)
		}
	}
	return out
}
