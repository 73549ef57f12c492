package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/canmux"
	"github.com/banshee-data/hondabus/internal/capture"
	"github.com/banshee-data/hondabus/internal/db"
	"github.com/banshee-data/hondabus/internal/monitoring"
)

// recorder fans captured frames out to the session database and a pcap
// file, whichever are configured.
type recorder struct {
	store   *db.DB
	session string
	pcap    *capture.Writer
	frames  int
}

func (r *recorder) handle(f canbus.Frame, ts time.Time) error {
	if r.store != nil {
		if err := r.store.RecordFrame(r.session, f, ts); err != nil {
			return err
		}
	}
	if r.pcap != nil {
		if err := r.pcap.WriteFrame(f, ts); err != nil {
			return err
		}
	}
	r.frames++
	return nil
}

// captureSummary is printed when a capture is recorded to the database.
type captureSummary struct {
	Session string          `json:"session"`
	Frames  int             `json:"frames"`
	Counts  []db.FrameCount `json:"counts"`
}

func newCaptureCmd(opts *globalOptions) *cobra.Command {
	var (
		portPath string
		pcapPath string
		outPath  string
		listen   string
		label    string
		bus      int
		portOpts canmux.PortOptions
	)
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record raw CAN frames from an SLCAN adapter or a SocketCAN pcap file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (portPath == "") == (pcapPath == "") {
				return errors.New("exactly one of --port or --pcap is required")
			}
			if opts.dbPath == "" && outPath == "" && listen == "" && portPath != "" {
				return errors.New("nothing to do: set --db, --out or --listen")
			}

			rec := &recorder{}
			source := "pcap:" + pcapPath
			if portPath != "" {
				source = "serial:" + portPath
			}
			if opts.dbPath != "" {
				store, err := openDB(opts)
				if err != nil {
					return err
				}
				defer store.Close()
				if rec.session, err = store.StartSession(label, source); err != nil {
					return err
				}
				rec.store = store
			}
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				if rec.pcap, err = capture.NewWriter(f); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var err error
			if pcapPath != "" {
				err = capturePCAP(ctx, pcapPath, bus, rec)
			} else {
				err = captureSerial(ctx, portPath, bus, portOpts, listen, rec)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			monitoring.Logf("capture: recorded %d frames from %s", rec.frames, source)

			if rec.store == nil {
				return nil
			}
			counts, err := rec.store.FrameCounts(rec.session)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(captureSummary{Session: rec.session, Frames: rec.frames, Counts: counts})
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&portPath, "port", "", "SLCAN serial adapter, e.g. /dev/ttyACM0")
	fs.StringVar(&pcapPath, "pcap", "", "SocketCAN pcap or pcapng file to import")
	fs.StringVar(&outPath, "out", "", "also write the frames to this pcap file")
	fs.StringVar(&listen, "listen", "", "serve debug routes on this address while capturing from --port")
	fs.StringVar(&label, "vehicle", "unknown", "vehicle label stored with the session")
	fs.IntVar(&bus, "bus", 0, "physical bus index to attribute the frames to")
	fs.IntVar(&portOpts.BaudRate, "baud", 0, "serial baud rate (default 115200)")
	fs.IntVar(&portOpts.Bitrate, "bitrate", 0, "CAN bitrate (default 500000)")
	return cmd
}

func capturePCAP(ctx context.Context, path string, bus int, rec *recorder) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	stats, err := capture.ReadPCAP(ctx, f, bus, rec.handle)
	if err != nil {
		return err
	}
	if stats.Errors > 0 || stats.Skipped > 0 {
		monitoring.Logf("capture: %d packets skipped, %d undecodable", stats.Skipped, stats.Errors)
	}
	return nil
}

func captureSerial(ctx context.Context, path string, bus int, portOpts canmux.PortOptions, listen string, rec *recorder) error {
	normalized, err := portOpts.Normalize()
	if err != nil {
		return err
	}
	mux, err := canmux.NewRealCANMux(path, bus, normalized)
	if err != nil {
		return err
	}
	defer mux.Close()
	if err := mux.Initialize(normalized.Bitrate); err != nil {
		return err
	}

	var server *http.Server
	if listen != "" {
		httpMux := http.NewServeMux()
		mux.AttachAdminRoutes(httpMux)
		if rec.store != nil {
			if err := rec.store.AttachAdminRoutes(httpMux); err != nil {
				return err
			}
		}
		server = &http.Server{Addr: listen, Handler: httpMux}
	}

	id, frames := mux.Subscribe()
	defer mux.Unsubscribe(id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs <- fmt.Errorf("failed to monitor serial port: %w", err)
		}
		cancel()
	}()

	if server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errs <- fmt.Errorf("failed to start server: %w", err)
					cancel()
				}
			}()
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				monitoring.Logf("capture: HTTP server shutdown error: %v", err)
				server.Close()
			}
		}()
		monitoring.Logf("capture: debug routes on http://%s/debug/", listen)
	}

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				cancel()
				wg.Wait()
				return firstErr(errs)
			}
			if err := rec.handle(f, time.Now()); err != nil {
				cancel()
				wg.Wait()
				return err
			}
		case <-ctx.Done():
			wg.Wait()
			if err := firstErr(errs); err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}

func firstErr(errs chan error) error {
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}
