package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/hondabus/internal/config"
	"github.com/banshee-data/hondabus/internal/monitoring"
	"github.com/banshee-data/hondabus/internal/radar"
)

// replayFrame is one emitted radar frame.
type replayFrame struct {
	Frame int              `json:"frame"`
	Radar *radar.RadarData `json:"radar"`
}

func newReplayCmd(opts *globalOptions) *cobra.Command {
	var (
		flags      sessionFlags
		logPath    string
		tuningPath string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a decoded radar snapshot log through ingestion and print the emitted frames",
		Long: `Replay reads a JSON-lines log of decoded radar signals, one snapshot per
received batch, and prints every completed radar frame as a JSON line. With
--db the frames are also recorded under a new session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logPath == "" {
				return errors.New("--log is required")
			}
			s, err := flags.resolve(cmd, opts)
			if err != nil {
				return err
			}

			tuning := config.DefaultTuningConfig()
			if tuningPath != "" {
				if tuning, err = config.LoadTuningConfig(tuningPath); err != nil {
					return err
				}
			}
			mode := radar.SelectMode(s.profile, s.teslaRadar)
			cfg := radar.ConfigFromTuning(tuning, mode, s.radarOffset)
			if opts.dbPath != "" {
				cfg.AllObjects = s.allObjects
			}
			ri := radar.New(cfg)
			monitoring.Logf("replay: %s radar mode %s", s.profile.Name, mode)

			f, err := os.Open(logPath)
			if err != nil {
				return fmt.Errorf("failed to open snapshot log: %w", err)
			}
			defer f.Close()

			var record func(frame int, data *radar.RadarData) error
			if opts.dbPath != "" {
				store, err := openDB(opts)
				if err != nil {
					return err
				}
				defer store.Close()
				sessionID, err := store.StartSession(s.profile.Name, "log:"+logPath)
				if err != nil {
					return err
				}
				record = func(frame int, data *radar.RadarData) error {
					return store.RecordRadarData(sessionID, frame, data)
				}
			}

			reader := radar.NewSnapshotReader(f)
			enc := json.NewEncoder(cmd.OutOrStdout())
			frames := 0
			for {
				updated, err := reader.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				data, ok := ri.Update(updated, reader.Source())
				if !ok {
					continue
				}
				if err := enc.Encode(replayFrame{Frame: frames, Radar: data}); err != nil {
					return err
				}
				if record != nil {
					if err := record(frames, data); err != nil {
						return err
					}
				}
				frames++
			}
			monitoring.Logf("replay: emitted %d frames, %d live tracks", frames, len(ri.Tracks()))
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&logPath, "log", "", "JSON-lines snapshot log")
	cmd.Flags().StringVar(&tuningPath, "tuning", "", "radar tuning JSON (default: built-in defaults)")
	return cmd
}
