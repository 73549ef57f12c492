package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/db"
	"github.com/banshee-data/hondabus/internal/monitoring"
	"github.com/banshee-data/hondabus/internal/vehicle"
	"github.com/banshee-data/hondabus/internal/version"
)

const envPrefix = "HONDABUS"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	cfgFile   string
	logLevel  string
	logFormat string
	dbPath    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "hondabus",
		Short:         "Honda/Acura CAN integration: bus layout, control encoding and radar ingestion",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cmd, v, opts.cfgFile); err != nil {
				return err
			}
			return monitoring.Init(opts.logLevel, opts.logFormat)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			monitoring.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.hondabus.yml)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "console", "log format (console, json)")
	pf.StringVar(&opts.dbPath, "db", "", "sqlite database for params and recordings")

	cmd.AddCommand(
		newVehiclesCmd(),
		newTopologyCmd(opts),
		newEncodeCmd(opts),
		newReplayCmd(opts),
		newCaptureCmd(opts),
		newParamsCmd(opts),
	)
	return cmd
}

// initConfig reads the config file and HONDABUS_* environment variables and
// applies them to every flag the user did not set explicitly.
func initConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".hondabus")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return bindFlags(cmd, v)
}

// bindFlags applies the viper value to each flag that was not set on the
// command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
			errs = append(errs, fmt.Errorf("could not set flag %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func openDB(opts *globalOptions) (*db.DB, error) {
	if opts.dbPath == "" {
		return nil, errors.New("--db is required")
	}
	return db.NewDB(opts.dbPath)
}

// session is the resolved vehicle configuration of a command.
type session struct {
	profile     vehicle.Profile
	longControl bool
	teslaRadar  bool
	busOffset   int
	radarOffset float64
	allObjects  bool
}

// sessionFlags are the vehicle flags shared by topology, encode and replay.
type sessionFlags struct {
	vehicle     string
	metric      bool
	longControl bool
	teslaRadar  bool
	busOffset   int
	radarOffset float64
}

func (s *sessionFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&s.vehicle, "vehicle", "", "vehicle identifier (default: CarFingerprint param)")
	fs.BoolVar(&s.metric, "metric", false, "the car displays metric units")
	fs.BoolVar(&s.longControl, "long-control", false, "longitudinal control is owned by this layer")
	fs.BoolVar(&s.teslaRadar, "tesla-radar", false, "a Tesla/Bosch radar is retrofitted")
	fs.IntVar(&s.busOffset, "bus-offset", 0, "bus offset of the car behind the gateway (0, 4, 8, ...)")
	fs.Float64Var(&s.radarOffset, "radar-offset", 0, "lateral mounting offset of the radar, metres")
}

// resolve builds the session from flags. With --db the persisted params fill
// every flag the user did not set.
func (s *sessionFlags) resolve(cmd *cobra.Command, opts *globalOptions) (session, error) {
	out := session{
		longControl: s.longControl,
		teslaRadar:  s.teslaRadar,
		busOffset:   s.busOffset,
		radarOffset: s.radarOffset,
		allObjects:  true,
	}
	name, metric := s.vehicle, s.metric

	if opts.dbPath != "" {
		store, err := openDB(opts)
		if err != nil {
			return out, err
		}
		defer store.Close()
		params, err := store.SessionParams()
		if err != nil && !(errors.Is(err, db.ErrParamNotFound) && name != "") {
			return out, err
		}
		if err == nil {
			changed := cmd.Flags().Changed
			if name == "" {
				name = params.CarFingerprint
			}
			if !changed("metric") {
				metric = params.Metric
			}
			if !changed("long-control") {
				out.longControl = params.LongControl
			}
			if !changed("tesla-radar") {
				out.teslaRadar = params.TeslaRadar
			}
			if !changed("radar-offset") {
				out.radarOffset = params.TeslaRadarOffset
			}
			out.allObjects = params.RadarAllObjects
		}
	}
	if name == "" {
		return out, errors.New("--vehicle is required")
	}

	p, err := vehicle.DefaultCatalog().Lookup(name)
	if err != nil {
		return out, err
	}
	out.profile = p.WithMetric(metric)
	return out, nil
}

func (s session) topology() canbus.Topology {
	return canbus.NewTopology(s.profile, canbus.WithOffset(s.busOffset))
}
