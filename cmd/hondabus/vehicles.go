package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/vehicle"
)

func newVehiclesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vehicles",
		Short: "List the supported vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := vehicle.DefaultCatalog()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFAMILY\tRADARLESS\tEXTENDED_HUD")
			for _, name := range catalog.Names() {
				p, err := catalog.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", p.Name, p.Family, p.Radarless, p.ExtendedHUD)
			}
			return tw.Flush()
		},
	}
}

// topologyReport is the bus layout of one session.
type topologyReport struct {
	Vehicle       string `json:"vehicle"`
	Family        string `json:"family"`
	Offset        int    `json:"offset"`
	PT            int    `json:"pt"`
	Radar         int    `json:"radar"`
	Camera        int    `json:"camera"`
	Diagnostic    int    `json:"diagnostic"`
	LKASBus       int    `json:"lkas_bus"`
	ButtonBus     int    `json:"button_bus"`
	RadarDisabled bool   `json:"radar_disabled"`
}

func newTopologyCmd(opts *globalOptions) *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Print the physical bus layout for a vehicle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd, opts)
			if err != nil {
				return err
			}
			topo := s.topology()
			radarDisabled := s.profile.RadarDisabled(s.longControl)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(topologyReport{
				Vehicle:       s.profile.Name,
				Family:        s.profile.Family.String(),
				Offset:        topo.Offset,
				PT:            topo.PT,
				Radar:         topo.Radar,
				Camera:        topo.Camera,
				Diagnostic:    topo.Diagnostic(),
				LKASBus:       canbus.LKASBus(topo, s.profile, radarDisabled),
				ButtonBus:     canbus.ButtonBus(topo, s.profile),
				RadarDisabled: radarDisabled,
			})
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
