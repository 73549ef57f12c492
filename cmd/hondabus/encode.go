package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/hondabus/internal/controller"
	"github.com/banshee-data/hondabus/internal/monitoring"
)

func newEncodeCmd(opts *globalOptions) *cobra.Command {
	var (
		flags      sessionFlags
		scriptPath string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Run a YAML control script through the encoders and print each cycle as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scriptPath == "" {
				return errors.New("--script is required")
			}
			data, err := os.ReadFile(scriptPath)
			if err != nil {
				return fmt.Errorf("failed to read script: %w", err)
			}
			script, err := controller.ParseScript(data)
			if err != nil {
				return err
			}

			// the script supplies what the command line did not; setting the
			// flag keeps stored params from overriding it
			fromScript := map[string]string{}
			if script.Vehicle != "" {
				fromScript["vehicle"] = script.Vehicle
			}
			if script.LongControl {
				fromScript["long-control"] = "true"
			}
			if script.Offset != 0 {
				fromScript["bus-offset"] = fmt.Sprint(script.Offset)
			}
			for name, value := range fromScript {
				if cmd.Flags().Changed(name) {
					continue
				}
				if err := cmd.Flags().Set(name, value); err != nil {
					return err
				}
			}

			s, err := flags.resolve(cmd, opts)
			if err != nil {
				return err
			}
			c := controller.New(s.profile, s.topology(), s.longControl)
			cycles := c.Run(script.Steps)
			monitoring.Logf("encode: %s produced %d cycles", s.profile.Name, len(cycles))

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, cy := range cycles {
				if err := enc.Encode(cy); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&scriptPath, "script", "", "YAML control script")
	return cmd
}
