package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/homesim/internal/environment"
	"github.com/talgya/homesim/internal/home"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <room> <temperature> <lighting> <noise>",
		Short: "Look up the internal settings for a room and external conditions",
		Example: `  homesim lookup Kitchen low high medium
  homesim lookup "Living Room" High Low Low --json`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			layout, err := cfg.Layout()
			if err != nil {
				return err
			}
			rows, err := loadRows(cfg, layout)
			if err != nil {
				return err
			}

			key := environment.Key{Room: home.Room(args[0])}
			for i, dst := range []*environment.Level{&key.Temperature, &key.Lighting, &key.Noise} {
				l, err := environment.ParseLevel(args[i+1])
				if err != nil {
					return err
				}
				*dst = l
			}

			settings, err := environment.NewTable(rows).Lookup(key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(environment.Row{Key: key, Settings: settings})
			}
			fmt.Fprintf(out, "%s\n", key)
			fmt.Fprintf(out, "  temperature: %.1f °C\n", settings.Temperature)
			fmt.Fprintf(out, "  lighting:    %.0f%%\n", settings.Lighting)
			fmt.Fprintf(out, "  music:       %s (%d)\n", settings.Music, int(settings.Music))
			return nil
		},
	}
}
