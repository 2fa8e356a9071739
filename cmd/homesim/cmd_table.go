package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/homesim/internal/environment"
	"github.com/talgya/homesim/internal/home"
	"github.com/talgya/homesim/internal/persistence"
)

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Manage the environment mapping table",
	}
	cmd.AddCommand(
		newTableGenerateCmd(),
		newTableImportCmd(),
		newTableCheckCmd(),
	)
	return cmd
}

// isSQLitePath reports whether path names a SQLite database by extension.
func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func newTableGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <out>",
		Short: "Generate a complete mapping table for the configured rooms",
		Long: `Generate writes one row for every room and every combination of external
temperature, lighting and noise. The output is SQLite when <out> ends in .db,
.sqlite or .sqlite3, and CSV otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			layout, err := cfg.Layout()
			if err != nil {
				return err
			}
			seed := cfg.Table.Seed
			if cmd.Flags().Changed("seed") {
				seed, _ = cmd.Flags().GetInt64("seed")
			}

			rows := environment.Generate(layout.Rooms(), seed)
			out := args[0]
			if err := writeRows(out, rows, fmt.Sprintf("generated seed=%d", seed)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s rows to %s\n", humanize.Comma(int64(len(rows))), out)
			return nil
		},
	}
	cmd.Flags().Int64("seed", 0, "Noise seed (defaults to table.seed)")
	return cmd
}

func writeRows(out string, rows []environment.Row, source string) error {
	if isSQLitePath(out) {
		db, err := persistence.Open(out)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.SaveMappings(rows, source)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := environment.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newTableImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv> <db>",
		Short: "Import a CSV mapping table into SQLite",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			rows, err := environment.LoadCSV(args[0])
			if err != nil {
				return err
			}
			if err := writeRows(args[1], rows, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s rows from %s into %s\n",
				humanize.Comma(int64(len(rows))), args[0], args[1])
			return nil
		},
	}
}

// tableReport summarises a mapping table against a layout.
type tableReport struct {
	Source     string   `json:"source"`
	Rows       int      `json:"rows"`
	Unique     int      `json:"unique"`
	Duplicates int      `json:"duplicates"`
	Rooms      []string `json:"rooms"`
	Unknown    []string `json:"unknown_rooms,omitempty"`
	Missing    []string `json:"missing,omitempty"`
}

func checkTable(table *environment.Table, layout *home.Layout, source string) tableReport {
	r := tableReport{
		Source:     source,
		Rows:       table.Len() + table.Duplicates(),
		Unique:     table.Len(),
		Duplicates: table.Duplicates(),
	}
	for _, room := range table.Rooms() {
		r.Rooms = append(r.Rooms, string(room))
		if !layout.Has(room) {
			r.Unknown = append(r.Unknown, string(room))
		}
	}
	for _, k := range table.Missing(layout.Rooms()) {
		r.Missing = append(r.Missing, k.String())
	}
	return r
}

func newTableCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the configured mapping table for gaps and duplicates",
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
			report := checkTable(environment.NewTable(rows), layout, cfg.Table.Source)

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Source:     %s\n", report.Source)
				fmt.Fprintf(out, "Rows:       %s (%s unique, %d duplicates)\n",
					humanize.Comma(int64(report.Rows)), humanize.Comma(int64(report.Unique)), report.Duplicates)
				fmt.Fprintf(out, "Rooms:      %s\n", strings.Join(report.Rooms, ", "))
				if len(report.Unknown) > 0 {
					fmt.Fprintf(out, "Not in layout: %s\n", strings.Join(report.Unknown, ", "))
				}
				fmt.Fprintf(out, "Missing:    %d of %d combinations\n",
					len(report.Missing), layout.Len()*27)
				for _, m := range report.Missing {
					fmt.Fprintf(out, "  %s\n", m)
				}
			}

			if strict, _ := cmd.Flags().GetBool("strict"); strict && len(report.Missing) > 0 {
				return fmt.Errorf("mapping table has %d gaps", len(report.Missing))
			}
			return nil
		},
	}
	cmd.Flags().Bool("strict", false, "Exit non-zero when any combination is missing")
	return cmd
}
