package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/StephanOrgiazzi/convertav1/internal/check"
	"github.com/StephanOrgiazzi/convertav1/internal/config"
	"github.com/StephanOrgiazzi/convertav1/internal/display"
	"github.com/StephanOrgiazzi/convertav1/internal/history"
	"github.com/StephanOrgiazzi/convertav1/internal/runner"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report ffmpeg, AV1 encoder and host status",
		Long: `Check verifies that ffmpeg and ffprobe run, lists the AV1 encoders ffmpeg
reports, test-encodes with each known one, and shows which encoder a
conversion would use. Exits non-zero if no conversion could run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !check.RunCheck(cmd.Context(), a.cfg, a.log, runner.New()) {
				return errReported
			}
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	var write string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Config prints the settings after defaults, the config file, CONVERTAV1_*
environment variables and flags have been applied. With --write the result is
saved instead; "--write default" saves to the user config directory, where it
is picked up automatically on the next run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if write == "" {
				data, err := config.Marshal(a.cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			path := write
			if path == "default" {
				path = config.DefaultConfigPath()
				if path == "" {
					return errors.New("no user config directory on this platform")
				}
			}
			if err := config.WriteFile(path, a.cfg); err != nil {
				return err
			}
			a.log.Success("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&write, "write", "", `Save to this file instead of printing ("default" = user config dir)`)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.EffectiveHistoryDB()
			if path == "" {
				return errors.New("history is disabled (--no-history)")
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No conversions recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tSTATUS\tENCODER\tINPUT\tSIZE\tRESULT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, humanize.Time(e.StartedAt), e.Status, e.Encoder,
					filepath.Base(e.Input), display.FormatBytes(e.InputBytes), result(e))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

// result summarizes an entry's outcome for the history table.
func result(e history.Entry) string {
	if e.Status != history.StatusOK {
		return e.Reason
	}
	return fmt.Sprintf("%s (%s)", display.FormatBytes(e.OutputBytes),
		display.FormatRatio(e.InputBytes, e.OutputBytes))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "convertav1 %s (%s)\n", version, commit)
			return err
		},
	}
}
