package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/colorhunt/internal/store"
)

func (r *root) newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage saved filter presets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return r.listPresets(cmd.Context(), cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME|ID",
		Short: "Delete a preset by name or ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return r.deletePreset(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	})

	return cmd
}

func (r *root) listPresets(ctx context.Context, out io.Writer) error {
	backend, err := r.openBackend(ctx)
	if err != nil {
		return err
	}
	presets, err := backend.Presets().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list presets: %w", err)
	}

	if len(presets) == 0 {
		fmt.Fprintln(out, "No presets found in database.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tHUE\tSATURATION\tDESAT\tHIGHLIGHT\tCREATED")
	fmt.Fprintln(w, "--\t----\t---\t----------\t-----\t---------\t-------")

	for _, p := range presets {
		fmt.Fprintf(w, "%s\t%s\t%g-%g\t%g-%g%%\t%.0f%%\t%.0f%%\t%s\n",
			p.ID, p.Name, p.HueMin, p.HueMax, p.SatMin, p.SatMax,
			p.Desaturate, p.Highlight, p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (r *root) deletePreset(ctx context.Context, out io.Writer, ref string) error {
	backend, err := r.openBackend(ctx)
	if err != nil {
		return err
	}
	presets := backend.Presets()

	id := ref
	if p, err := presets.GetByName(ctx, ref); err == nil {
		id = p.ID
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := presets.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("preset %q not found", ref)
		}
		return err
	}
	fmt.Fprintf(out, "Deleted preset %s\n", ref)
	return nil
}
