package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-plates/pkg/metrics"
)

func (a *App) installLookup() error {
	cmd := &cobra.Command{
		Use:   "lookup PLATE",
		Short: "Print the vehicle record registered for a plate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &components{log: a.log, registry: metrics.New()}
			defer c.Close()
			if err := a.openStore(cmd.Context(), c); err != nil {
				return err
			}
			rec, err := c.store.FindByPlate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
	a.cmd.AddCommand(cmd)
	return nil
}
