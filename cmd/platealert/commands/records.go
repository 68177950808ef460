package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-plates/engine/records"
	"github.com/WessleyAI/wessley-plates/pkg/metrics"
)

func (a *App) installRecords() error {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Maintain the vehicle record store",
	}

	importCmd := &cobra.Command{
		Use:   "import FILE DB",
		Short: "Replace the contents of a SQLite record database with an XML or YAML document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := records.NewFileSource(args[0])
			if err != nil {
				return err
			}
			recs, err := src.Records(cmd.Context())
			if err != nil {
				return err
			}
			db, err := records.OpenSQLite(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Import(cmd.Context(), recs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records into %s\n", len(recs), args[1])
			return nil
		},
	}

	var format string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configured record source as an XML or YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := records.Format(format)
			if f != records.FormatXML && f != records.FormatYAML {
				return fmt.Errorf("unsupported format %q", format)
			}
			c := &components{log: a.log, registry: metrics.New()}
			defer c.Close()
			if err := a.openStore(cmd.Context(), c); err != nil {
				return err
			}
			data, err := records.Encode(c.store.All(), f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	exportCmd.Flags().StringVar(&format, "format", string(records.FormatYAML), "document format (xml or yaml)")

	cmd.AddCommand(importCmd, exportCmd)
	a.cmd.AddCommand(cmd)
	return nil
}
