package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-plates/engine/domain"
)

func (a *App) installProcess() error {
	var eventFile string
	cmd := &cobra.Command{
		Use:   "process [bucket key]",
		Short: "Process one storage event and exit",
		Long: "Process one storage event: either the object named by bucket and key, " +
			"or the event document given with --event (\"-\" reads standard input).",
		Args: func(cmd *cobra.Command, args []string) error {
			if eventFile != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var ev domain.StorageEvent
			if eventFile != "" {
				var err error
				if ev, err = readEvent(eventFile, cmd.InOrStdin()); err != nil {
					return err
				}
			} else {
				ev = domain.NewStorageEvent(args[0], args[1])
			}

			c, err := a.wire(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			status, err := c.pipeline.Handle(cmd.Context(), ev)
			if err != nil {
				return err
			}
			if status == "" {
				status = "no records"
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().StringVar(&eventFile, "event", "", "read the storage event document from this file")
	a.cmd.AddCommand(cmd)
	return nil
}

func readEvent(path string, stdin io.Reader) (domain.StorageEvent, error) {
	var ev domain.StorageEvent
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return ev, fmt.Errorf("read event: %w", err)
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
