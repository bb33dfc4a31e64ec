package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wafermap/pkg/config"
	"github.com/matzehuels/wafermap/pkg/overlay"
)

// orderCommand creates the order command.
func (c *CLI) orderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "order [job.toml]",
		Short: "Arrange the station order and print the [priority] table",
		Long: `Arrange the station order and print the [priority] table.

The picker lists every station of the job file from lowest to highest
precedence. Stations lower in the list override the ones above. The
confirmed order is printed as a TOML [priority] section that can be pasted
into the job file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOrder(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runOrder(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	order, err := pickOrder(ctx, initialOrder(cfg))
	if err != nil {
		return err
	}
	out, err := config.EncodePriorityTOML(overlay.PriorityFromOrder(order))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
