package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wafermap/pkg/format/hex"
	"github.com/matzehuels/wafermap/pkg/pipeline"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

// inspectStation labels a file decoded outside a job.
const inspectStation = "FILE"

// decodeFile reads and decodes a single station file.
func decodeFile(path string, sparse bool) (*pipeline.Decoded, error) {
	return pipeline.Decode(pipeline.SourceSpec{Station: inspectStation, Path: path, Format: sourceFormat(sparse)})
}

// decodeCommand creates the decode command.
func (c *CLI) decodeCommand() *cobra.Command {
	var sparse bool

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Print the header, grid and statistics of a station file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := decodeFile(args[0], sparse)
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("decoded", "file", args[0], "rows", d.Grid.Rows(), "cols", d.Grid.Width())

			if d.Header != nil {
				for _, key := range d.Header.Keys() {
					value, _ := d.Header.Get(key)
					printKeyValue(key, value)
				}
			}
			if d.Sparse != nil {
				printKeyValue("Records", fmt.Sprintf("%d", len(d.Sparse.Records)))
				if d.Sparse.Malformed > 0 {
					printWarning("%d malformed records skipped", d.Sparse.Malformed)
				}
			}
			printNewline()
			printGrid(d.Grid)
			printNewline()
			fmt.Println(statsTable(wafer.ComputeStats(d.Grid)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&sparse, "sparse", false, "read the file as sparse coordinates")
	return cmd
}

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var sparse bool

	cmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "Print the test statistics of a station file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := decodeFile(args[0], sparse)
			if err != nil {
				return err
			}
			fmt.Println(statsTable(wafer.ComputeStats(d.Grid)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&sparse, "sparse", false, "read the file as sparse coordinates")
	return cmd
}

// hexCommand creates the hex command.
func (c *CLI) hexCommand() *cobra.Command {
	var sparse bool

	cmd := &cobra.Command{
		Use:   "hex [file]",
		Short: "Print the HEX rendering of a station file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := decodeFile(args[0], sparse)
			if err != nil {
				return err
			}
			return hex.Write(os.Stdout, d.Grid)
		},
	}

	cmd.Flags().BoolVar(&sparse, "sparse", false, "read the file as sparse coordinates")
	return cmd
}
