package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newTopologyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Show the physical core to logical CPU mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTopology()
		},
	}
}

func (c *CLI) runTopology() error {
	topology, err := c.config.DetectTopology()
	if err != nil {
		return err
	}

	smt := "no"
	if topology.HasSMT() {
		smt = "yes"
	}
	fmt.Fprintf(c.output, "physical cores: %d\nlogical cpus:   %d\nsmt:            %s\n\n",
		topology.PhysicalCores, topology.LogicalCPUs, smt)

	w := tabwriter.NewWriter(c.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CORE\tUNITS")
	for _, core := range topology.AllCores() {
		fmt.Fprintf(w, "%d\t%v\n", core, []int(topology.UnitsFor(core)))
	}
	return w.Flush()
}
