package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corestress/corestress/pkg/config"
)

func (c *CLI) newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.DefaultConfigFile,
		Long: `Write a default configuration file into the work directory. Edit it to
change the build commands, the cores to stress or the run mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")
	return cmd
}

func (c *CLI) runInit(force bool) error {
	path := c.config.ConfigFile
	if path == "" {
		path = filepath.Join(c.config.Workdir, config.DefaultConfigFile)
	}

	if err := config.WriteDefault(path, force); err != nil {
		return err
	}

	out := c.console()
	out.Success(fmt.Sprintf("Created configuration at %s", path))
	out.Info("Run `corestress topology` to see which cores can be stressed")
	return nil
}
