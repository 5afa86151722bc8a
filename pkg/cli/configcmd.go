package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "Print the effective configuration",
	Description: `Print the configuration that sessions would run with, after merging
the config file (--config or ./locus.yaml) over the built-in defaults.`,
	Action: runConfig,
}

func runConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if path := c.String("config"); path != "" {
		color.Blue("# %s", path)
	} else {
		color.Blue("# defaults merged with ./locus.yaml, if present")
	}
	fmt.Print(string(out))
	return nil
}
