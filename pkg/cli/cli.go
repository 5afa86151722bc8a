// Package cli provides the command-line interface for locus.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/locus/pkg/config"
	"github.com/devicelab-dev/locus/pkg/core"
	"github.com/devicelab-dev/locus/pkg/locator"
	"github.com/devicelab-dev/locus/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a locus.yaml config file",
		EnvVars: []string{"LOCUS_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "Platform dimension (web, mobile, desktop)",
		EnvVars: []string{"LOCUS_PLATFORM"},
	},
	&cli.StringFlag{
		Name:    "os",
		Usage:   "Operating system dimension (windows, darwin, linux, android, ios)",
		EnvVars: []string{"LOCUS_OS"},
	},
	&cli.StringFlag{
		Name:    "backend",
		Aliases: []string{"b"},
		Usage:   "Backend dimension (driver name)",
		EnvVars: []string{"LOCUS_BACKEND"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write debug logs to a file",
		EnvVars: []string{"LOCUS_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"LOCUS_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "locus",
		Usage:   "Resolve and query UI locators across platforms and viewports",
		Version: Version,
		Description: `Locus resolves locator trees against runtime dimensions and runs
element queries over captured UI hierarchy dumps.

Examples:
  locus resolve locators.yaml --platform web --width 1280
  locus query hierarchy.json ".item" 'price.amount > 100'
  locus config`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				color.NoColor = true
			}
			logger.SetVerbose(c.Bool("verbose"))
			if path := c.String("log-file"); path != "" {
				if err := logger.Init(path); err != nil {
					return err
				}
			}
			return nil
		},
		After: func(c *cli.Context) error {
			logger.Close()
			return nil
		},
		Commands: []*cli.Command{
			resolveCommand,
			queryCommand,
			configCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config named by --config, falling back to a
// locus.yaml in the working directory.
func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadFromDir(".")
}

// buildDimensions combines global flags, config defaults and an optional
// window width into the dimensions a resolution runs against.
func buildDimensions(c *cli.Context, cfg config.Config, width int) locator.Dimensions {
	dims := locator.Dimensions{
		Platform: cfg.Platform,
		OS:       cfg.OS,
		Backend:  cfg.Backend,
		Viewport: locator.ViewportDefault,
	}
	if p := c.String("platform"); p != "" {
		if canonical, ok := locator.ParsePlatform(p); ok {
			dims.Platform = canonical
		} else {
			dims.Platform = locator.Platform(p)
		}
	}
	if o := c.String("os"); o != "" {
		if canonical, ok := locator.ParseOS(o); ok {
			dims.OS = canonical
		} else {
			dims.OS = locator.OS(o)
		}
	}
	if b := c.String("backend"); b != "" {
		dims.Backend = b
	}
	if dims.Platform == "" {
		dims.Platform = locator.PlatformWeb
	}
	if dims.OS == "" {
		dims.OS = locator.HostOS()
	}
	if width > 0 {
		dims.Viewport = cfg.Breakpoints.Bucket(width)
	}
	return dims
}

// parseSelector turns a "strategy=value" argument into a locator leaf. A
// bare value is taken as CSS.
func parseSelector(arg string) (*locator.Tree, error) {
	strategy, value, found := strings.Cut(arg, "=")
	if !found {
		return locator.CSS(arg), nil
	}
	switch core.Strategy(strategy) {
	case core.StrategyCSS:
		return locator.CSS(value), nil
	case core.StrategyXPath:
		return locator.XPath(value), nil
	case core.StrategyID:
		return locator.ID(value), nil
	case core.StrategyText:
		return locator.Text(value), nil
	case core.StrategyAccessibilityID:
		return locator.AccessibilityID(value), nil
	case core.StrategyPredicate, core.StrategyUIAutomator:
		return locator.Leaf(core.Strategy(strategy), value), nil
	}
	// The argument may be a bare CSS selector containing '=', e.g. [a=b].
	if strings.ContainsAny(strategy, "[.#: ") {
		return locator.CSS(arg), nil
	}
	return nil, fmt.Errorf("unknown selector strategy %q", strategy)
}
