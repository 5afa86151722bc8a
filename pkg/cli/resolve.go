package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/locus/pkg/locator"
	"github.com/devicelab-dev/locus/pkg/logger"
)

var resolveCommand = &cli.Command{
	Name:      "resolve",
	Usage:     "Resolve locator trees against runtime dimensions",
	ArgsUsage: "<locator-file>",
	Description: `Resolve every locator tree in a YAML file down to the concrete
selector that the given dimensions select.

The locator file maps names to trees:

  login-button:
    platform:
      web:
        viewport:
          default: { css: "#login" }
          xs: { css: "#login-compact" }
      mobile:
        accessibility-id: "login"

Examples:
  locus resolve locators.yaml --platform web --width 1280
  locus resolve locators.yaml --platform mobile --os android -b uiautomator2
  locus resolve locators.yaml --viewport xs`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "width",
			Aliases: []string{"w"},
			Usage:   "Window width in pixels, bucketed into a viewport class",
		},
		&cli.StringFlag{
			Name:  "viewport",
			Usage: "Viewport class (xs, sm, md, lg, xl, xxl), overrides --width",
		},
	},
	Action: runResolve,
}

func runResolve(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one locator file, got %d arguments", c.NArg())
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	trees, err := loadLocatorFile(c.Args().First())
	if err != nil {
		return err
	}

	dims := buildDimensions(c, cfg, c.Int("width"))
	if v := c.String("viewport"); v != "" {
		dims.Viewport = locator.Viewport(v)
	}
	logger.Info("Resolving %d locators for %s/%s viewport=%s backend=%s",
		len(trees), dims.Platform, dims.OS, dims.Viewport, dims.Backend)

	names := make([]string, 0, len(trees))
	for name := range trees {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		res, err := locator.Resolve(trees[name], dims)
		if err != nil {
			failed++
			color.Red("✗ %s: %v", name, err)
			continue
		}
		fmt.Printf("%s %s: %s\n", color.GreenString("✓"), name, color.CyanString("%s", res.Selector))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d locators did not resolve", failed, len(trees))
	}
	return nil
}

// loadLocatorFile reads a YAML map of named locator trees and validates
// each tree's nesting before resolution.
func loadLocatorFile(path string) (map[string]*locator.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locator file: %w", err)
	}

	var trees map[string]*locator.Tree
	if err := yaml.Unmarshal(data, &trees); err != nil {
		return nil, fmt.Errorf("failed to parse locator file: %w", err)
	}
	for name, tree := range trees {
		if tree == nil {
			return nil, fmt.Errorf("locator %q is empty", name)
		}
		if err := tree.Validate(); err != nil {
			return nil, fmt.Errorf("locator %q: %w", name, err)
		}
	}
	return trees, nil
}
