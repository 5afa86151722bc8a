package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/locus/pkg/driver/snapshot"
	"github.com/devicelab-dev/locus/pkg/element"
	"github.com/devicelab-dev/locus/pkg/logger"
	"github.com/devicelab-dev/locus/pkg/session"
)

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "Run element queries over a captured hierarchy dump",
	ArgsUsage: "<hierarchy-file> <selector> [expression]",
	Description: `Find elements in a hierarchy dump and optionally filter them with a
query expression. Without an expression every match is listed; with one,
the first member satisfying it is printed.

Selectors take the form strategy=value (css, id, text, accessibility-id);
a bare value is treated as CSS.

Examples:
  locus query hierarchy.json ".item"
  locus query hierarchy.json ".item" 'text == "Checkout"'
  locus query hierarchy.json ".product" --child price=.price 'price > 100'`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "child",
			Usage: "Declare a named child selector for structural queries (name=selector)",
		},
	},
	Action: runQuery,
}

func runQuery(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return fmt.Errorf("expected <hierarchy-file> <selector> [expression], got %d arguments", c.NArg())
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("failed to read hierarchy dump: %w", err)
	}
	drv, err := snapshot.New(data)
	if err != nil {
		return err
	}

	tree, err := parseSelector(c.Args().Get(1))
	if err != nil {
		return err
	}
	children, err := parseChildFlags(c.StringSlice("child"))
	if err != nil {
		return err
	}

	sess := session.New(drv, cfg)
	col, err := element.DeclareCollection(sess, tree, nil, element.WithChildren(children))
	if err != nil {
		return err
	}

	if c.NArg() == 2 {
		return listMembers(col)
	}

	expr := c.Args().Get(2)
	logger.Info("Querying %s members with %q", tree, expr)
	h, err := col.Query(expr)
	if err != nil {
		return err
	}
	if h == nil {
		color.Yellow("no member matches %q", expr)
		return cli.Exit("", 1)
	}
	printMember(h.Node().Ref(), memberText(h))
	return nil
}

func listMembers(col *element.Collection) error {
	nodes, err := col.Nodes()
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		color.Yellow("no matches")
		return cli.Exit("", 1)
	}
	for i, n := range nodes {
		w, err := col.Slot(i, "")
		if err != nil {
			return err
		}
		h := w.(*element.Handle)
		fmt.Printf("%3d ", i)
		printMember(n.Ref(), memberText(h))
	}
	return nil
}

func printMember(ref, text string) {
	if text != "" {
		fmt.Printf("%s %s %q\n", color.GreenString("✓"), ref, text)
		return
	}
	fmt.Printf("%s %s\n", color.GreenString("✓"), ref)
}

func memberText(h *element.Handle) string {
	text, err := h.Text()
	if err != nil {
		return ""
	}
	return text
}

// parseChildFlags turns repeated name=selector declarations into the child
// map used by structural query segments.
func parseChildFlags(flags []string) (map[string]element.Child, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	children := make(map[string]element.Child, len(flags))
	for _, f := range flags {
		name, sel, found := strings.Cut(f, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("child declaration %q is not name=selector", f)
		}
		tree, err := parseSelector(sel)
		if err != nil {
			return nil, err
		}
		children[name] = element.Child{Tree: tree}
	}
	return children, nil
}
