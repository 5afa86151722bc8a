package locator

import (
	"fmt"

	"github.com/devicelab-dev/locus/pkg/core"
)

// Resolved is the output of one resolution attempt: the concrete selector
// plus the tree it came from. It is produced fresh on every attempt and
// never cached across retries, because the tree may resolve differently if
// the dimensions change mid-test (viewport resize, backend switch).
type Resolved struct {
	Selector core.ConcreteSelector
	Source   *Tree
	Dims     Dimensions
}

// Resolve narrows a locator tree to one concrete selector by strict, ordered
// dimension elimination: platform, then OS, then viewport, then backend.
//
// Only the viewport dimension admits a default branch. Platform, OS and
// backend branches are exhaustive: a missing branch for the current
// dimensions returns ErrIncorrectLocator rather than guessing, because at
// those dimensions ambiguity indicates a real gap in coverage.
func Resolve(tree *Tree, dims Dimensions) (Resolved, error) {
	node := tree
	prevRank := 0
	for {
		if node == nil {
			return Resolved{}, incorrect(tree, dims, "locator tree branch is nil")
		}
		if node.kind.rank() <= prevRank {
			return Resolved{}, incorrect(tree, dims,
				fmt.Sprintf("dimension %q nested under a deeper or equal dimension", node.kind))
		}

		switch node.kind {
		case KindLeaf:
			if node.leaf.Strategy == "" || node.leaf.Value == "" {
				return Resolved{}, incorrect(tree, dims, "leaf selector has empty strategy or value")
			}
			return Resolved{Selector: node.leaf, Source: tree, Dims: dims}, nil

		case KindPlatform:
			sub, ok := node.branches[string(dims.Platform)]
			if !ok {
				return Resolved{}, missing(tree, dims, node, string(dims.Platform))
			}
			prevRank, node = node.kind.rank(), sub

		case KindOS:
			sub, ok := node.branches[string(dims.OS)]
			if !ok {
				return Resolved{}, missing(tree, dims, node, string(dims.OS))
			}
			prevRank, node = node.kind.rank(), sub

		case KindViewport:
			sub, ok := node.branches[string(dims.Viewport)]
			if !ok {
				if node.def == nil {
					return Resolved{}, missing(tree, dims, node, string(dims.Viewport))
				}
				sub = node.def
			}
			prevRank, node = node.kind.rank(), sub

		case KindBackend:
			sub, ok := node.branches[dims.Backend]
			if !ok {
				return Resolved{}, missing(tree, dims, node, dims.Backend)
			}
			prevRank, node = node.kind.rank(), sub

		default:
			return Resolved{}, incorrect(tree, dims, fmt.Sprintf("unknown tree kind %d", node.kind))
		}
	}
}

// ResolveFor resolves the tree and additionally verifies the resolved
// strategy against the active backend, returning ErrUnsupportedLocator when
// the driver cannot execute it.
func ResolveFor(tree *Tree, dims Dimensions, drv core.Driver) (Resolved, error) {
	res, err := Resolve(tree, dims)
	if err != nil {
		return Resolved{}, err
	}
	if !drv.Supports(res.Selector.Strategy) {
		return Resolved{}, core.ErrUnsupportedLocator.WithDetails(map[string]interface{}{
			"strategy":   string(res.Selector.Strategy),
			"backend":    drv.Name(),
			"selector":   res.Selector.String(),
			"dimensions": dims,
		})
	}
	return res, nil
}

func missing(tree *Tree, dims Dimensions, node *Tree, want string) error {
	return core.ErrIncorrectLocator.
		WithMessage(fmt.Sprintf("no %s branch for %q (declared: %v)", node.kind, want, node.BranchKeys())).
		WithDetails(map[string]interface{}{
			"dimension":  node.kind.String(),
			"wanted":     want,
			"declared":   node.BranchKeys(),
			"dimensions": dims,
			"tree":       tree.String(),
		})
}

func incorrect(tree *Tree, dims Dimensions, msg string) error {
	return core.ErrIncorrectLocator.
		WithMessage(msg).
		WithDetails(map[string]interface{}{
			"dimensions": dims,
			"tree":       tree.String(),
		})
}
