// Package hierarchy rebuilds the inner/outer class tree from a flat list of
// converted classes.
//
// Owner references are plain names. Reassemble resolves them once against a
// name-to-index lookup over an arena of builders, so dangling owners and
// ownership cycles are handled in one explicit pass instead of while walking
// the tree.
package hierarchy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/jarmeta/internal/metadata"
)

// ErrDuplicateClass is returned when two input classes share a name.
var ErrDuplicateClass = errors.New("duplicate class")

// OwnershipCycleError reports classes that own each other, directly or through
// other classes. Classes lists the cycle starting at the class whose owner
// link closed it.
type OwnershipCycleError struct {
	Classes []string
}

func (e *OwnershipCycleError) Error() string {
	path := append(append([]string(nil), e.Classes...), e.Classes[0])
	return fmt.Sprintf("ownership cycle: %s", strings.Join(path, " -> "))
}

type builder struct {
	meta     metadata.ClassMetadata
	parent   int // -1 when root
	children []int
}

// Reassemble nests every class whose owner is in classes under that owner and
// returns the remaining roots in input order. Children keep input order too.
// Classes whose owner is absent or not in classes are roots. Any InnerClasses
// already set on the input are replaced.
func Reassemble(classes []metadata.ClassMetadata) ([]metadata.ClassMetadata, error) {
	arena := make([]builder, len(classes))
	lookup := make(map[string]int, len(classes))

	// Edges point from a class to its owner. Every class has at most one
	// outgoing edge, so each cycle check walks a single ancestor chain.
	owners := graph.New(graph.IntHash, graph.Directed(), graph.PreventCycles())

	for i, c := range classes {
		if _, exists := lookup[c.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, c.Name)
		}
		lookup[c.Name] = i
		arena[i] = builder{meta: c, parent: -1}
		if err := owners.AddVertex(i); err != nil {
			return nil, fmt.Errorf("failed to add class %s: %w", c.Name, err)
		}
	}

	roots := make([]int, 0, len(classes))
	for i, c := range classes {
		parent, ok := lookup[c.Owner]
		if c.Owner == "" || !ok {
			roots = append(roots, i)
			continue
		}
		if err := owners.AddEdge(i, parent); err != nil {
			if errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return nil, cycleError(arena, i, parent)
			}
			return nil, fmt.Errorf("failed to attach %s to %s: %w", c.Name, c.Owner, err)
		}
		arena[i].parent = parent
		arena[parent].children = append(arena[parent].children, i)
	}

	out := make([]metadata.ClassMetadata, 0, len(roots))
	for _, i := range roots {
		out = append(out, build(arena, i))
	}
	return out, nil
}

func build(arena []builder, i int) metadata.ClassMetadata {
	meta := arena[i].meta
	meta.InnerClasses = make([]metadata.ClassMetadata, 0, len(arena[i].children))
	for _, child := range arena[i].children {
		meta.InnerClasses = append(meta.InnerClasses, build(arena, child))
	}
	return meta
}

// cycleError lists the cycle closed by attaching child to parent: child, then
// its would-be owner chain back around to child.
func cycleError(arena []builder, child, parent int) *OwnershipCycleError {
	members := []string{arena[child].meta.Name}
	for at := parent; at != child && at >= 0; at = arena[at].parent {
		members = append(members, arena[at].meta.Name)
	}
	return &OwnershipCycleError{Classes: members}
}
