// Package flowstructure holds the read-only traversals over a flow version's
// step tree. Every walk goes through the name lists owned by the trigger, loops
// and router branches; unknown names are skipped and each step is visited at
// most once.
package flowstructure

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dukex/flowops/pkg/models"
)

var ErrStepNotFound = errors.New("step not found")

// SlotKind identifies which kind of chain holds a step.
type SlotKind string

const (
	SlotMainChain SlotKind = "MAIN_CHAIN"
	SlotLoop      SlotKind = "LOOP"
	SlotBranch    SlotKind = "BRANCH"
)

// Slot names one ordered chain of the tree: the trigger's main chain, a loop's
// children, or one branch of a router.
type Slot struct {
	Parent      string   `json:"parent"`
	Kind        SlotKind `json:"kind"`
	BranchIndex int      `json:"branch_index,omitempty"`
}

// Location is the position of a step inside a slot.
type Location struct {
	Slot

	Index int `json:"index"`
}

// MainChain is the slot of the trigger's main chain.
func MainChain() Slot {
	return Slot{Parent: models.TriggerName, Kind: SlotMainChain}
}

// ChildChains returns the chains directly owned by a step, in order: one for a
// loop, one per branch for a router, none otherwise.
func ChildChains(step *models.Step) [][]string {
	switch step.Type {
	case models.StepTypeLoopOnItems:
		return [][]string{step.Children}
	case models.StepTypeRouter:
		if step.Router == nil {
			return nil
		}

		chains := make([][]string, len(step.Router.Branches))
		for i, branch := range step.Router.Branches {
			chains[i] = branch.Steps
		}

		return chains
	case models.StepTypeCode, models.StepTypePiece:
		return nil
	}

	return nil
}

func childSlots(step *models.Step) []Slot {
	switch step.Type {
	case models.StepTypeLoopOnItems:
		return []Slot{{Parent: step.Name, Kind: SlotLoop}}
	case models.StepTypeRouter:
		if step.Router == nil {
			return nil
		}

		slots := make([]Slot, len(step.Router.Branches))
		for i := range step.Router.Branches {
			slots[i] = Slot{Parent: step.Name, Kind: SlotBranch, BranchIndex: i}
		}

		return slots
	case models.StepTypeCode, models.StepTypePiece:
		return nil
	}

	return nil
}

// Chain returns the names held by slot.
func Chain(flow *models.FlowVersion, slot Slot) ([]string, bool) {
	switch slot.Kind {
	case SlotMainChain:
		return flow.Trigger.Steps, true
	case SlotLoop:
		step, ok := flow.Steps[slot.Parent]
		if !ok || step.Type != models.StepTypeLoopOnItems {
			return nil, false
		}

		return step.Children, true
	case SlotBranch:
		step, ok := flow.Steps[slot.Parent]
		if !ok || step.Type != models.StepTypeRouter || step.Router == nil {
			return nil, false
		}

		if slot.BranchIndex < 0 || slot.BranchIndex >= len(step.Router.Branches) {
			return nil, false
		}

		return step.Router.Branches[slot.BranchIndex].Steps, true
	}

	return nil, false
}

// GetDirectChildRefs returns the names directly referenced by the named node:
// the trigger's main chain, a loop's children, or every branch of a router
// concatenated in branch order.
func GetDirectChildRefs(flow *models.FlowVersion, name string) []string {
	if name == models.TriggerName {
		return slices.Clone(flow.Trigger.Steps)
	}

	step, ok := flow.Steps[name]
	if !ok {
		return nil
	}

	return step.ChildRefs()
}

type walker struct {
	flow    *models.FlowVersion
	visited map[string]bool
	steps   []*models.Step
}

func (w *walker) visit(names []string) {
	for _, name := range names {
		step, ok := w.flow.Steps[name]
		if !ok || w.visited[name] {
			continue
		}

		w.visited[name] = true
		w.steps = append(w.steps, step)
		w.visit(step.ChildRefs())
	}
}

func walk(flow *models.FlowVersion, from []string, exclude string) []*models.Step {
	w := &walker{
		flow:    flow,
		visited: map[string]bool{exclude: true},
		steps:   make([]*models.Step, 0),
	}
	w.visit(from)

	return w.steps
}

// GetAllSteps returns every step reachable from the trigger in depth-first
// pre-order.
func GetAllSteps(flow *models.FlowVersion) []*models.Step {
	return walk(flow, flow.Trigger.Steps, models.TriggerName)
}

// GetAllChildSteps returns every step nested under step in depth-first
// pre-order, router branches in branch order. The step itself is excluded.
func GetAllChildSteps(flow *models.FlowVersion, step *models.Step) []*models.Step {
	return walk(flow, step.ChildRefs(), step.Name)
}

// GetAllChildNames is GetAllChildSteps reduced to names.
func GetAllChildNames(flow *models.FlowVersion, step *models.Step) []string {
	children := GetAllChildSteps(flow, step)

	names := make([]string, len(children))
	for i, child := range children {
		names[i] = child.Name
	}

	return names
}

// IsChildOf reports whether target is nested anywhere under parent.
func IsChildOf(flow *models.FlowVersion, parent, target string) bool {
	step, ok := flow.Steps[parent]
	if !ok {
		return false
	}

	return slices.Contains(GetAllChildNames(flow, step), target)
}

// FindPathToStep returns the names visible before target: the trigger, then for
// each chain on the way down, the steps preceding the branch of descent and
// the container owning the next chain. The trigger's own path is empty.
func FindPathToStep(flow *models.FlowVersion, target string) ([]string, error) {
	if target == models.TriggerName {
		return []string{}, nil
	}

	if _, ok := flow.Steps[target]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, target)
	}

	visited := make(map[string]bool)

	path, found := searchPath(flow, flow.Trigger.Steps, target, []string{models.TriggerName}, visited)
	if !found {
		return nil, fmt.Errorf("%w: %s is not attached to the tree", ErrStepNotFound, target)
	}

	return path, nil
}

func searchPath(
	flow *models.FlowVersion,
	chain []string,
	target string,
	prefix []string,
	visited map[string]bool,
) ([]string, bool) {
	path := slices.Clone(prefix)

	for _, name := range chain {
		if name == target {
			return path, true
		}

		step, ok := flow.Steps[name]
		if !ok || visited[name] {
			continue
		}

		visited[name] = true
		path = append(path, name)

		for _, child := range ChildChains(step) {
			if found, ok := searchPath(flow, child, target, path, visited); ok {
				return found, true
			}
		}
	}

	return nil, false
}

// Locate returns the slot and position holding name.
func Locate(flow *models.FlowVersion, name string) (Location, bool) {
	visited := make(map[string]bool)

	return locateIn(flow, MainChain(), name, visited)
}

func locateIn(flow *models.FlowVersion, slot Slot, name string, visited map[string]bool) (Location, bool) {
	chain, ok := Chain(flow, slot)
	if !ok {
		return Location{}, false
	}

	for i, current := range chain {
		if current == name {
			return Location{Slot: slot, Index: i}, true
		}

		step, ok := flow.Steps[current]
		if !ok || visited[current] {
			continue
		}

		visited[current] = true

		for _, child := range childSlots(step) {
			if loc, found := locateIn(flow, child, name, visited); found {
				return loc, true
			}
		}
	}

	return Location{}, false
}
