package engine

import (
	"reflect"
	"strings"

	"github.com/lexcr-io/lexcr/internal/resource"
)

// Action is the reconciliation operation planned for a single node.
type Action int

const (
	ActionNoOp Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "CREATE"
	case ActionUpdate:
		return "UPDATE"
	case ActionDelete:
		return "DELETE"
	default:
		return "NOOP"
	}
}

// Operation targets one node of the tree. Node is the desired node (nil for
// deletes), Prior the matched live node (nil for creates). DependsOn lists
// the addresses of operations that must complete first: the parent's, plus
// the referenced slot type's for slots.
type Operation struct {
	Action    Action
	Address   string
	Node      *resource.Node
	Prior     *resource.Node
	DependsOn []string
}

// Summary counts planned operations by action.
type Summary struct {
	Create int
	Update int
	Delete int
	NoOp   int
}

// Plan is an ordered operation list: creates and updates in topological
// order (parents before children, referenced slot types before referencing
// slots, declaration order among siblings), followed by deletes in reverse
// topological order so no live reference dangles mid-reconciliation.
type Plan struct {
	Ops     []*Operation
	Summary Summary
}

// Diff compares a desired tree against the last known live tree (nil for
// first-time creation) and produces the operation plan. Nodes are matched by
// (kind, name, parent path); matched pairs with equal attributes are NoOp.
func Diff(desired, live *resource.Tree) *Plan {
	plan := &Plan{}
	var liveRoot *resource.Node
	if live != nil {
		liveRoot = live.Root
	}
	var deletes []*Operation
	diffNode(desired.Root, liveRoot, "", plan, &deletes)
	for i, j := 0, len(deletes)-1; i < j; i, j = i+1, j-1 {
		deletes[i], deletes[j] = deletes[j], deletes[i]
	}
	plan.Ops = append(plan.Ops, deletes...)
	return plan
}

// DiffLiveOnly plans the teardown of a live tree with no desired
// counterpart: every node is deleted, children before parents.
func DiffLiveOnly(live *resource.Tree) *Plan {
	plan := &Plan{}
	var deletes []*Operation
	markDeleted(live.Root, plan, &deletes)
	for i, j := 0, len(deletes)-1; i < j; i, j = i+1, j-1 {
		deletes[i], deletes[j] = deletes[j], deletes[i]
	}
	plan.Ops = append(plan.Ops, deletes...)
	return plan
}

// childKindOrder yields a node's child kinds in dependency order: slot types
// are created before the intents whose slots reference them.
func childKindOrder(k resource.Kind) []resource.Kind {
	switch k {
	case resource.KindBot:
		return []resource.Kind{resource.KindLocale}
	case resource.KindLocale:
		return []resource.Kind{resource.KindSlotType, resource.KindIntent}
	case resource.KindIntent:
		return []resource.Kind{resource.KindSlot}
	default:
		return nil
	}
}

func diffNode(desired, live *resource.Node, parentAddr string, plan *Plan, deletes *[]*Operation) {
	addr := desired.Address()
	op := &Operation{Address: addr, Node: desired, Prior: live}
	if parentAddr != "" {
		op.DependsOn = append(op.DependsOn, parentAddr)
	}
	if ref := typeRefAddress(desired); ref != "" {
		op.DependsOn = append(op.DependsOn, ref)
	}

	switch {
	case live == nil:
		op.Action = ActionCreate
		plan.Summary.Create++
	case !attributesEqual(desired, live):
		op.Action = ActionUpdate
		plan.Summary.Update++
	default:
		op.Action = ActionNoOp
		plan.Summary.NoOp++
	}
	if op.Action != ActionNoOp {
		plan.Ops = append(plan.Ops, op)
	}

	for _, kind := range childKindOrder(desired.Kind) {
		for _, child := range desired.ChildrenOfKind(kind) {
			var prior *resource.Node
			if live != nil {
				prior = live.Child(kind, child.Name)
			}
			diffNode(child, prior, addr, plan, deletes)
		}
		if live == nil {
			continue
		}
		for _, gone := range live.ChildrenOfKind(kind) {
			if desired.Child(kind, gone.Name) == nil {
				markDeleted(gone, plan, deletes)
			}
		}
	}
}

// markDeleted emits deletes for a live subtree in creation order; the caller
// reverses the collected slice so children precede parents and referencing
// slots precede their slot types. Delete dependencies point downward: a
// parent's delete waits for its children's, and a slot type's delete waits
// for the deletes of slots referencing it.
func markDeleted(live *resource.Node, plan *Plan, deletes *[]*Operation) {
	op := &Operation{
		Action:  ActionDelete,
		Address: live.Address(),
		Prior:   live,
	}
	*deletes = append(*deletes, op)
	plan.Summary.Delete++
	for _, kind := range childKindOrder(live.Kind) {
		for _, child := range live.ChildrenOfKind(kind) {
			op.DependsOn = append(op.DependsOn, child.Address())
			markDeleted(child, plan, deletes)
		}
	}
	if live.Kind == resource.KindSlotType {
		if loc := live.Locale(); loc != nil {
			for _, intent := range loc.ChildrenOfKind(resource.KindIntent) {
				for _, slot := range intent.ChildrenOfKind(resource.KindSlot) {
					if slot.TypeRef == live.Name {
						op.DependsOn = append(op.DependsOn, slot.Address())
					}
				}
			}
		}
	}
}

// typeRefAddress returns the address of the slot type a slot references
// within its locale scope, or "" when there is no in-tree reference
// (builtin AMAZON. types live outside the tree).
func typeRefAddress(n *resource.Node) string {
	if n.Kind != resource.KindSlot || n.TypeRef == "" {
		return ""
	}
	if strings.HasPrefix(n.TypeRef, "AMAZON.") {
		return ""
	}
	loc := n.Locale()
	if loc == nil {
		return ""
	}
	if st := loc.Child(resource.KindSlotType, n.TypeRef); st != nil {
		return st.Address()
	}
	return ""
}

func attributesEqual(a, b *resource.Node) bool {
	if !reflect.DeepEqual(a.Attributes, b.Attributes) {
		return false
	}
	// A retargeted slot type reference is an update even though the
	// pass-through attributes match.
	return a.TypeRef == b.TypeRef
}
