package resource

import (
	"fmt"
	"strings"
)

// Kind identifies the level of a node in the bot resource tree.
type Kind int

const (
	KindBot Kind = iota
	KindLocale
	KindSlotType
	KindIntent
	KindSlot
)

func (k Kind) String() string {
	switch k {
	case KindBot:
		return "bot"
	case KindLocale:
		return "locale"
	case KindSlotType:
		return "slot_type"
	case KindIntent:
		return "intent"
	case KindSlot:
		return "slot"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// NameKey returns the attribute key that carries the node's reconciliation
// name for this kind.
func (k Kind) NameKey() string {
	switch k {
	case KindBot:
		return "botName"
	case KindLocale:
		return "localeId"
	case KindSlotType:
		return "slotTypeName"
	case KindIntent:
		return "intentName"
	case KindSlot:
		return "slotName"
	default:
		return ""
	}
}

// Node is a single addressable entity in the bot tree. Name is the
// reconciliation key and is unique among siblings of the same kind. ID is
// assigned by Lex on creation and never reused. Attributes are proxied
// verbatim to the corresponding API call.
type Node struct {
	Kind       Kind
	Name       string
	ID         string
	Attributes map[string]any
	Children   []*Node

	// TypeRef names the slot type a slot refers to. Empty for other kinds.
	TypeRef string

	parent *Node
}

// Parent returns the node's parent, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// AddChild appends c preserving declaration order, which is significant for
// slot priorities.
func (n *Node) AddChild(c *Node) {
	c.parent = n
	n.Children = append(n.Children, c)
}

// ChildrenOfKind returns the node's direct children of the given kind in
// declaration order.
func (n *Node) ChildrenOfKind(k Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the direct child with the given kind and name, or nil.
func (n *Node) Child(k Kind, name string) *Node {
	for _, c := range n.Children {
		if c.Kind == k && c.Name == name {
			return c
		}
	}
	return nil
}

// Locale returns the enclosing locale node, or nil if the node is at or
// above locale level. Cross-references are scoped per locale.
func (n *Node) Locale() *Node {
	for p := n.parent; p != nil; p = p.parent {
		if p.Kind == KindLocale {
			return p
		}
	}
	if n.Kind == KindLocale {
		return n
	}
	return nil
}

// Address returns the node's path from the root, e.g.
// "bot.OrderFlowers/locale.en_US/intent.OrderIntent/slot.FlowerType".
func (n *Node) Address() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.parent {
		parts = append(parts, fmt.Sprintf("%s.%s", cur.Kind, cur.Name))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Walk visits the node and its descendants depth-first in declaration order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Tree is a bot resource tree rooted at a single bot node. It owns all
// descendant nodes exclusively.
type Tree struct {
	Root *Node
}

// Find returns the node at the given address, or nil.
func (t *Tree) Find(addr string) *Node {
	if t == nil || t.Root == nil {
		return nil
	}
	var found *Node
	t.Root.Walk(func(n *Node) {
		if found == nil && n.Address() == addr {
			found = n
		}
	})
	return found
}
