package resource

import (
	"fmt"
)

// MarkerPrefix is the reserved key prefix separating subresource declarations
// from attributes proxied to the Lex API. CloudFormation resource properties
// carrying this prefix are consumed by the provisioner and never forwarded.
const MarkerPrefix = "CR_"

// Reserved subresource declaration keys.
const (
	LocalesKey      = MarkerPrefix + "botLocales"
	SlotTypesKey    = MarkerPrefix + "slotTypes"
	IntentsKey      = MarkerPrefix + "intents"
	SlotsKey        = MarkerPrefix + "slots"
	SlotTypeNameKey = MarkerPrefix + "slotTypeName"
)

// serviceTokenKey is injected by CloudFormation on every custom resource and
// is never part of the desired state.
const serviceTokenKey = "ServiceToken"

// ValidationError reports a malformed desired-state document. It is never
// retried.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid desired state: %s", e.Reason)
	}
	return fmt.Sprintf("invalid desired state at %s: %s", e.Path, e.Reason)
}

// Normalize parses a desired-state property map into a Tree. Keys carrying
// the CR_ marker prefix declare child nodes and are recursed into; all other
// keys are copied verbatim into the node's pass-through attributes.
func Normalize(props map[string]any) (*Tree, error) {
	root, err := normalizeNode(KindBot, props, "")
	if err != nil {
		return nil, err
	}
	if len(root.ChildrenOfKind(KindLocale)) == 0 {
		return nil, &ValidationError{Path: root.Address(), Reason: "bot requires at least one locale"}
	}
	for _, loc := range root.ChildrenOfKind(KindLocale) {
		if len(loc.ChildrenOfKind(KindIntent)) == 0 {
			return nil, &ValidationError{Path: loc.Address(), Reason: "locale requires at least one intent"}
		}
	}
	return &Tree{Root: root}, nil
}

// childKeys maps a declaration key to the kind of children it declares, per
// parent kind.
var childKeys = map[Kind]map[string]Kind{
	KindBot:    {LocalesKey: KindLocale},
	KindLocale: {SlotTypesKey: KindSlotType, IntentsKey: KindIntent},
	KindIntent: {SlotsKey: KindSlot},
}

func normalizeNode(kind Kind, props map[string]any, parentPath string) (*Node, error) {
	nameKey := kind.NameKey()
	name, _ := props[nameKey].(string)
	if name == "" {
		return nil, &ValidationError{
			Path:   parentPath,
			Reason: fmt.Sprintf("%s is missing required key %q", kind, nameKey),
		}
	}

	node := &Node{
		Kind:       kind,
		Name:       name,
		Attributes: make(map[string]any, len(props)),
	}

	for key, val := range props {
		if key == serviceTokenKey {
			continue
		}
		if declared, ok := childKeys[kind][key]; ok {
			children, err := normalizeChildren(declared, val, node)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				node.AddChild(c)
			}
			continue
		}
		if key == SlotTypeNameKey && kind == KindSlot {
			ref, _ := val.(string)
			if ref == "" {
				return nil, &ValidationError{Path: node.Address(), Reason: SlotTypeNameKey + " must be a non-empty string"}
			}
			node.TypeRef = ref
			continue
		}
		if len(key) >= len(MarkerPrefix) && key[:len(MarkerPrefix)] == MarkerPrefix {
			// Unknown marker keys are dropped, not proxied.
			continue
		}
		node.Attributes[key] = val
	}

	if kind == KindSlot && node.TypeRef == "" {
		// Builtin slot types may be referenced directly through slotTypeId.
		if _, ok := node.Attributes["slotTypeId"]; !ok {
			return nil, &ValidationError{Path: node.Address(), Reason: "slot requires " + SlotTypeNameKey + " or slotTypeId"}
		}
	}

	return node, nil
}

func normalizeChildren(kind Kind, val any, parent *Node) ([]*Node, error) {
	items, ok := asSlice(val)
	if !ok {
		return nil, &ValidationError{
			Path:   parent.Address(),
			Reason: fmt.Sprintf("%s declaration must be a list", kind),
		}
	}
	seen := make(map[string]bool, len(items))
	nodes := make([]*Node, 0, len(items))
	for i, item := range items {
		m, ok := asMap(item)
		if !ok {
			return nil, &ValidationError{
				Path:   parent.Address(),
				Reason: fmt.Sprintf("%s declaration entry %d must be a mapping", kind, i),
			}
		}
		child, err := normalizeNode(kind, m, parent.Address())
		if err != nil {
			return nil, err
		}
		if seen[child.Name] {
			return nil, &ValidationError{
				Path:   parent.Address(),
				Reason: fmt.Sprintf("duplicate %s name %q", kind, child.Name),
			}
		}
		seen[child.Name] = true
		nodes = append(nodes, child)
	}
	return nodes, nil
}

func asSlice(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []map[string]any:
		out := make([]any, len(val))
		for i, m := range val {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

func asMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[fmt.Sprintf("%v", k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}
