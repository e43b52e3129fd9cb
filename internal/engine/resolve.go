package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexcr-io/lexcr/internal/resource"
)

// builtinTypePrefix marks Lex builtin slot types, which are addressed by
// their own name rather than a generated identifier.
const builtinTypePrefix = "AMAZON."

// ReferenceNotFoundError reports a by-name reference that matched no node of
// the expected kind within its locale scope. Not retried; blocks only the
// referencing node and its dependents.
type ReferenceNotFoundError struct {
	Kind  resource.Kind
	Name  string
	Scope string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in %s", e.Kind, e.Name, e.Scope)
}

// AmbiguousReferenceError reports a reference matching more than one node.
// Sibling name uniqueness is enforced at normalization time, so this only
// trips on inconsistent remote state.
type AmbiguousReferenceError struct {
	Kind  resource.Kind
	Name  string
	Scope string
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("%s %q is ambiguous in %s", e.Kind, e.Name, e.Scope)
}

// LookupFunc resolves a (kind, name) pair against the remote system within a
// locale scope. It returns "" with a nil error when nothing matches.
type LookupFunc func(ctx context.Context, kind resource.Kind, name string, scope *resource.Node) (string, error)

// Resolver resolves by-name references to concrete identifiers. Resolution
// is lazy: it runs immediately before the referencing operation executes,
// because the referenced node's create may be pending in the same pass. The
// in-tree identifiers assigned earlier in the pass are consulted first, then
// the remote lookup for nodes that predate this invocation.
type Resolver struct {
	Lookup LookupFunc
}

// SlotTypeID resolves a slot's type reference within the slot's locale.
func (r *Resolver) SlotTypeID(ctx context.Context, slot *resource.Node) (string, error) {
	name := slot.TypeRef
	if name == "" {
		// Direct builtin reference through the pass-through attributes.
		if id, ok := slot.Attributes["slotTypeId"].(string); ok && strings.HasPrefix(id, builtinTypePrefix) {
			return id, nil
		}
		return "", &ReferenceNotFoundError{Kind: resource.KindSlotType, Scope: slot.Address()}
	}
	if strings.HasPrefix(name, builtinTypePrefix) {
		return name, nil
	}
	scope := slot.Locale()
	if scope == nil {
		return "", &ReferenceNotFoundError{Kind: resource.KindSlotType, Name: name, Scope: slot.Address()}
	}

	var matches []*resource.Node
	for _, st := range scope.ChildrenOfKind(resource.KindSlotType) {
		if st.Name == name && st.ID != "" {
			matches = append(matches, st)
		}
	}
	switch {
	case len(matches) > 1:
		return "", &AmbiguousReferenceError{Kind: resource.KindSlotType, Name: name, Scope: scope.Address()}
	case len(matches) == 1:
		return matches[0].ID, nil
	}

	if r.Lookup != nil {
		id, err := r.Lookup(ctx, resource.KindSlotType, name, scope)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", &ReferenceNotFoundError{Kind: resource.KindSlotType, Name: name, Scope: scope.Address()}
}
