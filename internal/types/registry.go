package types

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TypeRegistry is the process-wide named-type table. It is written only during the
// SSL/header-parsing phase (an external collaborator) and treated as
// read-only thereafter; the singleflight
// group only guards against redundant concurrent *first* resolutions when
// multiple analysis goroutines dereference the same NamedType before it
// has been registered, it is not a general write path.
type TypeRegistry struct {
	mu sync.RWMutex
	named map[string]*Type
	group singleflight.Group
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{named: make(map[string]*Type)}
}

// Define registers name to resolve to t. Redefining an existing name is
// allowed only with an equal type, matching "NamedType must eventually
// resolve" rather than silently flip-flop under concurrent passes.
func (r *TypeRegistry) Define(name string, t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.named[name]; ok && !Equal(existing, t) {
		return fmt.Errorf("types: named type %q redefined incompatibly: %s -> %s", name, existing, t)
	}
	r.named[name] = t
	return nil
}

// Resolve returns the type name refers to, resolving transitively through
// chains of named types. It reports ok=false if name is not yet defined.
func (r *TypeRegistry) Resolve(name string) (*Type, bool) {
	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		t, ok := r.named[name]
		if !ok {
			return nil, errNotFound
		}
		seen := map[string]bool{name: true}
		for t.Kind == KindNamed {
			if seen[t.Name] {
				return nil, fmt.Errorf("types: cyclic named type %q", name)
			}
			seen[t.Name] = true
			next, ok := r.named[t.Name]
			if !ok {
				return nil, errNotFound
			}
			t = next
		}
		return t, nil
	})
	if err != nil {
		return nil, false
	}
	return v.(*Type), true
}

var errNotFound = fmt.Errorf("types: named type not found")

// Deresolve resolves t itself when t is a NamedType, leaving unresolved
// names as-is (they remain KindNamed). NamedType nodes nested inside t
// (pointer or array elements, fields) are not resolved. Used by Meet callers
// that need structural comparison rather than name comparison.
func (r *TypeRegistry) Deresolve(t *Type) *Type {
	if t == nil {
		return nil
	}
	if t.Kind == KindNamed {
		if resolved, ok := r.Resolve(t.Name); ok {
			return r.Deresolve(resolved)
		}
		return t
	}
	return t
}
