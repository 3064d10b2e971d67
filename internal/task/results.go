package task

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Results is an ordered collection of a task's named result values. The
// executing handler is the only writer; readers such as the status server
// may observe it concurrently, hence the lock.
type Results struct {
	mu     sync.RWMutex
	names  []string
	values map[string]cty.Value
}

// NewResults returns an empty result set.
func NewResults() *Results {
	return &Results{values: make(map[string]cty.Value)}
}

// Set stores a value under name, preserving first-set order for listings.
func (r *Results) Set(name string, v cty.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.values[name]; !exists {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the value stored under name.
func (r *Results) Get(name string) (cty.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	return v, ok
}

// Names returns the result names in first-set order.
func (r *Results) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of stored results.
func (r *Results) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Object returns the results as a cty object value, the shape downstream
// expressions see under run.<name>.results.
func (r *Results) Object() cty.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.values) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(r.values)
}

// Replace swaps the entire result set for the attributes of obj, in sorted
// name order. It is used when results are read back from a store.
func (r *Results) Replace(obj cty.Value) error {
	if obj.IsNull() {
		return fmt.Errorf("results: cannot replace from a null value")
	}
	ty := obj.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return fmt.Errorf("results: cannot replace from %s", ty.FriendlyName())
	}

	values := make(map[string]cty.Value)
	for it := obj.ElementIterator(); it.Next(); {
		k, v := it.Element()
		values[k.AsString()] = v
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = names
	r.values = values
	return nil
}
