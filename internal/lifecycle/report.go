package lifecycle

// Report is the per-round, write-only tree shared by reference with every
// handler invocation of a round. Intermediate sections are created on first
// access; handlers only ever append. No key ordering is guaranteed.
//
// The single-writer rule in the daemon (handlers run strictly one at a
// time) is what makes the unlocked map safe.
type Report struct {
	root map[string]any
}

// NewReport creates an empty report tree.
func NewReport() *Report {
	return &Report{root: make(map[string]any)}
}

// Section returns the nested section at the given key path, creating any
// missing intermediate sections. A scalar already stored at an intermediate
// key is replaced by a section; writers own their own key paths by
// convention, so this only happens on a misbehaving handler.
func (r *Report) Section(path ...string) map[string]any {
	node := r.root
	for _, key := range path {
		child, ok := node[key].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[key] = child
		}
		node = child
	}
	return node
}

// Set writes a scalar value at the given path; the last element is the key.
func (r *Report) Set(value any, path ...string) {
	if len(path) == 0 {
		return
	}
	section := r.Section(path[:len(path)-1]...)
	section[path[len(path)-1]] = value
}

// Get reads the value at the given path. The second return reports whether
// the full path exists.
func (r *Report) Get(path ...string) (any, bool) {
	var node any = r.root
	for _, key := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Tree exposes the underlying map for serialization (report writers).
func (r *Report) Tree() map[string]any {
	return r.root
}

// Empty reports whether nothing has been written.
func (r *Report) Empty() bool {
	return len(r.root) == 0
}
