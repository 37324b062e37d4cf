package avl

import "iter"

// handle addresses a node in the arena.
type handle int32

const none handle = -1

// heightUnknown marks a memoized height that must be recomputed.
const heightUnknown = -2

type node[T any] struct {
	value  T
	parent handle
	left   handle
	right  handle
	height int32
}

// Tree is an AVL tree of values of type T.
type Tree[T any] struct {
	nodes []node[T]
	root  handle
	cmp   func(a, b T) int
}

// New creates an empty tree ordered by cmp, which returns a negative
// number when a sorts before b, zero when they are equal and a positive
// number otherwise.
func New[T any](cmp func(a, b T) int) *Tree[T] {
	return &Tree[T]{root: none, cmp: cmp}
}

// WithCapacity creates an empty tree whose arena is preallocated for n
// values.
func WithCapacity[T any](n int, cmp func(a, b T) int) *Tree[T] {
	t := New(cmp)
	t.nodes = make([]node[T], 0, n)
	return t
}

// Len returns the number of values in the tree.
func (t *Tree[T]) Len() int {
	return len(t.nodes)
}

// Height returns the number of edges on the longest root-to-leaf path.
// A single node has height 0 and an empty tree has height -1.
func (t *Tree[T]) Height() int {
	return int(t.height(t.root))
}

// Insert adds v to the tree and restores balance along the insertion path.
func (t *Tree[T]) Insert(v T) {
	h := handle(len(t.nodes))
	t.nodes = append(t.nodes, node[T]{
		value:  v,
		parent: none,
		left:   none,
		right:  none,
		height: 0,
	})

	if t.root == none {
		t.root = h
		return
	}

	cur := t.root
	for {
		n := &t.nodes[cur]
		if t.cmp(v, n.value) < 0 {
			if n.left == none {
				n.left = h
				break
			}
			cur = n.left
		} else {
			if n.right == none {
				n.right = h
				break
			}
			cur = n.right
		}
	}

	t.nodes[h].parent = cur
	t.invalidate(cur)
	t.rebalance(cur)
}

// Search walks from the root guided by probe, which reports where the
// wanted value lies relative to e: zero for a match, negative when e is
// too small (descend right) and positive when e is too large (descend
// left). It returns the first matching value on the path.
func (t *Tree[T]) Search(probe func(e T) int) (T, bool) {
	cur := t.root
	for cur != none {
		n := &t.nodes[cur]
		switch c := probe(n.value); {
		case c == 0:
			return n.value, true
		case c < 0:
			cur = n.right
		default:
			cur = n.left
		}
	}
	var zero T
	return zero, false
}

// Find returns a value equal to v under the tree ordering.
func (t *Tree[T]) Find(v T) (T, bool) {
	return t.Search(func(e T) int { return t.cmp(e, v) })
}

// All returns an in-order iterator over the tree values.
func (t *Tree[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		stack := make([]handle, 0, t.Height()+1)
		cur := t.root
		for cur != none || len(stack) > 0 {
			for cur != none {
				stack = append(stack, cur)
				cur = t.nodes[cur].left
			}
			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(t.nodes[cur].value) {
				return
			}
			cur = t.nodes[cur].right
		}
	}
}

// Values returns the tree values in order.
func (t *Tree[T]) Values() []T {
	out := make([]T, 0, len(t.nodes))
	for v := range t.All() {
		out = append(out, v)
	}
	return out
}

func (t *Tree[T]) height(h handle) int32 {
	if h == none {
		return -1
	}
	n := &t.nodes[h]
	if n.height == heightUnknown {
		n.height = max(t.height(n.left), t.height(n.right)) + 1
	}
	return n.height
}

// invalidate clears the memoized height of h and its ancestors. A node
// with a known height only ever has descendants with known heights, so
// the walk stops at the first ancestor that is already unknown.
func (t *Tree[T]) invalidate(h handle) {
	for h != none && t.nodes[h].height != heightUnknown {
		t.nodes[h].height = heightUnknown
		h = t.nodes[h].parent
	}
}

// rebalance checks every node from h up to the root and rotates where the
// subtree heights differ by more than one.
func (t *Tree[T]) rebalance(h handle) {
	for {
		n := t.nodes[h]
		lh, rh := t.height(n.left), t.height(n.right)

		switch {
		case lh-rh > 1:
			l := t.nodes[n.left]
			if t.height(l.left) >= t.height(l.right) {
				t.rotateRight(h)
			} else {
				t.rotateLeft(n.left)
				t.rotateRight(h)
			}
		case rh-lh > 1:
			r := t.nodes[n.right]
			if t.height(r.right) >= t.height(r.left) {
				t.rotateLeft(h)
			} else {
				t.rotateRight(n.right)
				t.rotateLeft(h)
			}
		}

		p := t.nodes[h].parent
		if p == none {
			t.root = h
			return
		}
		h = p
	}
}

// rotateLeft lifts the right child of x into its place.
func (t *Tree[T]) rotateLeft(x handle) {
	y := t.nodes[x].right
	t.replaceChild(t.nodes[x].parent, x, y)

	inner := t.nodes[y].left
	t.nodes[x].right = inner
	if inner != none {
		t.nodes[inner].parent = x
	}

	t.nodes[y].left = x
	t.nodes[x].parent = y
	t.restructured(x, y)
}

// rotateRight lifts the left child of x into its place.
func (t *Tree[T]) rotateRight(x handle) {
	y := t.nodes[x].left
	t.replaceChild(t.nodes[x].parent, x, y)

	inner := t.nodes[y].right
	t.nodes[x].left = inner
	if inner != none {
		t.nodes[inner].parent = x
	}

	t.nodes[y].right = x
	t.nodes[x].parent = y
	t.restructured(x, y)
}

// restructured forgets the heights of a rotated pair and of everything
// above them.
func (t *Tree[T]) restructured(lower, upper handle) {
	t.nodes[lower].height = heightUnknown
	t.nodes[upper].height = heightUnknown
	t.invalidate(t.nodes[upper].parent)
}

// replaceChild points parent p at to where it pointed at from.
func (t *Tree[T]) replaceChild(p, from, to handle) {
	t.nodes[to].parent = p
	switch {
	case p == none:
		t.root = to
	case t.nodes[p].left == from:
		t.nodes[p].left = to
	default:
		t.nodes[p].right = to
	}
}
