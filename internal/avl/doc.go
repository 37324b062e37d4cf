// Package avl provides a self-balancing binary search tree keyed by a
// caller-supplied ordering.
//
// Nodes live in a single arena slice and refer to each other by index, so
// the tree never holds pointer cycles between parent and child. Each node
// memoizes its height; any structural change invalidates the memo on the
// node and its ancestors and the next height query recomputes it.
//
// Basic usage:
//
//	t := avl.New(func(a, b int) int { return a - b })
//	for _, v := range []int{5, 12, 1, 9} {
//		t.Insert(v)
//	}
//	v, ok := t.Search(func(e int) int { return e - 9 })
//
// Equal keys are allowed; a duplicate is placed in the right subtree of
// its equal, so in-order iteration keeps insertion order among equals.
//
// A Tree is not safe for concurrent mutation. Once building is finished it
// may be shared freely between readers.
package avl
