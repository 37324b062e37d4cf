package finding

import (
	"iter"

	"github.com/dshills/gramcheck/internal/avl"
)

// Index orders the records of one analysis by start position and answers
// point-containment queries.
type Index struct {
	tree *avl.Tree[*Record]
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{tree: avl.New(compareStart)}
}

// NewIndexWithCapacity creates an empty index sized for n records.
func NewIndexWithCapacity(n int) *Index {
	return &Index{tree: avl.WithCapacity(n, compareStart)}
}

func compareStart(a, b *Record) int {
	return a.Start.Compare(b.Start)
}

// Insert adds a record. Records with identical starts are all kept.
func (x *Index) Insert(r *Record) {
	x.tree.Insert(r)
}

// At returns a record whose span contains p. When spans overlap, which of
// the containing records is returned depends on the shape of the tree.
func (x *Index) At(p Point) (*Record, bool) {
	if x == nil {
		return nil, false
	}
	return x.tree.Search(func(r *Record) int { return r.Locate(p) })
}

// Search walks the index with a custom probe; see avl.Tree.Search for the
// probe contract.
func (x *Index) Search(probe func(*Record) int) (*Record, bool) {
	if x == nil {
		return nil, false
	}
	return x.tree.Search(probe)
}

// All iterates records in start order.
func (x *Index) All() iter.Seq[*Record] {
	if x == nil {
		return func(func(*Record) bool) {}
	}
	return x.tree.All()
}

// Records returns all records in start order.
func (x *Index) Records() []*Record {
	if x == nil {
		return nil
	}
	return x.tree.Values()
}

// Len returns the number of records.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.tree.Len()
}

// Height returns the height of the underlying tree, -1 when empty.
func (x *Index) Height() int {
	if x == nil {
		return -1
	}
	return x.tree.Height()
}
