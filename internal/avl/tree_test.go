package avl

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkInvariants walks the whole arena and verifies parent links, the
// ordering and the balance factor of every node. It returns the computed
// height of the subtree under h.
func checkInvariants[T any](t *testing.T, tr *Tree[T], h handle) int32 {
	t.Helper()
	if h == none {
		return -1
	}
	n := tr.nodes[h]
	if n.left != none {
		require.Equal(t, h, tr.nodes[n.left].parent, "left child parent link")
		require.LessOrEqual(t, tr.cmp(tr.nodes[n.left].value, n.value), 0, "left child ordering")
	}
	if n.right != none {
		require.Equal(t, h, tr.nodes[n.right].parent, "right child parent link")
		require.GreaterOrEqual(t, tr.cmp(tr.nodes[n.right].value, n.value), 0, "right child ordering")
	}
	lh := checkInvariants(t, tr, n.left)
	rh := checkInvariants(t, tr, n.right)
	require.LessOrEqual(t, math.Abs(float64(lh-rh)), 1.0, "balance factor")
	got := max(lh, rh) + 1
	require.Equal(t, got, tr.height(h), "memoized height")
	return got
}

func TestTree_Empty(t *testing.T) {
	tr := New(cmp.Compare[int])

	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, -1, tr.Height())
	_, ok := tr.Search(func(e int) int { return e })
	assert.False(t, ok)
	assert.Empty(t, tr.Values())
}

func TestTree_SingleNode(t *testing.T) {
	tr := New(cmp.Compare[int])
	tr.Insert(42)

	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, 0, tr.Height())
	v, ok := tr.Find(42)
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestTree_SmallSequence(t *testing.T) {
	tr := New(cmp.Compare[int])
	for _, v := range []int{5, 12, 1, 9, 48, 27, 6} {
		tr.Insert(v)
	}

	assert.Equal(t, 7, tr.Len())
	assert.Equal(t, 3, tr.Height())
	assert.Equal(t, []int{1, 5, 6, 9, 12, 27, 48}, tr.Values())
	checkInvariants(t, tr, tr.root)

	for _, want := range []int{1, 27, 48} {
		v, ok := tr.Find(want)
		assert.True(t, ok, "find %d", want)
		assert.Equal(t, want, v)
	}
	_, ok := tr.Find(7)
	assert.False(t, ok)
}

func TestTree_Rotations(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		root   int
	}{
		{"left-left", []int{3, 2, 1}, 2},
		{"left-right", []int{3, 1, 2}, 2},
		{"right-right", []int{1, 2, 3}, 2},
		{"right-left", []int{1, 3, 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(cmp.Compare[int])
			for _, v := range tt.values {
				tr.Insert(v)
			}
			assert.Equal(t, tt.root, tr.nodes[tr.root].value)
			assert.Equal(t, 1, tr.Height())
			assert.Equal(t, none, tr.nodes[tr.root].parent)
			checkInvariants(t, tr, tr.root)
		})
	}
}

func TestTree_Duplicates(t *testing.T) {
	type item struct {
		key, seq int
	}
	tr := New(func(a, b item) int { return cmp.Compare(a.key, b.key) })
	for i := range 20 {
		tr.Insert(item{key: i % 3, seq: i})
	}

	assert.Equal(t, 20, tr.Len())
	checkInvariants(t, tr, tr.root)

	got := tr.Values()
	assert.True(t, slices.IsSortedFunc(got, func(a, b item) int { return cmp.Compare(a.key, b.key) }))
	for key := range 3 {
		var seqs []int
		for _, it := range got {
			if it.key == key {
				seqs = append(seqs, it.seq)
			}
		}
		assert.True(t, slices.IsSorted(seqs), "key %d keeps insertion order among equals: %v", key, seqs)
	}
}

func TestTree_AllStopsEarly(t *testing.T) {
	tr := New(cmp.Compare[int])
	for i := range 100 {
		tr.Insert(i)
	}

	var seen []int
	for v := range tr.All() {
		if v == 5 {
			break
		}
		seen = append(seen, v)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
}

func TestTree_HeightBounds(t *testing.T) {
	orders := map[string]func(n int) []int{
		"ascending": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"descending": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = n - i
			}
			return out
		},
		"random": func(n int) []int {
			r := rand.New(rand.NewPCG(uint64(n), 7))
			return r.Perm(n)
		},
		"zigzag": func(n int) []int {
			out := make([]int, 0, n)
			lo, hi := 0, n-1
			for lo <= hi {
				out = append(out, lo)
				if lo != hi {
					out = append(out, hi)
				}
				lo++
				hi--
			}
			return out
		},
	}

	for name, gen := range orders {
		for _, n := range []int{1, 2, 3, 10, 100, 1000, 10000} {
			tr := New(cmp.Compare[int])
			values := gen(n)
			for _, v := range values {
				tr.Insert(v)
			}

			levels := tr.Height() + 1
			lower := int(math.Floor(math.Log2(float64(n + 1))))
			upper := int(math.Ceil(1.44 * math.Log2(float64(n+2))))
			assert.GreaterOrEqual(t, levels, lower, "%s n=%d", name, n)
			assert.LessOrEqual(t, levels, upper, "%s n=%d", name, n)

			slices.Sort(values)
			assert.Equal(t, values, tr.Values(), "%s n=%d in-order", name, n)
			if n <= 1000 {
				checkInvariants(t, tr, tr.root)
			}
		}
	}
}

func TestTree_SearchProbe(t *testing.T) {
	tr := WithCapacity(50, cmp.Compare[int])
	for i := 0; i < 100; i += 2 {
		tr.Insert(i)
	}

	// Find the even value v such that target lies in [v, v+1].
	for _, target := range []int{0, 1, 37, 98, 99} {
		v, ok := tr.Search(func(e int) int {
			switch {
			case e+1 < target:
				return -1
			case e > target:
				return 1
			default:
				return 0
			}
		})
		require.True(t, ok, "target %d", target)
		assert.Equal(t, target-target%2, v)
	}
}

func BenchmarkTree_Insert(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 2))
	values := r.Perm(10000)
	b.ResetTimer()
	for range b.N {
		tr := WithCapacity(len(values), cmp.Compare[int])
		for _, v := range values {
			tr.Insert(v)
		}
	}
}
