package settrie

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbanos/topiary/seq"
)

func word(values ...int) *seq.Seq {
	s := seq.New(len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func TestInsert(t *testing.T) {
	tr := New()
	tr.Insert(word(5, 1, 3), 2)
	tr.Insert(word(1, 3), 4)
	tr.Insert(word(3, 1, 5), 7)

	assert.Equal(t, 2, tr.Words())
	assert.Equal(t, 4, tr.Nodes())

	// the second insertion of {1, 3, 5} replaced its value
	v, ok := tr.ExistsSubsetAtLeast(word(1, 5, 3), 7)
	require.True(t, ok)
	assert.Equal(t, 7, v)
	v, ok = tr.ExistsSubsetAtLeast(word(1, 5, 3), 3)
	require.True(t, ok)
	assert.Equal(t, 4, v)
	_, ok = tr.ExistsSubsetAtLeast(word(1), 0)
	assert.False(t, ok)
	_, ok = tr.ExistsSubsetAtLeast(word(1, 4), 0)
	assert.False(t, ok)
}

func TestExistsSubsetAtLeast(t *testing.T) {
	tr := New()
	tr.Insert(word(2, 4), 3)
	tr.Insert(word(1, 6), 5)

	tests := []struct {
		name  string
		set   []int
		min   int
		value int
		ok    bool
	}{
		{"superset with enough value", []int{1, 2, 3, 4}, 3, 3, true},
		{"superset value too small", []int{2, 3, 4}, 4, 0, false},
		{"other subset qualifies", []int{0, 1, 2, 4, 6}, 4, 5, true},
		{"no subset", []int{1, 2, 3}, 0, 0, false},
		{"empty set", nil, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tr.ExistsSubsetAtLeast(word(tt.set...), tt.min)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.value, v)
		})
	}
}

func isSubset(sub, set []int) bool {
	for _, v := range sub {
		if !slices.Contains(set, v) {
			return false
		}
	}
	return true
}

func randomSet(r *rand.Rand, universe, maxLen int) []int {
	n := r.Intn(maxLen + 1)
	perm := r.Perm(universe)
	return perm[:n]
}

func TestExistsSubsetAgainstBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		tr := New()
		stored := map[string]struct {
			set   []int
			value int
		}{}
		for i := 0; i < 12; i++ {
			s := randomSet(r, 10, 4)
			v := r.Intn(6)
			w := word(s...)
			tr.Insert(w, v)
			key := slices.Clone(w.Values())
			stored[keyOf(key)] = struct {
				set   []int
				value int
			}{key, v}
		}
		require.Equal(t, len(stored), tr.Words())
		for q := 0; q < 30; q++ {
			query := randomSet(r, 10, 8)
			minValue := r.Intn(7)
			want := false
			for _, st := range stored {
				if st.value >= minValue && isSubset(st.set, query) {
					want = true
				}
			}
			v, ok := tr.ExistsSubsetAtLeast(word(query...), minValue)
			assert.Equal(t, want, ok, "query %v min %d", query, minValue)
			if ok {
				assert.GreaterOrEqual(t, v, minValue)
			}
		}
	}
}

func keyOf(s []int) string {
	b := make([]byte, 0, len(s)*2)
	for _, v := range s {
		b = append(b, byte(v), ',')
	}
	return string(b)
}
