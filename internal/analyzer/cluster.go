package analyzer

// Overlap is the overlap coefficient of two sorted keyword sets:
// |a ∩ b| / min(|a|, |b|). It also returns the intersection size.
func Overlap(a, b []string) (float64, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}

	shared := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			shared++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}

	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	return float64(shared) / float64(smaller), shared
}

// linked reports whether two articles belong to the same trend. Sharing no
// keyword never links, whatever the threshold.
func linked(a, b []string, threshold float64) bool {
	overlap, shared := Overlap(a, b)
	return shared > 0 && overlap >= threshold
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// cluster groups article indexes into connected components of the link
// graph. Components come back ordered by their smallest index, members in
// ascending index order.
func cluster(keywords [][]string, threshold float64) [][]int {
	uf := newUnionFind(len(keywords))
	for i := 0; i < len(keywords); i++ {
		for j := i + 1; j < len(keywords); j++ {
			if linked(keywords[i], keywords[j], threshold) {
				uf.union(i, j)
			}
		}
	}

	index := make(map[int]int)
	var groups [][]int
	for i := range keywords {
		root := uf.find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
