package format

// Automaton is an Aho-Corasick automaton over a fixed set of byte
// patterns. Build is O(sum of pattern lengths); Search is O(N) in the
// length of the haystack, independent of the number of patterns.
type Automaton struct {
	nodes []node
}

type node struct {
	children map[byte]int
	fail     int
	// outputs lists the indices (into the original patterns slice) of
	// every pattern that ends at this node, including ones reached via
	// the fail-link chain (folded in at build time so Search need not
	// walk fail links per byte).
	outputs []int
}

// NewAutomaton builds an automaton recognizing every pattern in patterns.
// Empty patterns are ignored (they match everywhere and are never useful
// signatures).
func NewAutomaton(patterns [][]byte) *Automaton {
	a := &Automaton{nodes: []node{{children: map[byte]int{}}}}
	for i, p := range patterns {
		if len(p) == 0 {
			continue
		}
		a.insert(p, i)
	}
	a.buildFailLinks()
	return a
}

func (a *Automaton) insert(pattern []byte, patternIndex int) {
	cur := 0
	for _, b := range pattern {
		next, ok := a.nodes[cur].children[b]
		if !ok {
			a.nodes = append(a.nodes, node{children: map[byte]int{}})
			next = len(a.nodes) - 1
			a.nodes[cur].children[b] = next
		}
		cur = next
	}
	a.nodes[cur].outputs = append(a.nodes[cur].outputs, patternIndex)
}

func (a *Automaton) buildFailLinks() {
	var queue []int
	for _, child := range a.nodes[0].children {
		a.nodes[child].fail = 0
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		for b, u := range a.nodes[r].children {
			queue = append(queue, u)

			failCandidate := a.nodes[r].fail
			for failCandidate != 0 {
				if _, ok := a.nodes[failCandidate].children[b]; ok {
					break
				}
				failCandidate = a.nodes[failCandidate].fail
			}
			if next, ok := a.nodes[failCandidate].children[b]; ok && next != u {
				a.nodes[u].fail = next
			} else {
				a.nodes[u].fail = 0
			}
			// Fold the fail node's outputs into this node's, so Search
			// only needs to read node.outputs directly.
			a.nodes[u].outputs = append(a.nodes[u].outputs, a.nodes[a.nodes[u].fail].outputs...)
		}
	}
}

// Match reports that the pattern at PatternIndex was found ending at
// byte offset End (exclusive) in the haystack passed to Search.
type Match struct {
	PatternIndex int
	End          int
}

// Search scans haystack once and returns every match of every pattern the
// automaton was built with.
func (a *Automaton) Search(haystack []byte) []Match {
	var matches []Match
	cur := 0
	for i, b := range haystack {
		for {
			if next, ok := a.nodes[cur].children[b]; ok {
				cur = next
				break
			}
			if cur == 0 {
				break
			}
			cur = a.nodes[cur].fail
		}
		for _, pi := range a.nodes[cur].outputs {
			matches = append(matches, Match{PatternIndex: pi, End: i + 1})
		}
	}
	return matches
}
