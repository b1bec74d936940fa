package executor

import (
	"strings"

	"github.com/born-ml/dataflow/internal/graph"
)

// RecipientMap maps a tensor name to the names of the tensors that read it.
type RecipientMap map[string]map[string]struct{}

func (m RecipientMap) add(input, consumer string) {
	set, ok := m[input]
	if !ok {
		set = make(map[string]struct{})
		m[input] = set
	}
	set[consumer] = struct{}{}
}

func (m RecipientMap) merge(other RecipientMap) {
	for input, consumers := range other {
		for consumer := range consumers {
			m.add(input, consumer)
		}
	}
}

// RecipientCounts maps a tensor name to its number of distinct consumers.
type RecipientCounts map[string]int

func (c RecipientCounts) clone() RecipientCounts {
	out := make(RecipientCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// recipientCounts reduces a recipient map to consumer counts.
func recipientCounts(m RecipientMap) RecipientCounts {
	counts := make(RecipientCounts, len(m))
	for name, consumers := range m {
		counts[name] = len(consumers)
	}
	return counts
}

// TopologicalSort orders the unfed ancestors of fetches so that every tensor
// precedes its consumers, and counts the consumers of each tensor within
// that closure.
//
// Tensors bound in feed are treated as satisfied and are not traversed.
func TopologicalSort(fetches []*graph.SymbolicTensor, feed *FeedDict) ([]*graph.SymbolicTensor, RecipientCounts, error) {
	if len(fetches) == 0 {
		return nil, nil, newError(ErrCodeEmptyFetchSet, "expected at least one fetch, got none")
	}

	if len(fetches) == 1 {
		sorted, recipients, err := sortSingle(fetches[0], feed)
		if err != nil {
			return nil, nil, err
		}
		return sorted, recipientCounts(recipients), nil
	}

	visited := make(map[string]bool)
	var sorted []*graph.SymbolicTensor
	recipients := make(RecipientMap)
	for _, fetch := range fetches {
		s, r, err := sortSingle(fetch, feed)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range s {
			if !visited[t.Name] {
				sorted = append(sorted, t)
				visited[t.Name] = true
			}
		}
		recipients.merge(r)
	}
	return sorted, recipientCounts(recipients), nil
}

// sortSingle is an iterative post-order DFS from fetch.
//
// marks holds the stack depths of tensors whose inputs have been pushed; a
// tensor at the top of the stack whose depth matches the last mark has all
// its inputs emitted and is emitted itself. Consumer sets are updated on every
// expansion, including inputs that are already visited.
func sortSingle(fetch *graph.SymbolicTensor, feed *FeedDict) ([]*graph.SymbolicTensor, RecipientMap, error) {
	visited := make(map[string]bool)
	if feed != nil {
		for _, name := range feed.Names() {
			visited[name] = true
		}
	}

	var sorted []*graph.SymbolicTensor
	recipients := make(RecipientMap)
	stack := []*graph.SymbolicTensor{fetch}
	var marks []int
	expanding := make(map[string]bool) // marked and not yet emitted

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if visited[top.Name] {
			stack = stack[:len(stack)-1]
			continue
		}

		topIsMarked := len(marks) > 0 && marks[len(marks)-1] == len(stack)-1
		if len(top.Inputs()) == 0 || topIsMarked {
			stack = stack[:len(stack)-1]
			sorted = append(sorted, top)
			visited[top.Name] = true
			if topIsMarked {
				marks = marks[:len(marks)-1]
				delete(expanding, top.Name)
			}
			continue
		}

		if expanding[top.Name] {
			return nil, nil, newError(ErrCodeCycleDetected, "cycle: %s", cyclePath(stack, marks, top))
		}
		marks = append(marks, len(stack)-1)
		expanding[top.Name] = true
		for _, in := range top.Inputs() {
			recipients.add(in.Name, top.Name)
			if visited[in.Name] {
				continue
			}
			stack = append(stack, in)
		}
	}
	return sorted, recipients, nil
}

// cyclePath renders the chain of expanding tensors from the first occurrence
// of top back to top.
func cyclePath(stack []*graph.SymbolicTensor, marks []int, top *graph.SymbolicTensor) string {
	var path []string
	for _, m := range marks {
		name := stack[m].Name
		if len(path) == 0 && name != top.Name {
			continue
		}
		path = append(path, name)
	}
	path = append(path, top.Name)
	return strings.Join(path, " <- ")
}
