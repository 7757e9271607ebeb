package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	name string
	deps []string
}

func (n testNode) GetName() string           { return n.name }
func (n testNode) GetDependencies() []string { return n.deps }

func nodes(list ...testNode) map[string]Node {
	m := make(map[string]Node, len(list))
	for _, n := range list {
		m[n.name] = n
	}
	return m
}

func TestTopologicalSort(t *testing.T) {
	order, err := TopologicalSort(nodes(
		testNode{name: "publisher", deps: []string{"platform", "storage"}},
		testNode{name: "storage"},
		testNode{name: "platform"},
		testNode{name: "fonts"},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"fonts", "platform", "storage", "publisher"}, order)
}

func TestTopologicalSortCycle(t *testing.T) {
	_, err := TopologicalSort(nodes(
		testNode{name: "a", deps: []string{"b"}},
		testNode{name: "b", deps: []string{"a"}},
	))
	assert.ErrorContains(t, err, "cycle")
}

func TestValidateGraph(t *testing.T) {
	err := ValidateGraph(nodes(testNode{name: "a", deps: []string{"missing"}}))
	assert.ErrorContains(t, err, "missing")

	assert.NoError(t, ValidateGraph(nodes(testNode{name: "a"})))
}
