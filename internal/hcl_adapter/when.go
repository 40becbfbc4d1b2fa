package hcl_adapter

import "github.com/vk/pipegrid/internal/predicate"

// whenBlock decodes a `when` condition block. Conditions written side by
// side in one block are a conjunction; `any`, `all` and `not` blocks nest
// arbitrarily.
type whenBlock struct {
	Event          *string                `hcl:"event,optional"`
	Branch         *string                `hcl:"branch,optional"`
	MatrixContains []*matrixContainsBlock `hcl:"matrix_contains,block"`
	Params         []*paramBlock          `hcl:"param,block"`
	All            []*whenBlock           `hcl:"all,block"`
	Any            []*whenBlock           `hcl:"any,block"`
	Not            []*whenBlock           `hcl:"not,block"`
}

type matrixContainsBlock struct {
	Axis  string `hcl:"axis"`
	Value string `hcl:"value"`
}

type paramBlock struct {
	Key   string `hcl:"key"`
	Value string `hcl:"value"`
}

// translateWhen builds the predicate tree for a when block. A nil block
// yields a nil predicate, i.e. always run.
func translateWhen(block *whenBlock) predicate.Node {
	if block == nil {
		return nil
	}
	return conjunction(block)
}

// conjunction folds a block's conditions into a single node.
func conjunction(block *whenBlock) predicate.Node {
	nodes := nodesOf(block)
	switch len(nodes) {
	case 0:
		return predicate.All(nil)
	case 1:
		return nodes[0]
	default:
		return predicate.All(nodes)
	}
}

// nodesOf lists a block's conditions as individual predicate nodes.
func nodesOf(block *whenBlock) []predicate.Node {
	var nodes []predicate.Node
	if block.Event != nil {
		nodes = append(nodes, predicate.Event(*block.Event))
	}
	if block.Branch != nil {
		nodes = append(nodes, predicate.Branch(*block.Branch))
	}
	for _, mc := range block.MatrixContains {
		nodes = append(nodes, predicate.MatrixContains{Axis: mc.Axis, Substr: mc.Value})
	}
	for _, p := range block.Params {
		nodes = append(nodes, predicate.ParamEquals{Key: p.Key, Value: p.Value})
	}
	for _, child := range block.All {
		nodes = append(nodes, conjunction(child))
	}
	for _, child := range block.Any {
		nodes = append(nodes, predicate.Any(nodesOf(child)))
	}
	for _, child := range block.Not {
		nodes = append(nodes, predicate.Not{X: conjunction(child)})
	}
	return nodes
}
