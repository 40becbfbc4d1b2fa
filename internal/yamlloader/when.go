package yamlloader

import "github.com/vk/pipegrid/internal/predicate"

// whenDoc mirrors hcl_adapter's when block in YAML form: sibling keys are
// a conjunction, `any`, `all` and `not` nest.
type whenDoc struct {
	Event          string               `yaml:"event"`
	Branch         string               `yaml:"branch"`
	MatrixContains []*matrixContainsDoc `yaml:"matrix-contains"`
	Params         []*paramDoc          `yaml:"param"`
	All            []*whenDoc           `yaml:"all"`
	Any            []*whenDoc           `yaml:"any"`
	Not            *whenDoc             `yaml:"not"`
}

type matrixContainsDoc struct {
	Axis  string `yaml:"axis"`
	Value string `yaml:"value"`
}

type paramDoc struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// translateWhen builds the predicate tree. A nil doc yields a nil
// predicate, i.e. always run.
func translateWhen(doc *whenDoc) predicate.Node {
	if doc == nil {
		return nil
	}
	return conjunction(doc)
}

func conjunction(doc *whenDoc) predicate.Node {
	nodes := nodesOf(doc)
	switch len(nodes) {
	case 0:
		return predicate.All(nil)
	case 1:
		return nodes[0]
	default:
		return predicate.All(nodes)
	}
}

func nodesOf(doc *whenDoc) []predicate.Node {
	var nodes []predicate.Node
	if doc.Event != "" {
		nodes = append(nodes, predicate.Event(doc.Event))
	}
	if doc.Branch != "" {
		nodes = append(nodes, predicate.Branch(doc.Branch))
	}
	for _, mc := range doc.MatrixContains {
		nodes = append(nodes, predicate.MatrixContains{Axis: mc.Axis, Substr: mc.Value})
	}
	for _, p := range doc.Params {
		nodes = append(nodes, predicate.ParamEquals{Key: p.Key, Value: p.Value})
	}
	for _, child := range doc.All {
		nodes = append(nodes, conjunction(child))
	}
	for _, child := range doc.Any {
		nodes = append(nodes, predicate.Any(nodesOf(child)))
	}
	if doc.Not != nil {
		nodes = append(nodes, predicate.Not{X: conjunction(doc.Not)})
	}
	return nodes
}
