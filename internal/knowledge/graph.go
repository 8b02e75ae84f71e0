// Package knowledge holds the read-only prerequisite topology over
// concepts: units contain topics, topics contain concepts, and concepts
// may require other concepts. The engine only queries the graph; it is
// loaded once per subject and never mutated during a session.
package knowledge

import "sort"

// ReadinessThreshold is the mastery a prerequisite must exceed before
// the concepts behind it unlock.
const ReadinessThreshold = 0.6

// Concept is one node of the prerequisite graph.
type Concept struct {
	Name          string
	Topic         string
	Prerequisites []string
}

// Topic groups concepts in presentation order.
type Topic struct {
	Name     string
	Unit     string
	Concepts []string
}

// Graph answers "which concepts can be attempted now". It holds no
// mutable learner state.
type Graph struct {
	topics   map[string]Topic
	concepts map[string]Concept
}

// NewGraph builds a graph from topology rows. Later duplicates win,
// matching how re-imports overwrite earlier definitions.
func NewGraph(topics []Topic, concepts []Concept) *Graph {
	g := &Graph{
		topics:   make(map[string]Topic, len(topics)),
		concepts: make(map[string]Concept, len(concepts)),
	}
	for _, t := range topics {
		g.topics[t.Name] = t
	}
	for _, c := range concepts {
		g.concepts[c.Name] = c
	}
	return g
}

// ConceptsForTopic returns the topic's concepts in presentation order,
// or nil when the topic is unknown.
func (g *Graph) ConceptsForTopic(topic string) []string {
	t, ok := g.topics[topic]
	if !ok {
		return nil
	}
	out := make([]string, len(t.Concepts))
	copy(out, t.Concepts)
	return out
}

// Prerequisites returns the prerequisite concepts of the given concept.
func (g *Graph) Prerequisites(concept string) []string {
	c, ok := g.concepts[concept]
	if !ok {
		return nil
	}
	out := make([]string, len(c.Prerequisites))
	copy(out, c.Prerequisites)
	return out
}

// Known reports whether the concept exists in the topology.
func (g *Graph) Known(concept string) bool {
	_, ok := g.concepts[concept]
	return ok
}

// ReadyConcepts returns the set of candidates that can be attempted now:
// a concept is ready when it has no prerequisites or every prerequisite's
// mastery in masteryMap exceeds the readiness threshold. Concepts absent
// from the topology are treated as prerequisite-free (content can exist
// ahead of curriculum).
func (g *Graph) ReadyConcepts(candidates []string, masteryMap map[string]float64) map[string]bool {
	ready := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		c, ok := g.concepts[name]
		if !ok || len(c.Prerequisites) == 0 {
			ready[name] = true
			continue
		}
		ok = true
		for _, pre := range c.Prerequisites {
			if masteryMap[pre] <= ReadinessThreshold {
				ok = false
				break
			}
		}
		if ok {
			ready[name] = true
		}
	}
	return ready
}

// Topics returns all topic names, sorted for stable iteration.
func (g *Graph) Topics() []string {
	names := make([]string, 0, len(g.topics))
	for name := range g.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
