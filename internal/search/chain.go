package search

import (
	"sort"
	"strings"

	"github.com/vitebski/sql-tgd-miner/internal/cgraph"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// Chain is one explored path through the constraint graph: an ordered
// sequence of join edges and the table occurrences they connect. A chain
// is append-only during search and frozen once yielded; Extend returns a
// new chain instead of mutating the receiver.
type Chain struct {
	edges       []cgraph.Edge
	occurrences []models.TableOccurrence
	occSet      map[models.TableOccurrence]bool
	edgeKeys    map[string]bool
}

// NewChain creates a depth-1 chain from a seed edge
func NewChain(seed cgraph.Edge) *Chain {
	c := &Chain{
		occSet:   make(map[models.TableOccurrence]bool),
		edgeKeys: make(map[string]bool),
	}
	c.append(seed)
	return c
}

func (c *Chain) append(e cgraph.Edge) {
	c.edges = append(c.edges, e)
	c.edgeKeys[e.Key()] = true
	for _, occ := range e.Occurrences() {
		if !c.occSet[occ] {
			c.occSet[occ] = true
			c.occurrences = append(c.occurrences, occ)
		}
	}
}

// Extend returns a copy of the chain with one more edge appended
func (c *Chain) Extend(e cgraph.Edge) *Chain {
	next := &Chain{
		edges:       make([]cgraph.Edge, len(c.edges), len(c.edges)+1),
		occurrences: make([]models.TableOccurrence, len(c.occurrences), len(c.occurrences)+2),
		occSet:      make(map[models.TableOccurrence]bool, len(c.occSet)+2),
		edgeKeys:    make(map[string]bool, len(c.edgeKeys)+1),
	}
	copy(next.edges, c.edges)
	copy(next.occurrences, c.occurrences)
	for occ := range c.occSet {
		next.occSet[occ] = true
	}
	for key := range c.edgeKeys {
		next.edgeKeys[key] = true
	}

	next.append(e)
	return next
}

// Edges returns the chain's edges in append order
func (c *Chain) Edges() []cgraph.Edge {
	return c.edges
}

// Occurrences returns the chain's distinct table occurrences in the order
// they first appeared
func (c *Chain) Occurrences() []models.TableOccurrence {
	return c.occurrences
}

// Size returns the number of distinct table occurrences in the chain
func (c *Chain) Size() int {
	return len(c.occurrences)
}

// HasOccurrence reports whether the chain already uses a table occurrence
func (c *Chain) HasOccurrence(occ models.TableOccurrence) bool {
	return c.occSet[occ]
}

// HasEdge reports whether the chain already uses an edge
func (c *Chain) HasEdge(key string) bool {
	return c.edgeKeys[key]
}

// Conditions returns the chain's edges as join conditions
func (c *Chain) Conditions() []models.JoinCondition {
	conditions := make([]models.JoinCondition, 0, len(c.edges))
	for _, e := range c.edges {
		conditions = append(conditions, e.Condition())
	}
	return conditions
}

// Attributes returns every indexed attribute appearing in the chain's edges
func (c *Chain) Attributes() []models.IndexedAttribute {
	seen := make(map[models.IndexedAttribute]bool)
	var attrs []models.IndexedAttribute
	for _, e := range c.edges {
		for _, ia := range []models.IndexedAttribute{e.Left, e.Right} {
			if !seen[ia] {
				seen[ia] = true
				attrs = append(attrs, ia)
			}
		}
	}
	return attrs
}

// Signature returns an order-independent identity for the chain's edge
// set, used to skip re-exploring the same set reached along another path
func (c *Chain) Signature() string {
	keys := make([]string, 0, len(c.edges))
	for _, e := range c.edges {
		keys = append(keys, e.Key())
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// String renders the chain's conditions for logging
func (c *Chain) String() string {
	keys := make([]string, 0, len(c.edges))
	for _, e := range c.edges {
		keys = append(keys, e.Key())
	}
	return strings.Join(keys, " ")
}
