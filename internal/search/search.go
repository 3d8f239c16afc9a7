package search

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sql-tgd-miner/internal/cgraph"
	"github.com/vitebski/sql-tgd-miner/internal/inspector"
	"github.com/vitebski/sql-tgd-miner/internal/mapper"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// PruningFunc decides whether a chain is worth keeping. Returning an error
// discards the branch without aborting the search.
type PruningFunc func(chain *Chain) (bool, error)

// CardinalityPruning builds the standard antimonotone pruning function:
// a chain survives only while its exact join row count reaches the
// occurrence threshold. Extending a chain adds join predicates and can
// only shrink that count, so a failing chain never needs its extensions
// explored.
func CardinalityPruning(insp inspector.DataInspector, nbOccurrence int64) PruningFunc {
	return func(chain *Chain) (bool, error) {
		count, err := insp.ThresholdCheck(chain.Occurrences(), chain.Conditions(), false, false, nbOccurrence)
		if err != nil {
			return false, err
		}
		return count >= nbOccurrence, nil
	}
}

// Engine performs the depth-first candidate search over a constraint
// graph. It is single-threaded; each branch holds only its own chain and
// all oracle calls happen from the caller's goroutine.
type Engine struct {
	Graph    *cgraph.ConstraintGraph
	Pruning  PruningFunc
	Mapper   *mapper.AttributeMapper
	MaxTable int
	MaxVars  int
	Logger   *logrus.Logger
}

// NewEngine creates a search engine
func NewEngine(graph *cgraph.ConstraintGraph, pruning PruningFunc, m *mapper.AttributeMapper, maxTable, maxVars int, logger *logrus.Logger) *Engine {
	return &Engine{
		Graph:    graph,
		Pruning:  pruning,
		Mapper:   m,
		MaxTable: maxTable,
		MaxVars:  maxVars,
		Logger:   logger,
	}
}

// Chains returns a pull-based iterator over every chain the depth-first
// traversal reaches. Every reached chain is yielded, not only maximal
// ones; the consumer may stop between yields at any time.
func (e *Engine) Chains() *ChainIterator {
	it := &ChainIterator{
		engine:  e,
		visited: make(map[string]bool),
	}

	seeds := e.Graph.Seeds()
	// Push in reverse so the smallest seed is explored first
	for i := len(seeds) - 1; i >= 0; i-- {
		chain := NewChain(seeds[i])
		it.visited[chain.Signature()] = true
		it.stack = append(it.stack, chain)
	}

	return it
}

// ChainIterator walks the candidate chains one Next call at a time
type ChainIterator struct {
	engine  *Engine
	stack   []*Chain
	visited map[string]bool
	current *Chain
}

// Next advances to the next chain. It returns false when the search space
// is exhausted.
func (it *ChainIterator) Next() bool {
	if len(it.stack) == 0 {
		it.current = nil
		return false
	}

	chain := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]

	extensions := it.engine.extend(chain, it.visited)
	for i := len(extensions) - 1; i >= 0; i-- {
		it.stack = append(it.stack, extensions[i])
	}

	it.current = chain
	return true
}

// Chain returns the chain yielded by the last successful Next call
func (it *ChainIterator) Chain() *Chain {
	return it.current
}

// extend computes the accepted one-edge extensions of a chain, in
// deterministic edge order
func (e *Engine) extend(chain *Chain, visited map[string]bool) []*Chain {
	var extensions []*Chain

	for _, idx := range e.candidateEdges(chain) {
		edge := e.Graph.Edges[idx]
		if chain.HasEdge(edge.Key()) {
			continue
		}
		if !e.admissible(chain, edge) {
			continue
		}

		next := chain.Extend(edge)

		if next.Size() > e.MaxTable {
			continue
		}
		assignment := e.Mapper.Unify(next.Attributes(), next.Conditions())
		if assignment.VariableCount() > e.MaxVars {
			continue
		}

		sig := next.Signature()
		if visited[sig] {
			continue
		}

		keep, err := e.Pruning(next)
		if err != nil {
			// A data-access failure discards this branch only; the rest of
			// the search continues
			e.Logger.Debugf("Pruning branch after oracle failure on %s: %v", next, err)
			continue
		}
		if !keep {
			continue
		}

		visited[sig] = true
		extensions = append(extensions, next)
	}

	return extensions
}

// candidateEdges returns the sorted indices of graph edges incident to any
// of the chain's occurrences
func (e *Engine) candidateEdges(chain *Chain) []int {
	seen := make(map[int]bool)
	var indices []int

	for _, occ := range chain.Occurrences() {
		for _, idx := range e.Graph.EdgesAt(occ) {
			if !seen[idx] {
				seen[idx] = true
				indices = append(indices, idx)
			}
		}
	}

	sort.Ints(indices)
	return indices
}

// admissible checks that an edge attaches to the chain and keeps table
// occurrence indices contiguous: occurrence k of a table may only enter a
// chain that already carries occurrence k-1. That canonicalizes chains
// that differ only by occurrence renumbering.
func (e *Engine) admissible(chain *Chain, edge cgraph.Edge) bool {
	occs := edge.Occurrences()

	connected := chain.HasOccurrence(occs[0]) || chain.HasOccurrence(occs[1])
	if !connected {
		return false
	}

	for _, occ := range occs {
		if chain.HasOccurrence(occ) {
			continue
		}
		if occ.Occurrence > 0 {
			prev := models.TableOccurrence{Table: occ.Table, Occurrence: occ.Occurrence - 1}
			if !chain.HasOccurrence(prev) {
				return false
			}
		}
	}

	return true
}
