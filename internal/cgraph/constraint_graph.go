package cgraph

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sql-tgd-miner/internal/inspector"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// Edge is a pair of indexed attributes believed joinable, annotated with
// the cached join row count measured during graph construction
type Edge struct {
	Left        models.IndexedAttribute
	Right       models.IndexedAttribute
	ForeignKey  bool
	Cardinality int64
}

// Condition returns the edge as an equality join condition
func (e Edge) Condition() models.JoinCondition {
	return models.JoinCondition{Left: e.Left, Right: e.Right}.Canonical()
}

// Key returns a stable string identity for the edge
func (e Edge) Key() string {
	return e.Condition().Key()
}

// Occurrences returns the two table occurrences the edge connects
func (e Edge) Occurrences() [2]models.TableOccurrence {
	return [2]models.TableOccurrence{e.Left.TableOccurrence(), e.Right.TableOccurrence()}
}

// ConstraintGraph is the joinability graph of one discovery run. It is
// immutable after construction: every edge carries a join cardinality at
// least as large as the run's occurrence threshold.
type ConstraintGraph struct {
	Edges        []Edge
	byOccurrence map[models.TableOccurrence][]int
}

// EdgesAt returns the indices (into Edges) of all edges incident to the
// given table occurrence
func (cg *ConstraintGraph) EdgesAt(occ models.TableOccurrence) []int {
	return cg.byOccurrence[occ]
}

// Seeds returns the depth-1 candidate chains: one edge in its minimal
// occurrence form (occurrences 0 and, for self-joins, 1)
func (cg *ConstraintGraph) Seeds() []Edge {
	var seeds []Edge
	for _, e := range cg.Edges {
		if e.Left.Table == e.Right.Table {
			if e.Left.Occurrence == 0 && e.Right.Occurrence == 1 {
				seeds = append(seeds, e)
			}
		} else if e.Left.Occurrence == 0 && e.Right.Occurrence == 0 {
			seeds = append(seeds, e)
		}
	}
	return seeds
}

// Builder constructs the constraint graph for one discovery run
type Builder struct {
	Inspector        inspector.DataInspector
	NbOccurrence     int64
	OccurrenceBudget int
	Logger           *logrus.Logger
}

// NewBuilder creates a constraint graph builder. The occurrence budget
// bounds how many occurrences of one table can appear as graph nodes; a
// chain can never need more than its table cap.
func NewBuilder(insp inspector.DataInspector, nbOccurrence int64, occurrenceBudget int, logger *logrus.Logger) *Builder {
	return &Builder{
		Inspector:        insp,
		NbOccurrence:     nbOccurrence,
		OccurrenceBudget: occurrenceBudget,
		Logger:           logger,
	}
}

// joinablePair is a column pair that survived cardinality pruning and will
// be replicated across occurrence pairs
type joinablePair struct {
	left        models.Attribute
	right       models.Attribute
	foreignKey  bool
	cardinality int64
}

// Build enumerates candidate attribute pairs, measures their join row
// counts and keeps only pairs meeting the occurrence threshold. An empty
// edge set is a normal outcome meaning no rules are possible.
func (b *Builder) Build() (*ConstraintGraph, error) {
	tables, err := b.Inspector.ListTables()
	if err != nil {
		return nil, err
	}

	pairs, err := b.collectJoinablePairs(tables)
	if err != nil {
		return nil, err
	}

	cg := &ConstraintGraph{byOccurrence: make(map[models.TableOccurrence][]int)}
	for _, pair := range pairs {
		cg.Edges = append(cg.Edges, b.replicate(pair)...)
	}

	sort.Slice(cg.Edges, func(i, j int) bool { return cg.Edges[i].Key() < cg.Edges[j].Key() })

	for i, e := range cg.Edges {
		occs := e.Occurrences()
		cg.byOccurrence[occs[0]] = append(cg.byOccurrence[occs[0]], i)
		if occs[1] != occs[0] {
			cg.byOccurrence[occs[1]] = append(cg.byOccurrence[occs[1]], i)
		}
	}

	b.Logger.Infof("Constraint graph built: %d joinable pairs, %d edges", len(pairs), len(cg.Edges))
	return cg, nil
}

// collectJoinablePairs finds all column pairs that are declared foreign
// keys or domain compatible, and prunes those whose join row count is
// below the occurrence threshold
func (b *Builder) collectJoinablePairs(tables []string) ([]joinablePair, error) {
	var pairs []joinablePair

	for i, t1 := range tables {
		cols1, err := b.Inspector.ListColumns(t1)
		if err != nil {
			return nil, err
		}

		for j := i; j < len(tables); j++ {
			t2 := tables[j]
			cols2, err := b.Inspector.ListColumns(t2)
			if err != nil {
				return nil, err
			}

			for _, c1 := range cols1 {
				for _, c2 := range cols2 {
					// Avoid double-counting symmetric pairs within one table
					if t1 == t2 && c1 > c2 {
						continue
					}

					fk, joinable, err := b.pairJoinable(t1, c1, t2, c2)
					if err != nil {
						return nil, err
					}
					if !joinable {
						continue
					}

					count, ok := b.measurePair(t1, c1, t2, c2)
					if !ok || count < b.NbOccurrence {
						continue
					}

					pairs = append(pairs, joinablePair{
						left:        models.Attribute{Table: t1, Column: c1},
						right:       models.Attribute{Table: t2, Column: c2},
						foreignKey:  fk,
						cardinality: count,
					})
				}
			}
		}
	}

	return pairs, nil
}

// pairJoinable decides whether two columns are candidates for a join edge:
// either a declared foreign key links them, or their domains are compatible
func (b *Builder) pairJoinable(t1, c1, t2, c2 string) (fk bool, joinable bool, err error) {
	fk, err = b.Inspector.IsForeignKey(t1, c1, t2, c2)
	if err != nil {
		return false, false, err
	}
	if fk {
		return true, true, nil
	}

	d1, err := b.Inspector.ColumnDomain(t1, c1)
	if err != nil {
		return false, false, err
	}
	d2, err := b.Inspector.ColumnDomain(t2, c2)
	if err != nil {
		return false, false, err
	}

	if d1 == models.DomainUnknown || d2 == models.DomainUnknown {
		return false, false, nil
	}
	return false, d1 == d2, nil
}

// measurePair queries the join row count of one column pair in its minimal
// occurrence form. A failing count query prunes the pair instead of
// aborting construction.
func (b *Builder) measurePair(t1, c1, t2, c2 string) (int64, bool) {
	occ2 := 0
	if t1 == t2 {
		occ2 = 1
	}

	left := models.IndexedAttribute{Table: t1, Occurrence: 0, Column: c1}
	right := models.IndexedAttribute{Table: t2, Occurrence: occ2, Column: c2}
	occurrences := []models.TableOccurrence{left.TableOccurrence(), right.TableOccurrence()}
	conditions := []models.JoinCondition{{Left: left, Right: right}}

	count, err := b.Inspector.JoinRowCount(occurrences, conditions, false, false)
	if err != nil {
		b.Logger.Debugf("Join count failed for %s.%s = %s.%s, pruning pair: %v", t1, c1, t2, c2, err)
		return 0, false
	}

	return count, true
}

// replicate materializes graph edges for a joinable pair across every
// occurrence combination within the budget. The cached cardinality is the
// same for every replica, so it is measured only once.
func (b *Builder) replicate(pair joinablePair) []Edge {
	var edges []Edge

	if pair.left.Table == pair.right.Table {
		for i := 0; i < b.OccurrenceBudget; i++ {
			for j := i + 1; j < b.OccurrenceBudget; j++ {
				edges = append(edges, Edge{
					Left:        models.IndexedAttribute{Table: pair.left.Table, Occurrence: i, Column: pair.left.Column},
					Right:       models.IndexedAttribute{Table: pair.right.Table, Occurrence: j, Column: pair.right.Column},
					ForeignKey:  pair.foreignKey,
					Cardinality: pair.cardinality,
				})
			}
		}
		return edges
	}

	for i := 0; i < b.OccurrenceBudget; i++ {
		for j := 0; j < b.OccurrenceBudget; j++ {
			edges = append(edges, Edge{
				Left:        models.IndexedAttribute{Table: pair.left.Table, Occurrence: i, Column: pair.left.Column},
				Right:       models.IndexedAttribute{Table: pair.right.Table, Occurrence: j, Column: pair.right.Column},
				ForeignKey:  pair.foreignKey,
				Cardinality: pair.cardinality,
			})
		}
	}

	return edges
}
