package mapper

import (
	"fmt"
	"sort"

	"github.com/yourbasic/graph"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// AttributeMapper is a bidirectional registry from attributes to variable
// symbols. One instance belongs to one discovery run; the same attribute
// always resolves to the same symbol within a run.
type AttributeMapper struct {
	symbols    map[models.Attribute]string
	attributes map[string]models.Attribute
	next       int
}

// NewAttributeMapper creates an empty mapper
func NewAttributeMapper() *AttributeMapper {
	return &AttributeMapper{
		symbols:    make(map[models.Attribute]string),
		attributes: make(map[string]models.Attribute),
	}
}

// Register assigns a variable symbol to an attribute. Registering the same
// attribute again returns the previously assigned symbol.
func (m *AttributeMapper) Register(attr models.Attribute) string {
	if symbol, ok := m.symbols[attr]; ok {
		return symbol
	}

	symbol := fmt.Sprintf("v%d", m.next)
	m.next++
	m.symbols[attr] = symbol
	m.attributes[symbol] = attr
	return symbol
}

// Symbol returns the symbol registered for an attribute, if any
func (m *AttributeMapper) Symbol(attr models.Attribute) (string, bool) {
	symbol, ok := m.symbols[attr]
	return symbol, ok
}

// AttributeFor returns the attribute registered under a symbol, if any
func (m *AttributeMapper) AttributeFor(symbol string) (models.Attribute, bool) {
	attr, ok := m.attributes[symbol]
	return attr, ok
}

// VariableAssignment maps each indexed attribute of one chain to its
// unified variable name
type VariableAssignment struct {
	variables map[models.IndexedAttribute]string
	count     int
}

// Variable returns the variable assigned to an indexed attribute
func (va *VariableAssignment) Variable(ia models.IndexedAttribute) (string, bool) {
	v, ok := va.variables[ia]
	return v, ok
}

// VariableCount returns the number of distinct variables in the assignment
func (va *VariableAssignment) VariableCount() int {
	return va.count
}

// Unify assigns one variable per connected component of the chain's
// indexed attributes, where two attributes are connected when a chain edge
// joins them. Attributes not joined by any edge keep a private variable,
// even when they share table and column with another occurrence.
func (m *AttributeMapper) Unify(attrs []models.IndexedAttribute, conditions []models.JoinCondition) *VariableAssignment {
	unique := dedupeAttributes(attrs, conditions)

	index := make(map[models.IndexedAttribute]int, len(unique))
	for i, ia := range unique {
		index[ia] = i
	}

	g := graph.New(len(unique))
	for _, cond := range conditions {
		li, lok := index[cond.Left]
		ri, rok := index[cond.Right]
		if lok && rok && li != ri {
			g.AddBoth(li, ri)
		}
	}

	va := &VariableAssignment{variables: make(map[models.IndexedAttribute]string, len(unique))}

	for _, component := range graph.Components(g) {
		// Canonical member is the smallest attribute of the component, which
		// keeps variable names stable across identical chains
		canonical := unique[component[0]]
		for _, v := range component[1:] {
			if unique[v].Less(canonical) {
				canonical = unique[v]
			}
		}

		name := m.Register(canonical.Attribute())
		if canonical.Occurrence > 0 {
			name = fmt.Sprintf("%s_%d", name, canonical.Occurrence)
		}

		for _, v := range component {
			va.variables[unique[v]] = name
		}
		va.count++
	}

	return va
}

// dedupeAttributes merges the explicit attribute list with every condition
// endpoint and returns them sorted without duplicates
func dedupeAttributes(attrs []models.IndexedAttribute, conditions []models.JoinCondition) []models.IndexedAttribute {
	seen := make(map[models.IndexedAttribute]bool)
	var unique []models.IndexedAttribute

	add := func(ia models.IndexedAttribute) {
		if !seen[ia] {
			seen[ia] = true
			unique = append(unique, ia)
		}
	}

	for _, ia := range attrs {
		add(ia)
	}
	for _, cond := range conditions {
		add(cond.Left)
		add(cond.Right)
	}

	sort.Slice(unique, func(i, j int) bool { return unique[i].Less(unique[j]) })
	return unique
}
