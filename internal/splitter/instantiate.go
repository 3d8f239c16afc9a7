package splitter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vitebski/sql-tgd-miner/internal/mapper"
	"github.com/vitebski/sql-tgd-miner/internal/search"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// Instantiate renders a validated split as a formal rule expression:
//
//	body_atom ∧ body_atom ∧ ... → head_atom
//
// with atoms of the form table@occ(column=variable, ...). Variables come
// from the mapper's per-chain unification, so two occurrences joined by a
// chain edge share one variable. The rendering is deterministic for
// identical chain, split and mapper inputs.
func Instantiate(chain *search.Chain, split Split, m *mapper.AttributeMapper) string {
	assignment := m.Unify(chain.Attributes(), chain.Conditions())

	attrsByOcc := make(map[models.TableOccurrence][]models.IndexedAttribute)
	for _, ia := range chain.Attributes() {
		occ := ia.TableOccurrence()
		attrsByOcc[occ] = append(attrsByOcc[occ], ia)
	}

	body := make([]models.TableOccurrence, len(split.Body))
	copy(body, split.Body)
	sort.Slice(body, func(i, j int) bool {
		if body[i].Table != body[j].Table {
			return body[i].Table < body[j].Table
		}
		return body[i].Occurrence < body[j].Occurrence
	})

	var bodyAtoms []string
	for _, occ := range body {
		bodyAtoms = append(bodyAtoms, renderAtom(occ, attrsByOcc[occ], assignment))
	}

	headAtom := renderAtom(split.Head, attrsByOcc[split.Head], assignment)

	return strings.Join(bodyAtoms, " ∧ ") + " → " + headAtom
}

// renderAtom renders one table occurrence with its join-participating
// columns, sorted by column name
func renderAtom(occ models.TableOccurrence, attrs []models.IndexedAttribute, assignment *mapper.VariableAssignment) string {
	sorted := make([]models.IndexedAttribute, len(attrs))
	copy(sorted, attrs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Column < sorted[j].Column })

	var terms []string
	for _, ia := range sorted {
		if v, ok := assignment.Variable(ia); ok {
			terms = append(terms, fmt.Sprintf("%s=%s", ia.Column, v))
		}
	}

	return fmt.Sprintf("%s(%s)", occ, strings.Join(terms, ", "))
}
