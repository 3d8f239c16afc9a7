package splitter

import (
	"github.com/vitebski/sql-tgd-miner/internal/mapper"
	"github.com/vitebski/sql-tgd-miner/internal/search"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// Split designates one of a chain's atoms as rule head and the rest as
// rule body
type Split struct {
	Body []models.TableOccurrence
	Head models.TableOccurrence
}

// SplitCandidateRule enumerates every safe body/head split of a chain.
// Each table occurrence takes a turn as the head; a split is safe when
// every variable of the head atom also occurs in some body atom. Chains
// with fewer than two occurrences yield no splits.
func SplitCandidateRule(chain *search.Chain, m *mapper.AttributeMapper) []Split {
	occurrences := chain.Occurrences()
	if len(occurrences) < 2 {
		return nil
	}

	assignment := m.Unify(chain.Attributes(), chain.Conditions())
	attrs := chain.Attributes()

	var splits []Split
	for _, head := range occurrences {
		var body []models.TableOccurrence
		for _, occ := range occurrences {
			if occ != head {
				body = append(body, occ)
			}
		}

		if !safeSplit(attrs, assignment, body, head) {
			continue
		}

		splits = append(splits, Split{Body: body, Head: head})
	}

	return splits
}

// safeSplit checks that the head atom's variable set is a subset of the
// body atoms' variable set
func safeSplit(attrs []models.IndexedAttribute, assignment *mapper.VariableAssignment, body []models.TableOccurrence, head models.TableOccurrence) bool {
	bodySet := make(map[models.TableOccurrence]bool, len(body))
	for _, occ := range body {
		bodySet[occ] = true
	}

	bodyVars := make(map[string]bool)
	var headVars []string

	for _, ia := range attrs {
		v, ok := assignment.Variable(ia)
		if !ok {
			continue
		}
		if bodySet[ia.TableOccurrence()] {
			bodyVars[v] = true
		}
		if ia.TableOccurrence() == head {
			headVars = append(headVars, v)
		}
	}

	for _, v := range headVars {
		if !bodyVars[v] {
			return false
		}
	}
	return len(headVars) > 0
}
