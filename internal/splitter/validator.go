package splitter

import (
	"github.com/sirupsen/logrus"
	"github.com/vitebski/sql-tgd-miner/internal/inspector"
	"github.com/vitebski/sql-tgd-miner/internal/search"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// Validator computes the data-level support and confidence of a split.
// This is the expensive tier of the pruning discipline and runs only on
// candidates that survived the structural and cardinality pruning of graph
// construction and search.
type Validator struct {
	Inspector    inspector.DataInspector
	NbOccurrence int64
	Disjoint     bool
	Distinct     bool
	Logger       *logrus.Logger
}

// NewValidator creates a validator with the run's counting semantics flags
func NewValidator(insp inspector.DataInspector, nbOccurrence int64, disjoint, distinct bool, logger *logrus.Logger) *Validator {
	return &Validator{
		Inspector:    insp,
		NbOccurrence: nbOccurrence,
		Disjoint:     disjoint,
		Distinct:     distinct,
		Logger:       logger,
	}
}

// ValidateSplit measures a split against the data. Support is the number
// of tuple combinations satisfying the body's join predicates; confidence
// is the fraction of those combinations for which the head also holds (0
// when support is 0, which prior pruning should prevent). The split is
// accepted iff support reaches the occurrence threshold. An oracle error
// rejects the candidate and is reported for branch-local handling.
func (v *Validator) ValidateSplit(chain *search.Chain, split Split) (bool, int64, float64, error) {
	bodySet := make(map[models.TableOccurrence]bool, len(split.Body))
	for _, occ := range split.Body {
		bodySet[occ] = true
	}

	var bodyConditions []models.JoinCondition
	for _, cond := range chain.Conditions() {
		if bodySet[cond.Left.TableOccurrence()] && bodySet[cond.Right.TableOccurrence()] {
			bodyConditions = append(bodyConditions, cond)
		}
	}

	support, err := v.Inspector.JoinRowCount(split.Body, bodyConditions, v.Disjoint, v.Distinct)
	if err != nil {
		return false, 0, 0, err
	}

	if support < v.NbOccurrence {
		return false, support, 0, nil
	}

	// The full condition set references the head occurrence, which the
	// oracle treats existentially: each body combination counts once no
	// matter how many head rows it matches, keeping confidence within [0,1]
	supported, err := v.Inspector.JoinRowCount(split.Body, chain.Conditions(), v.Disjoint, v.Distinct)
	if err != nil {
		return false, 0, 0, err
	}

	confidence := 0.0
	if support > 0 {
		confidence = float64(supported) / float64(support)
	}

	return true, support, confidence, nil
}
