package discovery

import (
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/sql-tgd-miner/internal/cgraph"
	"github.com/vitebski/sql-tgd-miner/internal/inspector"
	"github.com/vitebski/sql-tgd-miner/internal/mapper"
	"github.com/vitebski/sql-tgd-miner/internal/search"
	"github.com/vitebski/sql-tgd-miner/internal/splitter"
)

// RuleMiner produces a stream of validated rules for a configuration and
// a data-access oracle
type RuleMiner interface {
	DiscoverRules() (*RuleStream, error)
}

// DiscoveredRule is one accepted rule as emitted by the engine: the
// rendered expression plus its two metrics. An external rule-record
// factory turns it into a display or storage form.
type DiscoveredRule struct {
	Expression string
	Support    int64
	Confidence float64
}

// Discoverer is the TGD discovery engine. All state lives on the instance;
// independent runs use independent instances.
type Discoverer struct {
	Inspector inspector.DataInspector
	Config    Config
	Logger    *logrus.Logger
}

// NewDiscoverer creates a discoverer for one oracle and configuration
func NewDiscoverer(insp inspector.DataInspector, cfg Config, logger *logrus.Logger) *Discoverer {
	return &Discoverer{
		Inspector: insp,
		Config:    cfg,
		Logger:    logger,
	}
}

// DiscoverRules validates the configuration, builds the constraint graph
// and returns a pull-based stream of validated rules. An empty graph is a
// normal outcome: the stream simply yields nothing.
func (d *Discoverer) DiscoverRules() (*RuleStream, error) {
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}

	m := mapper.NewAttributeMapper()

	builder := cgraph.NewBuilder(d.Inspector, int64(d.Config.NbOccurrence), d.Config.MaxTable, d.Logger)
	cg, err := builder.Build()
	if err != nil {
		return nil, &SchemaAccessError{Err: err}
	}

	if len(cg.Edges) == 0 {
		d.Logger.Info("No joinable attribute pairs survived pruning, no rules possible")
	}

	pruning := search.CardinalityPruning(d.Inspector, int64(d.Config.NbOccurrence))
	engine := search.NewEngine(cg, pruning, m, d.Config.MaxTable, d.Config.MaxVars, d.Logger)

	validator := splitter.NewValidator(
		d.Inspector,
		int64(d.Config.NbOccurrence),
		d.Config.DisjointSemantics,
		d.Config.DistinctCounts,
		d.Logger,
	)

	return &RuleStream{
		chains:    engine.Chains(),
		validator: validator,
		mapper:    m,
		logger:    d.Logger,
		emitted:   make(map[string]bool),
	}, nil
}

// RuleStream is a pull-based sequence of discovered rules. The consumer
// may stop between any two Next calls; no work happens beyond the rules
// actually pulled.
type RuleStream struct {
	chains    *search.ChainIterator
	validator *splitter.Validator
	mapper    *mapper.AttributeMapper
	logger    *logrus.Logger
	pending   []DiscoveredRule
	current   DiscoveredRule
	emitted   map[string]bool
	err       error
	closed    bool
}

// Next advances the stream to the next validated rule. It returns false
// when the search space is exhausted or the stream is closed.
func (s *RuleStream) Next() bool {
	for {
		if s.closed {
			return false
		}

		if len(s.pending) > 0 {
			s.current = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}

		if !s.chains.Next() {
			return false
		}

		chain := s.chains.Chain()
		for _, split := range splitter.SplitCandidateRule(chain, s.mapper) {
			accepted, support, confidence, err := s.validator.ValidateSplit(chain, split)
			if err != nil {
				if lostConnection(err) {
					// The database is gone; every remaining candidate would
					// fail the same way
					s.err = &DataAccessError{Err: err}
					s.closed = true
					return false
				}
				// Recoverable: this candidate is rejected, discovery goes on
				s.logger.Debugf("Rejecting candidate on %s: %v", chain, &DataAccessError{Err: err})
				continue
			}
			if !accepted {
				continue
			}

			expression := splitter.Instantiate(chain, split, s.mapper)
			if s.emitted[expression] {
				continue
			}
			s.emitted[expression] = true

			s.pending = append(s.pending, DiscoveredRule{
				Expression: expression,
				Support:    support,
				Confidence: confidence,
			})
		}
	}
}

// Rule returns the rule yielded by the last successful Next call
func (s *RuleStream) Rule() DiscoveredRule {
	return s.current
}

// Err returns the terminal error that ended the stream, if any; the only
// terminal condition is a lost database connection. Candidate and branch
// failures are recoverable and never surface here.
func (s *RuleStream) Err() error {
	return s.err
}

// lostConnection reports whether an oracle error means the database
// connection itself is gone rather than one query having failed
func lostConnection(err error) bool {
	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}

// Close stops the stream; subsequent Next calls return false
func (s *RuleStream) Close() {
	s.closed = true
}
