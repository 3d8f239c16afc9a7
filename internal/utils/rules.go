package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// atomPattern matches one rendered atom: table@occ(column=variable, ...)
var atomPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*@\d+\([^()]*\)$`)

// ParseTGD turns an engine expression string plus its metrics into a rule
// record. The expression must be of the form "body ∧ ... → head".
func ParseTGD(expression string, support int64, confidence float64) (models.TGDRule, error) {
	parts := strings.Split(expression, " → ")
	if len(parts) != 2 {
		return models.TGDRule{}, fmt.Errorf("malformed rule expression: %q", expression)
	}

	body := strings.TrimSpace(parts[0])
	head := strings.TrimSpace(parts[1])
	if body == "" || head == "" {
		return models.TGDRule{}, fmt.Errorf("malformed rule expression: %q", expression)
	}

	if !atomPattern.MatchString(head) {
		return models.TGDRule{}, fmt.Errorf("malformed head atom: %q", head)
	}
	for _, atom := range strings.Split(body, " ∧ ") {
		if !atomPattern.MatchString(strings.TrimSpace(atom)) {
			return models.TGDRule{}, fmt.Errorf("malformed body atom: %q", atom)
		}
	}

	return models.TGDRule{
		Display:    expression,
		Body:       body,
		Head:       head,
		Support:    support,
		Confidence: confidence,
	}, nil
}

// NewDiscoveryResult creates a result record for one run with a fresh
// run id
func NewDiscoveryResult(database string, nbOccurrence, maxTable, maxVars int, rules []models.TGDRule) *models.DiscoveryResult {
	return &models.DiscoveryResult{
		RunID:        uuid.NewString(),
		Database:     database,
		NbOccurrence: nbOccurrence,
		MaxTable:     maxTable,
		MaxVars:      maxVars,
		Rules:        rules,
	}
}

// SaveResultJSON writes the discovery result to
// <outputDir>/tgd_rules_<database>.json and returns the file path
func SaveResultJSON(result *models.DiscoveryResult, outputDir string, logger *logrus.Logger) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	name := strings.TrimSuffix(filepath.Base(result.Database), filepath.Ext(result.Database))
	if name == "" {
		name = "database"
	}
	path := filepath.Join(outputDir, fmt.Sprintf("tgd_rules_%s.json", name))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	logger.Infof("Saved %d rules to %s", len(result.Rules), path)
	return path, nil
}
