package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/sql-tgd-miner/internal/cgraph"
	"github.com/vitebski/sql-tgd-miner/internal/connector"
	"github.com/vitebski/sql-tgd-miner/internal/demo"
	"github.com/vitebski/sql-tgd-miner/internal/discovery"
	"github.com/vitebski/sql-tgd-miner/internal/inspector"
	"github.com/vitebski/sql-tgd-miner/internal/utils"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

func main() {
	var (
		driver        string
		host          string
		user          string
		password      string
		database      string
		port          string
		dbPath        string
		nbOccurrence  int
		maxTable      int
		maxVars       int
		maxRules      int
		envFile       string
		configFile    string
		logLevel      string
		outputDir     string
		graphOnly     bool
		createIndexes bool
		demoMode      bool
		noViolations  bool
	)

	rootCmd := &cobra.Command{
		Use:   "sql-tgd-miner",
		Short: "A tool to mine approximate tuple-generating dependencies from SQL databases",
		Long: `SQL TGD Miner

A Go tool that discovers approximate tuple-generating dependencies (TGDs)
from relational databases by analyzing foreign keys, joinable attributes
and data patterns, with support and confidence metrics per rule.`,
		Run: func(cmd *cobra.Command, args []string) {
			// Setup logging
			logger := utils.SetupLogging(logLevel)

			// Load environment variables
			utils.LoadEnvironmentVariables(envFile, logger)

			// Load optional YAML configuration
			fileConfig, err := utils.LoadConfigFile(configFile, logger)
			if err != nil {
				logger.Errorf("Failed to load configuration: %v", err)
				os.Exit(1)
			}

			if logLevel == "" && fileConfig.Logging.Level != "" {
				if level, err := logrus.ParseLevel(fileConfig.Logging.Level); err == nil {
					logger.SetLevel(level)
				}
			}

			// Flags override file values, file values override env defaults
			if driver == "" {
				driver = fileConfig.Database.Driver
			}
			if host == "" {
				host = fileConfig.Database.Host
			}
			if port == "" {
				port = fileConfig.Database.Port
			}
			if user == "" {
				user = fileConfig.Database.User
			}
			if password == "" {
				password = fileConfig.Database.Password
			}
			if database == "" {
				database = fileConfig.Database.Name
			}
			if dbPath == "" {
				dbPath = fileConfig.Database.Path
			}
			if outputDir == "" {
				outputDir = fileConfig.Results.OutputDir
				if outputDir == "" {
					outputDir = "results"
				}
			}
			if !cmd.Flags().Changed("nb-occurrence") && fileConfig.Algorithm.NbOccurrence > 0 {
				nbOccurrence = fileConfig.Algorithm.NbOccurrence
			}
			if !cmd.Flags().Changed("max-table") && fileConfig.Algorithm.MaxTable > 0 {
				maxTable = fileConfig.Algorithm.MaxTable
			}
			if !cmd.Flags().Changed("max-vars") && fileConfig.Algorithm.MaxVars > 0 {
				maxVars = fileConfig.Algorithm.MaxVars
			}

			// Demo mode: build the bundled university database and mine it
			// with thresholds sized for its small tables
			if demoMode {
				if dbPath == "" {
					dbPath = "data/university_demo.db"
				}
				driver = "sqlite3"
				if !cmd.Flags().Changed("nb-occurrence") {
					nbOccurrence = 2
				}
				if !cmd.Flags().Changed("max-table") {
					maxTable = 2
				}
				if err := demo.BuildUniversityDatabase(dbPath, !noViolations, logger); err != nil {
					logger.Errorf("Failed to create demo database: %v", err)
					os.Exit(1)
				}
			}

			if driver == "" {
				if dbPath != "" {
					driver = "sqlite3"
				} else {
					driver = "mysql"
				}
			}

			// Create database connector
			var db *connector.DatabaseConnector
			switch driver {
			case "mysql":
				db = connector.NewMySQLConnector(host, user, password, database, port, logger)
				if !utils.ValidateConnectionParams(db.Host, db.User, db.Password, db.Database, db.Port, logger) {
					os.Exit(1)
				}
			case "sqlite3":
				db = connector.NewSQLiteConnector(dbPath, logger)
			default:
				logger.Errorf("Unsupported driver: %s (expected mysql or sqlite3)", driver)
				os.Exit(1)
			}

			if err := db.Connect(); err != nil {
				logger.Errorf("Failed to connect to database: %v", err)
				os.Exit(1)
			}
			defer db.Disconnect()

			// Load schema metadata into the inspector
			insp := inspector.NewSQLInspector(db, logger)
			if err := insp.LoadSchema(); err != nil {
				logger.Errorf("Failed to load schema: %v", err)
				os.Exit(1)
			}

			if len(insp.Tables) == 0 {
				logger.Error("No tables found in database")
				os.Exit(1)
			}
			logger.Infof("Loaded schema: %d tables", len(insp.Tables))

			if createIndexes {
				if err := insp.CreateIndexes(); err != nil {
					logger.Warningf("Index creation failed, continuing without: %v", err)
				}
				if err := insp.CreateComposedIndexes(sameTablePairs(insp)); err != nil {
					logger.Warningf("Composed index creation failed, continuing without: %v", err)
				}
			}

			cfg := discovery.Config{
				NbOccurrence: nbOccurrence,
				MaxTable:     maxTable,
				MaxVars:      maxVars,
			}

			// Graph-only mode: build and report the constraint graph, skip
			// the search entirely
			if graphOnly {
				if err := cfg.Validate(); err != nil {
					logger.Errorf("%v", err)
					os.Exit(1)
				}
				builder := cgraph.NewBuilder(insp, int64(cfg.NbOccurrence), cfg.MaxTable, logger)
				cg, err := builder.Build()
				if err != nil {
					logger.Errorf("Failed to build constraint graph: %v", err)
					os.Exit(1)
				}
				printGraphReport(cg)
				return
			}

			// Run discovery
			miner := discovery.NewDiscoverer(insp, cfg, logger)
			stream, err := miner.DiscoverRules()
			if err != nil {
				logger.Errorf("Discovery failed: %v", err)
				os.Exit(1)
			}
			defer stream.Close()

			var rules []models.TGDRule
			for stream.Next() {
				discovered := stream.Rule()
				rule, err := utils.ParseTGD(discovered.Expression, discovered.Support, discovered.Confidence)
				if err != nil {
					logger.Warningf("Skipping unparseable rule: %v", err)
					continue
				}

				logger.Infof("Discovered rule: %s (support=%d, confidence=%.3f)",
					rule.Display, rule.Support, rule.Confidence)
				rules = append(rules, rule)

				if maxRules > 0 && len(rules) >= maxRules {
					logger.Infof("Reached rule limit (%d), stopping discovery", maxRules)
					stream.Close()
					break
				}
			}
			if err := stream.Err(); err != nil {
				logger.Errorf("Discovery aborted: %v", err)
				os.Exit(1)
			}

			// Print and save results
			result := utils.NewDiscoveryResult(db.Database, nbOccurrence, maxTable, maxVars, rules)
			utils.PrintDiscoveryReport(result)

			if _, err := utils.SaveResultJSON(result, outputDir, logger); err != nil {
				logger.Errorf("Failed to save results: %v", err)
				os.Exit(1)
			}
		},
	}

	// Define flags
	rootCmd.Flags().StringVarP(&driver, "driver", "D", "", "Database driver: mysql or sqlite3 (default: inferred)")
	rootCmd.Flags().StringVarP(&host, "host", "H", "", "MySQL host (default: localhost)")
	rootCmd.Flags().StringVarP(&user, "user", "u", "", "MySQL user (default: root)")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "MySQL password")
	rootCmd.Flags().StringVarP(&database, "database", "d", "", "MySQL database name")
	rootCmd.Flags().StringVarP(&port, "port", "P", "", "MySQL port (default: 3306)")
	rootCmd.Flags().StringVarP(&dbPath, "db-path", "f", "", "SQLite database file path")
	rootCmd.Flags().IntVarP(&nbOccurrence, "nb-occurrence", "n", 3, "Minimum rule support threshold")
	rootCmd.Flags().IntVarP(&maxTable, "max-table", "t", 3, "Maximum table occurrences per rule")
	rootCmd.Flags().IntVarP(&maxVars, "max-vars", "v", 6, "Maximum variables per rule")
	rootCmd.Flags().IntVarP(&maxRules, "max-rules", "r", 0, "Stop after this many rules (0 = unlimited)")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to YAML configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for JSON results (default: results)")
	rootCmd.Flags().BoolVarP(&graphOnly, "graph-only", "g", false, "Only build and report the constraint graph")
	rootCmd.Flags().BoolVarP(&createIndexes, "create-indexes", "i", false, "Create per-column indexes before mining (SQLite)")
	rootCmd.Flags().BoolVar(&demoMode, "demo", false, "Build and mine the bundled university demo database")
	rootCmd.Flags().BoolVar(&noViolations, "demo-clean", false, "Build the demo database without referential violations")

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// sameTablePairs lists the same-table domain-compatible column pairs as
// join conditions, so the search's self-join count queries hit composed
// indexes
func sameTablePairs(insp *inspector.SQLInspector) []models.JoinCondition {
	var conditions []models.JoinCondition

	for _, table := range insp.Tables {
		columns := insp.Columns[table]
		for i := 0; i < len(columns); i++ {
			for j := i + 1; j < len(columns); j++ {
				if columns[i].Domain == models.DomainUnknown || columns[i].Domain != columns[j].Domain {
					continue
				}
				conditions = append(conditions, models.JoinCondition{
					Left:  models.IndexedAttribute{Table: table, Occurrence: 0, Column: columns[i].Name},
					Right: models.IndexedAttribute{Table: table, Occurrence: 0, Column: columns[j].Name},
				})
			}
		}
	}

	return conditions
}

// printGraphReport prints the surviving joinable pairs of the constraint graph
func printGraphReport(cg *cgraph.ConstraintGraph) {
	seeds := cg.Seeds()

	fmt.Println("\nCONSTRAINT GRAPH")
	fmt.Printf("Joinable pairs: %d (graph edges: %d)\n", len(seeds), len(cg.Edges))
	for _, e := range seeds {
		kind := "domain"
		if e.ForeignKey {
			kind = "fk"
		}
		fmt.Printf("  %s  [%s, cardinality=%d]\n", e.Key(), kind, e.Cardinality)
	}
}
