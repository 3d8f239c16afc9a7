package utils

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"github.com/vitebski/sql-tgd-miner/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("TGD_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Infof("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	// Load environment variables from .env file if it exists
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Infof("No %s file found, using existing environment variables", envFile)
	}

	// Log all available TGD_* environment variables (for debugging)
	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "TGD_") {
				parts := strings.SplitN(env, "=", 2)
				if len(parts) == 2 {
					// Mask password
					if parts[0] == "TGD_DB_PASSWORD" {
						logger.Debugf("%s=********", parts[0])
					} else {
						logger.Debugf("%s=%s", parts[0], parts[1])
					}
				}
			}
		}
	}

	return true
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// FileConfig mirrors the optional YAML configuration file layout
type FileConfig struct {
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Path     string `yaml:"path"`
	} `yaml:"database"`
	Algorithm struct {
		NbOccurrence int `yaml:"nb_occurrence"`
		MaxTable     int `yaml:"max_table"`
		MaxVars      int `yaml:"max_vars"`
	} `yaml:"algorithm"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Results struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"results"`
}

// LoadConfigFile reads a YAML configuration file. A missing file is not an
// error; the zero config is returned so flags and env defaults apply.
func LoadConfigFile(path string, logger *logrus.Logger) (*FileConfig, error) {
	config := &FileConfig{}

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Infof("No config file found at %s, using flags and environment", path)
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	logger.Infof("Loaded configuration from %s", path)
	return config, nil
}

// ValidateConnectionParams validates MySQL connection parameters
func ValidateConnectionParams(host, user, password, database, port string, logger *logrus.Logger) bool {
	if host == "" {
		logger.Error("Database host is required")
		return false
	}

	if user == "" {
		logger.Error("Database user is required")
		return false
	}

	if password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if database == "" {
		logger.Error("Database name is required")
		return false
	}

	if _, err := strconv.Atoi(port); err != nil {
		logger.Errorf("Invalid port number: %s", port)
		return false
	}

	return true
}

// PrintDiscoveryReport prints a summary of one discovery run
func PrintDiscoveryReport(result *models.DiscoveryResult) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("TGD DISCOVERY REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Database: %s\n", result.Database)
	fmt.Printf("Min occurrence: %d\n", result.NbOccurrence)
	fmt.Printf("Max tables: %d\n", result.MaxTable)
	fmt.Printf("Max variables: %d\n", result.MaxVars)
	fmt.Printf("Rules discovered: %d\n", len(result.Rules))

	if len(result.Rules) > 0 {
		top := make([]models.TGDRule, len(result.Rules))
		copy(top, result.Rules)
		sort.SliceStable(top, func(i, j int) bool { return top[i].Confidence > top[j].Confidence })
		if len(top) > 5 {
			top = top[:5]
		}

		fmt.Println("\nTop rules by confidence:")
		for i, rule := range top {
			fmt.Printf("  %d. %s\n     support=%d confidence=%.3f\n", i+1, rule.Display, rule.Support, rule.Confidence)
		}
	}

	fmt.Println(strings.Repeat("=", 70))
}
