package connector

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// DatabaseConnector handles database connection and query execution for
// the supported drivers (mysql and sqlite3)
type DatabaseConnector struct {
	Driver   string
	Host     string
	User     string
	Password string
	Database string
	Port     string
	Path     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewMySQLConnector creates a connector for a MySQL database, falling back
// to TGD_DB_* environment variables for missing parameters
func NewMySQLConnector(host, user, password, database, port string, logger *logrus.Logger) *DatabaseConnector {
	if host == "" {
		host = getEnvOrDefault("TGD_DB_HOST", "localhost")
	}
	if user == "" {
		user = getEnvOrDefault("TGD_DB_USER", "root")
	}
	if password == "" {
		password = getEnvOrDefault("TGD_DB_PASSWORD", "")
	}
	if database == "" {
		database = getEnvOrDefault("TGD_DB_DATABASE", "")
	}
	if port == "" {
		port = getEnvOrDefault("TGD_DB_PORT", "3306")
	}

	return &DatabaseConnector{
		Driver:   "mysql",
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		Logger:   logger,
	}
}

// NewSQLiteConnector creates a connector for a SQLite database file
func NewSQLiteConnector(path string, logger *logrus.Logger) *DatabaseConnector {
	if path == "" {
		path = getEnvOrDefault("TGD_DB_PATH", "")
	}

	return &DatabaseConnector{
		Driver:   "sqlite3",
		Database: path,
		Path:     path,
		Logger:   logger,
	}
}

// Connect establishes a connection to the database
func (dc *DatabaseConnector) Connect() error {
	var dsn string

	switch dc.Driver {
	case "mysql":
		if dc.Database == "" {
			return fmt.Errorf("database name must be provided either as an argument or as TGD_DB_DATABASE environment variable")
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", dc.User, dc.Password, dc.Host, dc.Port, dc.Database)
	case "sqlite3":
		if dc.Path == "" {
			return fmt.Errorf("database path must be provided either as an argument or as TGD_DB_PATH environment variable")
		}
		dsn = dc.Path
	default:
		return fmt.Errorf("unsupported database driver: %s", dc.Driver)
	}

	db, err := sql.Open(dc.Driver, dsn)
	if err != nil {
		dc.Logger.Errorf("Error connecting to %s database: %v", dc.Driver, err)
		return err
	}

	// Test the connection
	err = db.Ping()
	if err != nil {
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Driver, err)
		return err
	}

	dc.DB = db
	dc.Logger.Infof("Connected to %s database: %s", dc.Driver, dc.Database)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Infof("%s connection closed", dc.Driver)
		}
	}
}

// ExecuteQuery executes a SQL query and returns the results
func (dc *DatabaseConnector) ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return nil, err
		}
	}

	rows, err := dc.DB.Query(query, params...)
	if err != nil {
		dc.Logger.Debugf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			if val == nil {
				row[col] = nil
			} else {
				// Convert []byte to string for text fields
				if b, ok := val.([]byte); ok {
					row[col] = string(b)
				} else {
					row[col] = val
				}
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// QueryCount executes a query whose single result column is a count
func (dc *DatabaseConnector) QueryCount(query string, params ...interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	var count int64
	err := dc.DB.QueryRow(query, params...).Scan(&count)
	if err != nil {
		dc.Logger.Debugf("Error executing count query: %v", err)
		return 0, err
	}

	return count, nil
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(query string, params ...interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	result, err := dc.DB.Exec(query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		dc.Logger.Errorf("Error getting affected rows: %v", err)
		return 0, err
	}

	return affected, nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer value from an environment variable
func GetEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
