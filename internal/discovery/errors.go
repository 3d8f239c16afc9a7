package discovery

import "fmt"

// SchemaAccessError reports that the oracle could not enumerate schema
// metadata. It is fatal and aborts discovery before any search runs.
type SchemaAccessError struct {
	Err error
}

func (e *SchemaAccessError) Error() string {
	return fmt.Sprintf("schema access failed: %v", e.Err)
}

func (e *SchemaAccessError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an invalid run configuration. It is fatal and
// raised before graph construction.
type ConfigurationError struct {
	Param string
	Value int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s must be >= 1, got %d", e.Param, e.Value)
}

// DataAccessError reports a failing join-count query during search or
// validation. It is recoverable: the affected candidate is treated as
// failing its threshold and discovery continues. A lost database
// connection is the exception; it ends the stream, which reports the
// wrapped error through Err.
type DataAccessError struct {
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed: %v", e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}
