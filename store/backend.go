package store

import "fmt"

// Backend drivers
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// OpenBackend opens the preset backend for driver at path. The returned
// close func is never nil.
func OpenBackend(driver, path string) (Backend, func() error, error) {
	switch driver {
	case "", DriverJSON:
		return NewJSONFile(path), func() error { return nil }, nil
	case DriverSQLite:
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
}
