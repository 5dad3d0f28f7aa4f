// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to open the OMOP CDM warehouse with the driver named
// in the configuration: postgres (the usual CDM host), mysql, or sqlite (local runs, tests).
//
// # Connect
//
// Connect builds the DSN for the selected driver, applies pool settings, and verifies the
// connection with a ping bounded by TimeoutSeconds.
//
// # Schema Inspection
//
// HasTable and GetTableColumns let the loader check its preconditions (for example that
// the STCM version table exists) and let `schema check` compare the live schema with the
// CDM models.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "concept")
package database
