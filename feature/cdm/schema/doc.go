// Package schema creates and checks the CDM tables managed by the loader.
//
// Create runs GORM AutoMigrate over the models in feature/cdm/models. Check compares the
// live database with the models and reports missing tables and columns, so a misconfigured
// warehouse is caught before a reconciliation run rather than by a driver error halfway
// through it.
package schema
