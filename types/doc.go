// Package types defines the shared data model for the redcell evaluation
// engine: technique profiles loaded into the catalog, the target profile
// built from discovery data, and the scored technique pairing produced by
// the relevance scorer.
//
// All types in this package are plain data with validation helpers; they
// carry no behavior beyond field checks and membership tests.
package types
