// Package service contains the application use cases: task, category and
// user operations. Services validate raw input into domain values, coordinate
// the stores in internal/store inside database transactions, and keep the
// object store in step with task rows.
//
// Services depend on store interfaces and never on a concrete database, so
// the HTTP layer and tests can wire them against any implementation.
package service
