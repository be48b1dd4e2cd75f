// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the services, keeping request handling independent of SQL details.
package store
