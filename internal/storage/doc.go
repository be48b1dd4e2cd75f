// Package storage persists uploaded files in a public bucket. Two backends are
// provided: LocalBucket on the filesystem and MinioBucket on any S3 compatible
// endpoint. Paths handed out by a Bucket are relative and slash separated,
// e.g. "images/4f1c....png", and are what the tasks table records.
package storage
