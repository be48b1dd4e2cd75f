// Package domain contains the core business entities of the taskboard: tasks,
// the categories that group them, users and their access tokens. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
