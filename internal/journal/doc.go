// Package journal records capture run outcomes in a local SQLite database.
//
// The Store manages the database connection, schema initialization, and
// queries used by the daemon API and the history command. Schema changes
// bump the version in schema.go; users clear the database to adopt the new
// schema.
package journal
