// Package migrations registers the SQL schema steps. Importing it for side
// effects is enough to make them visible to the migrate commands.
package migrations
