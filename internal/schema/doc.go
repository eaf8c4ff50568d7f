// Package schema brings the database up to the current layout on every boot.
//
// The table DDL lives in the migrations package as SQL files. This package
// adds the steps that have to look at existing data first:
//   - adding device columns introduced after the first release, guarded by
//     a PRAGMA table_info presence check so older files upgrade in place
//   - seeding the device catalog into an empty table
//   - adding device types that a pre-existing installation lacks
//   - seeding the starter scenes into an empty table
//
// Every step is safe to run again on a database it has already touched.
// Apply never fails the process: errors are logged and startup continues
// with whatever schema resulted.
package schema
