// Package catalog loads the character list that the /characters command
// paginates.
//
// A catalog is read from a YAML file or an SQLite database, kept in memory as
// an immutable snapshot, and reloaded when the file changes (Watcher) or on a
// cron schedule (Refresher). Entries formats characters into the display
// strings and parallel vocation tags the filtered paginator expects.
package catalog
