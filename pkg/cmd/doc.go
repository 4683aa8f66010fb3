// Package cmd provides the automigrate command-line interface.
//
// Commands are built with urfave/cli/v3 and assembled with fx: each command
// constructor is provided into the "commands" group and Run mounts the group
// under the root command.
//
// # Available Commands
//
//   - migrate: Reconcile the database with the schema and record the result
//   - plan: Print the SQL the next migration would run
//   - status: Show applied and pending migrations and stored snapshots
//   - snapshot: Print the desired model or the stored snapshot document
//   - rehash: Regenerate automigrate.sum for the hand-authored migrations
//
// # Global Options
//
//   - --dir, -d: Project directory (defaults to current directory)
//   - --config, -c: Configuration file (defaults to automigrate.yaml)
//
// Connection URLs can also be supplied with AUTOMIGRATE_URL, and the config
// path with AUTOMIGRATE_CONFIG.
package cmd
