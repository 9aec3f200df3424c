/*
Package cli handles command-line argument parsing for cardsplit.

# Global Flags

ParseGlobal reads the flags that precede the subcommand:

	global, rest, err := cli.ParseGlobal(os.Args[1:])

	-db      SQLite database path      (env DB_PATH)
	-token   token naming the acting user (env CARDSPLIT_TOKEN)

CLI flags take precedence over environment variables.

# Share Specs

Split requests are written as <kind>:<id>=<percentage>, where kind is user
or contact and the percentage is a fraction or ends in %. A trailing *
marks the responsible share:

	user:3f2a...=0.5*  contact:9c1e...=25%

Order is preserved: the last spec absorbs rounding drift.

# Subcommands

Each subcommand has its own parser returning a typed struct, for example
ParseSplit, ParsePay and ParseItemAdd.
*/
package cli
