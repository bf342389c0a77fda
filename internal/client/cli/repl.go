package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs. Every command gets
// the arguments that followed its name. The real App type satisfies this
// interface; tests can provide a lightweight stub.
type execIface interface {
	Open(ctx context.Context, args []string) error
	Reload(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Set(ctx context.Context, args []string) error
	AddValue(ctx context.Context, args []string) error
	DropValue(ctx context.Context, args []string) error
	AddRow(ctx context.Context, args []string) error
	SetRow(ctx context.Context, args []string) error
	Hide(ctx context.Context, args []string) error
	Unhide(ctx context.Context, args []string) error
	RemoveRow(ctx context.Context, args []string) error
	Attach(ctx context.Context, args []string) error
	Detach(ctx context.Context, args []string) error
	Log(ctx context.Context, args []string) error
	Save(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
}

const helpText = `Commands:
  open <trial-id> [--fresh]                        load a trial (--fresh drops local drafts)
  reload [--fresh]                                 load the open trial again
  show [section]                                   list sections, or print one
  set <section> <field> [value...]                 set a field; list items are split on "|||", else ";", else ","
  add <section> <list> <value...>                  append a list value
  drop <section> <list> <value...>                 remove a list value
  row <section> <collection> [field=value...]      add a row
  rowset <section> <collection> <id> <field> [value...]
  hide | unhide <section> <collection> <id>        exclude a row from / include it in the save
  rm <section> <collection> <id>                   remove a row
  attach <section> <collection> <id> <path>        upload a file to a row
  detach <section> <collection> <id> <url|name>    remove a file from a row
  log [n]                                          last n change log entries
  save                                             save every section
  status                                           session and connection state
  help
  exit | quit`

// runREPL reads commands line by line from scanner and dispatches them to
// a. The first token is the command, the rest are its arguments. A nil
// statusFn disables the prompt (non-interactive input). The loop exits on
// scanner EOF or on "exit" / "quit".
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if statusFn != nil {
			printlnFn(fmt.Sprintf("td %s > ", statusFn()))
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "open":
			err = a.Open(ctx, args)

		case "reload":
			err = a.Reload(ctx, args)

		case "show":
			err = a.Show(ctx, args)

		case "set":
			err = a.Set(ctx, args)

		case "add":
			err = a.AddValue(ctx, args)

		case "drop":
			err = a.DropValue(ctx, args)

		case "row":
			err = a.AddRow(ctx, args)

		case "rowset":
			err = a.SetRow(ctx, args)

		case "hide":
			err = a.Hide(ctx, args)

		case "unhide":
			err = a.Unhide(ctx, args)

		case "rm":
			err = a.RemoveRow(ctx, args)

		case "attach":
			err = a.Attach(ctx, args)

		case "detach":
			err = a.Detach(ctx, args)

		case "log":
			err = a.Log(ctx, args)

		case "save":
			err = a.Save(ctx, args)

		case "status":
			err = a.Status(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", err)
		}
	}
}
