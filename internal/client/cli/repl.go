package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Create(ctx context.Context) error
	Delete(ctx context.Context) error
	AddUser(ctx context.Context) error
	Ping(ctx context.Context) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit". Errors
// returned by command handlers are printed and the loop goes on. Commands
// prompt on the same reader, so it must not be wrapped in another buffer.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprint(w, "guestkeeper> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		err = nil
		switch cmd := parts[0]; cmd {
		case "help":
			fmt.Fprintln(w, "Available commands: (l)ist, create, delete, adduser, ping, exit")
		case "l", "list":
			err = a.List(ctx)
		case "create":
			err = a.Create(ctx)
		case "delete":
			err = a.Delete(ctx)
		case "adduser":
			err = a.AddUser(ctx)
		case "ping":
			err = a.Ping(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
		if err != nil {
			fmt.Fprintln(w, "Error:", err)
		}
	}
}
