package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/nerrad567/vibrant/internal/display"
	"github.com/nerrad567/vibrant/internal/saturation"
)

const shellHelp = `Commands:
  list                    list outputs and their saturation
  get OUTPUT              show one output
  set OUTPUT SATURATION   change one output (0.0 to 4.0)
  reset OUTPUT            restore neutral saturation (1.0)
  help                    show this help
  quit                    leave the shell
`

// shell is an interactive prompt over one open session.
type shell struct {
	app *app
	s   *session
	out io.Writer
}

// cmdShell runs the readline loop until quit, EOF or cancellation.
func (a *app) cmdShell(ctx context.Context, s *session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vibrant> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    shellCompleter(s),
	})
	if err != nil {
		return fmt.Errorf("starting shell: %w", err)
	}
	defer rl.Close()

	sh := &shell{app: a, s: s, out: rl.Stdout()}
	fmt.Fprint(sh.out, shellHelp)

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			// io.EOF
			return nil
		}
		if sh.execute(ctx, line) {
			return nil
		}
	}
	return nil
}

// shellCompleter completes command names and output names.
func shellCompleter(s *session) readline.AutoCompleter {
	var outputs []readline.PrefixCompleterInterface
	for _, c := range s.inst.Controllers() {
		outputs = append(outputs, readline.PcItem(c.Name()))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("get", outputs...),
		readline.PcItem("set", outputs...),
		readline.PcItem("reset", outputs...),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// execute runs one shell line and reports whether the shell should exit.
func (sh *shell) execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch cmd, args := fields[0], fields[1:]; cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
	case "list", "ls":
		err = sh.withOutput(func() error { return sh.app.cmdList(ctx, sh.s) })
	case "get":
		if len(args) != 1 {
			fmt.Fprintln(sh.out, "usage: get OUTPUT")
			return false
		}
		err = sh.withOutput(func() error { return sh.app.cmdOutput(ctx, sh.s, args[0], nil) })
	case "set":
		if len(args) != 2 {
			fmt.Fprintln(sh.out, "usage: set OUTPUT SATURATION")
			return false
		}
		value, parseErr := parseSaturation(args[1])
		if parseErr != nil {
			fmt.Fprintln(sh.out, parseErr)
			return false
		}
		err = sh.withOutput(func() error { return sh.app.cmdOutput(ctx, sh.s, args[0], &value) })
	case "reset":
		if len(args) != 1 {
			fmt.Fprintln(sh.out, "usage: reset OUTPUT")
			return false
		}
		_, err = sh.s.svc.Set(ctx, args[0], display.NeutralSaturation, saturation.SourceCLI)
		if err == nil {
			fmt.Fprintf(sh.out, "%s reset\n", args[0])
		}
	default:
		fmt.Fprintf(sh.out, "unknown command %q, type help for a list\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
	}
	return false
}

// withOutput points the app's stdout at the shell for the duration of fn.
func (sh *shell) withOutput(fn func() error) error {
	prev := sh.app.stdout
	sh.app.stdout = sh.out
	defer func() { sh.app.stdout = prev }()
	return fn()
}
