// Package main is the entry point for the appwiki command line tools.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/appwiki/internal/app"
	"github.com/dshills/appwiki/internal/apps/kpt"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli is the state shared by every subcommand.
type cli struct {
	opts   app.Options
	watch  bool
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage string
	run   func(c *cli, args []string) int
}

const (
	usageRelay  = "relay [-addr :1234]"
	usageBlocks = "blocks FILE"
	usageKPT    = "kpt -file FILE [-block N] [-keep S] [-problem S] [-try S]"
	usageEdit   = "edit -file FILE [-block N] < body"
)

var commands = map[string]command{
	"relay":  {usageRelay, runRelay},
	"blocks": {usageBlocks, runBlocks},
	"kpt":    {usageKPT, runKPT},
	"edit":   {usageEdit, runEdit},
}

var commandOrder = []string{"relay", "blocks", "kpt", "edit"}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	var showVersion bool

	fs := flag.NewFlagSet("appwiki", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.opts.ConfigPath, "config", "", "Path to configuration file")
	fs.StringVar(&c.opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&c.opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&c.opts.Room, "room", "", "Mirror edits to this relay room")
	fs.StringVar(&c.opts.Root, "root", "", "Directory room names are relative to (default: working directory)")
	fs.BoolVar(&c.watch, "watch", false, "Reload configuration when its file changes")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "appwiki - documents with embedded applications\n\n")
		fmt.Fprintf(stderr, "Usage: appwiki [options] <command> [arguments]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		for _, name := range commandOrder {
			fmt.Fprintf(stderr, "  appwiki %s\n", commands[name].usage)
		}
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "appwiki %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", rest[0])
		fs.Usage()
		return 2
	}
	c.opts.Output = stderr
	return cmd.run(c, rest[1:])
}

// start creates the application, reporting failures on stderr.
func (c *cli) start() (*app.Application, bool) {
	application, err := app.New(c.opts)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: failed to initialize: %v\n", err)
		return nil, false
	}
	if c.watch {
		if err := application.StartWatching(); err != nil {
			fmt.Fprintf(c.stderr, "Warning: %v\n", err)
		}
	}
	return application, true
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "Error: %v\n", err)
	return 1
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("appwiki "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func runRelay(c *cli, args []string) int {
	fs := c.flags("relay")
	fs.StringVar(&c.opts.RelayAddr, "addr", "", "Listen address (default from relay.addr)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	application, ok := c.start()
	if !ok {
		return 1
	}
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.RunRelay(ctx); err != nil {
		return c.fail(err)
	}
	return 0
}

func runBlocks(c *cli, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(c.stderr, "Usage: appwiki %s\n", usageBlocks)
		return 2
	}

	application, ok := c.start()
	if !ok {
		return 1
	}
	defer application.Shutdown()

	doc, err := application.OpenFile(args[0])
	if err != nil {
		return c.fail(err)
	}
	for _, b := range doc.Blocks() {
		state := ""
		if !b.Closed {
			state = "\tunterminated"
		}
		fmt.Fprintf(c.stdout, "%d\t%s\tlines %d-%d%s\n", b.Index, b.App, b.Span.Start.Line, b.Span.End.Line, state)
	}
	return 0
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ", ") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runKPT(c *cli, args []string) int {
	var (
		file  string
		block int

		keeps, problems, tries stringList
	)
	fs := c.flags("kpt")
	fs.StringVar(&file, "file", "", "Document to edit")
	fs.IntVar(&block, "block", -1, "Block index (default: first kpt block)")
	fs.Var(&keeps, "keep", "Add a keep (repeatable)")
	fs.Var(&problems, "problem", "Add a problem (repeatable)")
	fs.Var(&tries, "try", "Add a try (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if file == "" {
		fmt.Fprintf(c.stderr, "Usage: appwiki %s\n", usageKPT)
		return 2
	}

	application, ok := c.start()
	if !ok {
		return 1
	}
	defer application.Shutdown()

	doc, err := application.OpenFile(file)
	if err != nil {
		return c.fail(err)
	}
	if block < 0 {
		if block = firstBlock(doc, kpt.Name); block < 0 {
			return c.fail(fmt.Errorf("%s has no %s block", doc.Name, kpt.Name))
		}
	}

	a, err := application.App(doc, block)
	if err != nil {
		return c.fail(err)
	}
	board, ok := a.(*kpt.App)
	if !ok {
		return c.fail(fmt.Errorf("block %d is a %s block, not %s", block, a.Name(), kpt.Name))
	}

	additions := []struct {
		items stringList
		add   func(string) error
	}{
		{keeps, board.AddKeep},
		{problems, board.AddProblem},
		{tries, board.AddTry},
	}
	for _, group := range additions {
		for _, item := range group.items {
			if err := group.add(item); err != nil {
				return c.fail(err)
			}
			// Each edit moves the revision; rebind to the new block.
			props, err := application.Props(doc, block)
			if err != nil {
				return c.fail(err)
			}
			board.Update(props)
		}
	}

	if !doc.IsModified() {
		return 0
	}
	if err := application.SaveDocument(doc); err != nil {
		return c.fail(err)
	}
	return 0
}

func runEdit(c *cli, args []string) int {
	var (
		file  string
		block int
	)
	fs := c.flags("edit")
	fs.StringVar(&file, "file", "", "Document to edit")
	fs.IntVar(&block, "block", 0, "Block index")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if file == "" {
		fmt.Fprintf(c.stderr, "Usage: appwiki %s\n", usageEdit)
		return 2
	}

	body, err := io.ReadAll(c.stdin)
	if err != nil {
		return c.fail(err)
	}

	application, ok := c.start()
	if !ok {
		return 1
	}
	defer application.Shutdown()

	doc, err := application.OpenFile(file)
	if err != nil {
		return c.fail(err)
	}
	if err := application.ReplaceBlock(doc, block, string(body)); err != nil {
		return c.fail(err)
	}
	if !doc.IsModified() {
		return 0
	}
	if err := application.SaveDocument(doc); err != nil {
		return c.fail(err)
	}
	return 0
}

// firstBlock returns the index of the first block of app in doc, or -1.
func firstBlock(doc *app.Document, name string) int {
	for _, b := range doc.Blocks() {
		if b.App == name {
			return b.Index
		}
	}
	return -1
}
