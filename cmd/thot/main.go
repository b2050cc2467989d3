// Command thot assembles Maât tablets into IA-32 executables or boot
// images, and doubles as a lint/format/inspect/serve tool over the same
// pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/config"
	"github.com/hackia/thot/internal/inspector"
	"github.com/hackia/thot/internal/service"
	"github.com/hackia/thot/internal/tools"

	"flag"

	"github.com/hackia/thot/api"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		lintMode    = flag.Bool("lint", false, "lint the input tablet instead of assembling it")
		formatMode  = flag.Bool("format", false, "print the canonically re-indented tablet and exit")
		xrefMode    = flag.Bool("xref", false, "print a label/constant cross-reference table and exit")
		inspectMode = flag.Bool("inspect", false, "assemble, then open the terminal inspector")
		apiServer   = flag.Bool("api-server", false, "start the HTTP API server instead of assembling")
		apiAddr     = flag.String("addr", "", "API server listen address (default from config)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("thot %s (%s)\n", Version, Commit)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	if *apiServer {
		addr := *apiAddr
		if addr == "" {
			addr = cfg.API.ListenAddr
		}
		srv := api.NewServer(addr, int64(cfg.API.MaxTabletBytes), cfg.API.AllowedOrigins)
		fatal(srv.Start())
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: thot [-lint|-format|-xref|-inspect] <input.maat> [output] [boot] [kbd]")
		os.Exit(2)
	}

	input := args[0]
	src, err := os.ReadFile(input) // #nosec G304 -- user-specified tablet path
	if err != nil {
		fatal(err)
	}

	boot := cfg.Assemble.Boot
	var output string
	if len(args) > 1 {
		output = args[1]
	}
	var extra []string
	if len(args) > 2 {
		extra = args[2:]
	}
	for _, a := range extra {
		if a == "boot" {
			boot = true
		}
	}

	switch {
	case *lintMode:
		runLint(input, string(src))
	case *formatMode:
		runFormat(input, string(src))
	case *xrefMode:
		runXref(input, string(src))
	case *inspectMode:
		runInspect(input, string(src), boot)
	default:
		runAssemble(input, string(src), output, boot)
	}
}

func runAssemble(input, src, output string, boot bool) {
	result, err := service.Assemble(input, src, service.Options{Boot: boot})
	if err != nil {
		fatal(err)
	}
	if output == "" {
		output = "a.out"
	}
	if err := os.WriteFile(output, result.Image, 0644); err != nil { // #nosec G306 -- executable output
		fatal(err)
	}
}

func runLint(input, src string) {
	instructions, err := service.Lower(input, src, service.Options{})
	if err != nil {
		fatal(err)
	}
	issues := tools.Lint(instructions, tools.DefaultLintOptions())
	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	if len(issues) > 0 {
		os.Exit(1)
	}
}

func runFormat(input, src string) {
	instructions, err := service.Lower(input, src, service.Options{})
	if err != nil {
		fatal(err)
	}
	fmt.Print(tools.Format(instructions, tools.DefaultFormatOptions()))
}

func runXref(input, src string) {
	instructions, err := service.Lower(input, src, service.Options{})
	if err != nil {
		fatal(err)
	}
	table := tools.Xref(instructions)
	for name, entry := range table {
		fmt.Printf("%s: defined line %d, referenced at %v\n", name, entry.DefinedLine, entry.ReferencedAt)
	}
}

func runInspect(input, src string, boot bool) {
	result, err := service.Assemble(input, src, service.Options{Boot: boot})
	if err != nil {
		fatal(err)
	}
	insp := inspector.New(inspector.Snapshot{
		Filename:     input,
		Instructions: result.Instructions,
		Labels:       result.Labels,
	})
	fatal(insp.Run())
}

func fatal(err error) {
	if err == nil {
		return
	}
	var diag *asmerr.Diagnostic
	if d, ok := err.(*asmerr.Diagnostic); ok {
		diag = d
	}
	if diag != nil {
		fmt.Fprintln(os.Stderr, diag.Error())
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
