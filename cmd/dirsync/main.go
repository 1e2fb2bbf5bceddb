// Command dirsync is a minimal driver exercising the synchronisation
// core end to end: it compares two local roots, prints the resulting
// plan, and (unless -dry-run is set) executes it. It is a harness for
// the core, not a replacement for a full front-door CLI: it takes flat
// flags rather than a session-storage configuration layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/dirmirror/dirmirror/pkg/action"
	"github.com/dirmirror/dirmirror/pkg/compare"
	"github.com/dirmirror/dirmirror/pkg/engine"
	"github.com/dirmirror/dirmirror/pkg/events"
	"github.com/dirmirror/dirmirror/pkg/executor"
	"github.com/dirmirror/dirmirror/pkg/filter"
	"github.com/dirmirror/dirmirror/pkg/fsview"
	"github.com/dirmirror/dirmirror/pkg/hashing"
	"github.com/dirmirror/dirmirror/pkg/logging"
	"github.com/dirmirror/dirmirror/pkg/plan"
	"github.com/dirmirror/dirmirror/pkg/syncpath"
)

func warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

type filterFlags []string

func (f *filterFlags) String() string { return fmt.Sprint([]string(*f)) }

func (f *filterFlags) Set(pattern string) error {
	*f = append(*f, pattern)
	return nil
}

func main() {
	modeName := flag.String("mode", "update", "synchronisation mode: update, mirror, or sync")
	k := flag.Int("k", executor.DefaultConcurrency, "maximum number of actions to apply concurrently")
	dryRun := flag.Bool("dry-run", false, "compare and print the plan without executing it")
	noColor := flag.Bool("no-color", false, "disable colored output even when attached to a terminal")
	var filters filterFlags
	flag.Var(&filters, "filter", "glob pattern to exclude from synchronisation (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <source> <destination>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	colorEnabled := !*noColor && isatty.IsTerminal(os.Stdout.Fd())
	color.NoColor = !colorEnabled

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	srcRoot, dstRoot := flag.Arg(0), flag.Arg(1)

	mode, ok := compare.ParseMode(*modeName)
	if !ok {
		fatal(fmt.Errorf("unrecognised mode %q", *modeName))
	}
	if mode == compare.ModeDedupe {
		fatal(compare.ErrDedupeNotSupported)
	}

	var filterSet *filter.Set
	if len(filters) > 0 {
		filterSet = filter.NewSet()
		for _, pattern := range filters {
			if err := filterSet.AddPattern(srcRoot, pattern); err != nil {
				fatal(fmt.Errorf("invalid filter %q: %w", pattern, err))
			}
			if err := filterSet.AddPattern(dstRoot, pattern); err != nil {
				fatal(fmt.Errorf("invalid filter %q: %w", pattern, err))
			}
		}
	}

	logger := logging.NewLogger(logging.LevelInfo)
	ctx := context.Background()

	eng := engine.NewLocal(hashing.AlgorithmSHA256, logger)

	srcPath, err := syncpath.Root(syncpath.FamilyPOSIX, srcRoot)
	if err != nil {
		fatal(err)
	}
	dstPath, err := syncpath.Root(syncpath.FamilyPOSIX, dstRoot)
	if err != nil {
		fatal(err)
	}

	src := fsview.New(eng, srcPath, logger)
	dst := fsview.New(eng, dstPath, logger)
	if err := src.Load(ctx); err != nil {
		fatal(fmt.Errorf("unable to load source: %w", err))
	}
	if err := dst.Load(ctx); err != nil {
		fatal(fmt.Errorf("unable to load destination: %w", err))
	}

	tree, err := compare.Compare(ctx, src, dst, mode, filterSet, false)
	if err != nil {
		fatal(fmt.Errorf("unable to compare: %w", err))
	}

	printPlan(tree)

	if *dryRun {
		return
	}

	broadcaster := events.NewBroadcaster()
	ch, unsubscribe := broadcaster.Subscribe()
	defer unsubscribe()
	go reportProgress(ch)

	exec := executor.New(tree, eng, src, dst, *k, broadcaster)

	synchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := exec.Run(synchCtx); err != nil {
		if abortErr := exec.Abort(ctx); abortErr != nil {
			warning(abortErr.Error())
		}
		fatal(fmt.Errorf("synchronisation failed: %w", err))
	}

	fmt.Println(color.GreenString("synchronised"), time.Now().UTC().Format(time.RFC3339))
}

// printPlan renders one line per planned, non-excluded action. The
// glyph is colored by kind when color is enabled (color.*String is a
// no-op when color.NoColor is set, so the call below is unconditional).
func printPlan(tree *plan.Tree) {
	for _, n := range tree.Walk() {
		c := n.Action.Common()
		if c.Excluded {
			continue
		}
		path := n.Path
		if path == "" {
			path = "."
		}
		fmt.Printf("%s %s\n", glyphColor(n.Action)(n.Action.Glyph()), path)
	}
	summary := tree.Summary()
	fmt.Printf("%d action(s) planned\n", summary.Total)
}

// glyphColor picks a color for an action's glyph by its kind: creations
// green, removals red, everything else (no-ops) left uncolored.
func glyphColor(a action.Action) func(string, ...interface{}) string {
	switch a.(type) {
	case *action.Copy:
		return color.GreenString
	case *action.Delete:
		return color.RedString
	default:
		return fmt.Sprintf
	}
}

// reportProgress prints a line for each on_synching event until the
// channel is closed, which happens only when the subscriber's own
// unsubscribe runs on return from main.
func reportProgress(ch <-chan events.Event) {
	for e := range ch {
		if e.Kind != events.OnSynching {
			continue
		}
		fmt.Printf("\r%d action(s) in flight", len(e.Active))
	}
}
