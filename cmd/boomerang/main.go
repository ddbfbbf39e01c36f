// cmd/boomerang/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/boomerang-decompiler/boomerang/internal/build"
	"github.com/boomerang-decompiler/boomerang/internal/debugger"
	"github.com/boomerang-decompiler/boomerang/internal/driver"
	"github.com/boomerang-decompiler/boomerang/internal/logging"
	"github.com/boomerang-decompiler/boomerang/internal/persist"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
	"github.com/boomerang-decompiler/boomerang/internal/progress"
	"github.com/boomerang-decompiler/boomerang/internal/session"
)

const version = "0.1.0"

// Command aliases: single-letter shortcuts for the full subcommand names.
var commandAliases = map[string]string{
	"d": "decompile",
	"v": "version",
	"h": "help",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "help", "--help", "-h":
		showUsage()
	case "version", "--version", "-v":
		fmt.Printf("boomerang %s\n", version)
	case "decompile":
		runDecompile(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("boomerang - a machine-code decompiler driver")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  boomerang decompile [options] <entry-name>   Decompile from an entry procedure (alias: d)")
	fmt.Println("  boomerang version                            Show version                         (alias: v)")
	fmt.Println("  boomerang help                                Show this help                       (alias: h)")
	fmt.Println()
	fmt.Println("Options for decompile:")
	fmt.Println("  -manifest <path>       Load a boomerang.json config manifest")
	fmt.Println("  -out <path>            Output bundle path (default dist/<entry>.bmrb)")
	fmt.Println("  -persist-dsn <dsn>     Persist per-procedure progress to a database")
	fmt.Println("  -persist-driver <drv>  Database driver: sqlite, postgres, mysql, sqlserver")
	fmt.Println("  -snapshot <path>       Resume from / write a flat-file snapshot instead of a database")
	fmt.Println("  -watch <addr>          Serve live progress over websocket at addr")
	fmt.Println("  -debug                 Attach the interactive phase debugger")
	fmt.Println()
	fmt.Println("Without a real front end wired in, decompile runs its fixture program: ")
	fmt.Println("a tiny caller/callee pair, demonstrating the full decode -> SSA -> propagate ->")
	fmt.Println("type analysis -> de-SSA pipeline end to end.")
}

func runDecompile(args []string) {
	fs := flag.NewFlagSet("decompile", flag.ExitOnError)
	manifest := fs.String("manifest", "", "project manifest path")
	out := fs.String("out", "", "output bundle path")
	persistDSN := fs.String("persist-dsn", "", "database DSN for progress persistence")
	persistDriver := fs.String("persist-driver", "", "database driver (sqlite, postgres, mysql, sqlserver)")
	snapshotPath := fs.String("snapshot", "", "flat-file snapshot path")
	watchAddr := fs.String("watch", "", "websocket progress address, e.g. localhost:6677")
	debugFlag := fs.Bool("debug", false, "attach the interactive phase debugger")
	fs.Parse(args)

	entryName := "caller"
	if fs.NArg() > 0 {
		entryName = fs.Arg(0)
	}

	cfg := session.DefaultConfig()
	if *manifest != "" {
		loaded, err := session.LoadManifest(*manifest)
		if err != nil {
			log.Fatalf("loading manifest: %v", err)
		}
		cfg = loaded
	}
	if *persistDSN != "" {
		cfg.PersistDSN = *persistDSN
	}
	if *persistDriver != "" {
		cfg.PersistDriver = *persistDriver
	}
	if *watchAddr != "" {
		cfg.WatchAddr = *watchAddr
	}

	logger := logging.New(os.Stderr, logging.LevelInfo)
	sess := session.New(cfg, logger)

	pr, entry, dec := newFixtureProgram(entryName)
	if entry == nil {
		log.Fatalf("unknown entry procedure %q (try \"caller\")", entryName)
	}

	if *snapshotPath != "" {
		if applied, err := persist.ReadSnapshotFile(*snapshotPath, pr); err != nil {
			logger.WithPass("cmd").Warn("could not read snapshot %s: %v", *snapshotPath, err)
		} else if applied > 0 {
			logger.WithPass("cmd").Info("resumed %d procedures from %s", applied, *snapshotPath)
		}
	}

	var store *persist.Store
	if cfg.PersistDSN != "" {
		var err error
		store, err = persist.Open(cfg.PersistDriver, cfg.PersistDSN, logger)
		if err != nil {
			log.Fatalf("opening persist store: %v", err)
		}
		defer store.Close()
	}

	hooks := driver.MultiHook{}
	if cfg.WatchAddr != "" {
		broadcaster := progress.NewBroadcaster(logger)
		go func() {
			if err := broadcaster.ListenAndServe(cfg.WatchAddr); err != nil {
				logger.WithPass("cmd").Warn("watch channel stopped: %v", err)
			}
		}()
		hooks = append(hooks, broadcaster)
	}
	if *debugFlag {
		dbg := debugger.NewDebugger()
		dbg.SetState(debugger.Paused)
		fmt.Println("starting paused; type 'continue' to begin decompilation")
		dbg.RunDebugger()
		hooks = append(hooks, debugger.NewProcHook(dbg))
	}

	d := driver.New(pr, dec, sess, 14)
	if len(hooks) > 0 {
		d.Hook = hooks
	}

	if err := d.Decompile(entry); err != nil {
		log.Fatalf("decompile: %v", err)
	}

	if store != nil {
		if err := store.SaveProgress(pr); err != nil {
			logger.WithPass("cmd").Warn("saving progress: %v", err)
		}
	}
	if *snapshotPath != "" {
		if err := persist.WriteSnapshotFile(*snapshotPath, pr, logger); err != nil {
			logger.WithPass("cmd").Warn("writing snapshot: %v", err)
		}
	}

	builder := build.NewBuilder(build.Config{OutputPath: *out, Name: entryName}, logger)
	manifestOut, err := builder.Build(pr, renderDebugDump)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	fmt.Printf("decompiled %d procedure(s), wrote %s\n", manifestOut.ProcCount, *out)
}

// renderDebugDump is the minimal, non-pretty emitter: turning SSA-free
// output into real source text is outside the decompiler's scope, so
// this renders enough to inspect what each pass produced.
func renderDebugDump(p *proc.UserProc) []byte {
	out := fmt.Sprintf("// %s (%#x) status=%s\n", p.ProcName(), p.Address(), p.Status)
	out += fmt.Sprintf("// parameters: %d, locals: %d, callees: %d\n", len(p.Parameters), len(p.Locals), len(p.Callees))
	if p.CFG != nil {
		out += fmt.Sprintf("// basic blocks: %d\n", len(p.CFG.Blocks()))
	}
	return []byte(out)
}
