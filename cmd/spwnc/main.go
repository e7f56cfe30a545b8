// Command spwnc compiles a spwn script into the textual GD object format.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/orizon-lang/spwn/internal/gdcompiler"
	"github.com/orizon-lang/spwn/internal/gdglobals"
	"github.com/orizon-lang/spwn/internal/gdparser"
	"github.com/orizon-lang/spwn/internal/levelstring"
)

const version = "0.1.0"

var (
	outPath     = flag.String("o", "", "write the compiled object string to this file instead of stdout")
	verbose     = flag.Bool("verbose", false, "print build progress to stderr")
	watchMode   = flag.Bool("watch", false, "stay running and recompile whenever a .spwn file next to the script changes")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Usage = showUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("spwnc %s\n", version)
		return
	}
	if flag.NArg() != 1 {
		showUsage()
		os.Exit(2)
	}
	script := flag.Arg(0)

	logger := log.New(os.Stderr, "", 0)

	if err := compile(script); err != nil {
		if !*watchMode {
			logger.Fatal(err)
		}
		logger.Printf("compile failed: %v", err)
	}

	if *watchMode {
		if err := watchLoop(script, logger); err != nil {
			logger.Fatal(err)
		}
	}
}

func compile(script string) error {
	source, err := os.ReadFile(script)
	if err != nil {
		return err
	}

	statements, notes, err := gdparser.Parse(string(source), script)
	if err != nil {
		return err
	}

	g, err := gdcompiler.CompileSpwn(statements, script, notes, gdglobals.Options{Verbose: *verbose})
	if err != nil {
		return err
	}

	out := levelstring.Serialize(g.Emitter.FuncIDs())
	if *outPath == "" {
		fmt.Println(out)
		return nil
	}
	return os.WriteFile(*outPath, []byte(out), 0o644)
}

// watchLoop recompiles the script whenever it, or any sibling .spwn file a
// module import could resolve to, is written.
func watchLoop(script string, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(script)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Printf("watching %s", dir)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".spwn") {
				continue
			}
			if err := compile(script); err != nil {
				logger.Printf("compile failed: %v", err)
				continue
			}
			logger.Printf("recompiled %s", script)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("watch error: %v", err)
		}
	}
}

func showUsage() {
	fmt.Fprintf(os.Stderr, "usage: spwnc [flags] <script.spwn>\n\nFlags:\n")
	flag.PrintDefaults()
}
