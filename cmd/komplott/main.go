// Command komplott is a minimal Lisp interpreter: a symbol interner, a
// two-space copying heap, a reader, and a tail-call-optimizing
// evaluator, wired together the way cmd/retro wires up this module's
// teacher's VM.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/krig/LISP/eval"
	"github.com/krig/LISP/heap"
	"github.com/krig/LISP/internal/debug"
	"github.com/krig/LISP/internal/ioutil"
	"github.com/krig/LISP/reader"
	"github.com/krig/LISP/symbol"
)

var (
	heapSize  = flag.Int("heap", 1<<20, "number of cells in each half of the heap")
	execStats = flag.Bool("stats", false, "print heap and evaluator statistics upon exit")
	debugMode = flag.Bool("debug", false, "enable debug diagnostics on fatal errors")
)

func atExit(h *heap.Heap, err error) {
	if err == nil {
		return
	}
	if !*debugMode {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%+v\n", err)
	if h != nil {
		debug.DumpHeap(os.Stderr, h)
	}
	os.Exit(1)
}

func main() {
	flag.Parse()

	var src io.Reader = os.Stdin
	interactive := true
	if args := flag.Args(); len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			atExit(nil, errors.Wrap(err, "opening source file"))
		}
		defer f.Close()
		src = f
		interactive = false
	}

	h := heap.New(heap.Capacity(*heapSize))
	syms := symbol.New()
	in := bufio.NewReader(src)
	rd := reader.New(in, sourceName(interactive, flag.Args()), h, syms)

	out := ioutil.NewErrWriter(os.Stdout)
	ev := eval.New(h, syms, eval.Stdout(out), eval.Stdin(rd))
	env, err := ev.GlobalEnv()
	if err != nil {
		atExit(h, err)
	}

	for {
		expr, err := rd.Read()
		if err == io.EOF {
			break
		}
		if serr, ok := err.(*reader.SyntaxError); ok {
			fmt.Fprintln(os.Stderr, serr.Error())
			continue
		}
		if err != nil {
			atExit(h, errors.Wrap(err, "reading expression"))
		}

		val, err := ev.Eval(expr, env)
		if err != nil {
			atExit(h, errors.Wrap(err, "evaluating expression"))
		}

		if interactive {
			if err := heap.Fprint(out, h, syms, val); err != nil {
				atExit(h, err)
			}
			fmt.Fprintln(out)
		}
		if out.Err != nil {
			atExit(h, out.Err)
		}
	}

	if *execStats {
		debug.DumpHeap(os.Stderr, h)
		debug.DumpEval(os.Stderr, ev)
	}
}

func sourceName(interactive bool, args []string) string {
	if interactive {
		return "stdin"
	}
	return args[0]
}
