// Command mlogevo compiles a C source file (the dialect spec.md §1-§3
// define, including the sensor-field struct and extended inline asm) down
// to mlog assembly, wiring together the parser, lowering, inlining, and
// optimization packages into one CLI (spec.md §6/§7), grounded on the
// teacher's cmd/kanso-cli/main.go (read file, parse, report errors,
// succeed) generalized to the full multi-stage pipeline and flag surface
// the original Python compiler's argument parser exposes.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/UMRnInside/MlogEvo/internal/blocks"
	"github.com/UMRnInside/MlogEvo/internal/emit"
	"github.com/UMRnInside/MlogEvo/internal/errors"
	"github.com/UMRnInside/MlogEvo/internal/inline"
	"github.com/UMRnInside/MlogEvo/internal/ir"
	"github.com/UMRnInside/MlogEvo/internal/logging"
	"github.com/UMRnInside/MlogEvo/internal/lower"
	"github.com/UMRnInside/MlogEvo/internal/optimize"
	"github.com/UMRnInside/MlogEvo/internal/parser"
)

// repeatedFlag collects every occurrence of a flag given more than once on
// the command line (-D, -I, -f, -m), since flag.String only keeps the last.
type repeatedFlag []string

func (r *repeatedFlag) String() string { return strings.Join(*r, ",") }
func (r *repeatedFlag) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("mlogevo", flag.ContinueOnError)
	var (
		output         = fs.String("o", "", "output file (default: stdout)")
		optLevel       = fs.Int("O", 1, "optimization level: 0, 1, 2, or 3")
		defines        repeatedFlag
		includes       repeatedFlag
		passFlags      repeatedFlag
		machineFlags   repeatedFlag
		printBlocks    = fs.Bool("print-basic-blocks", false, "log each function's basic blocks at info level before emitting code")
		skipPreprocess = fs.Bool("skip-preprocess", false, "skip invoking the C preprocessor")
		march          = fs.String("march", "mlog", "target architecture (only \"mlog\" is supported)")
		mtarget        = fs.String("mtarget", "mlog", "emission target: mlog or mlogev_ir")
		logLevel       = fs.String("log-level", "info", "error, warn, info, or debug")
		logFile        = fs.String("log-file", "", "write log output to this file instead of stderr")
	)
	fs.Var(&defines, "D", "define a preprocessor macro (repeatable)")
	fs.Var(&includes, "I", "add a preprocessor include directory (repeatable)")
	fs.Var(&passFlags, "f", "enable/disable an optimization pass: name or no-name (repeatable)")
	fs.Var(&machineFlags, "m", "enable/disable a machine-dependent feature: name or no-name (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: mlogevo [flags] <file.c>")
		return 1
	}
	if *march != "mlog" {
		fmt.Fprintf(os.Stderr, "mlogevo: error: unsupported -march %q\n", *march)
		return 1
	}

	var log *logging.Logger
	if *logFile != "" {
		f, err := os.Create(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mlogevo: error: %s\n", err)
			return 1
		}
		defer f.Close()
		log = logging.New(f, logging.ParseLevel(*logLevel))
	} else {
		log = logging.New(os.Stderr, logging.ParseLevel(*logLevel))
	}

	path := fs.Arg(0)
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mlogevo: error: %s\n", err)
		return 1
	}

	source := string(raw)
	if !*skipPreprocess {
		pre, err := preprocess(path, defines, includes, *march)
		if err != nil {
			log.Warnf("preprocessing failed, compiling unpreprocessed source: %s", err)
		} else {
			source = pre
		}
	}

	prog, err := parser.Parse(path, source)
	if err != nil {
		return reportError(path, source, err)
	}

	mod, err := lower.Lower(prog)
	if err != nil {
		return reportError(path, source, err)
	}

	cfg := optimize.Config{Level: *optLevel, Flags: parseFlagMap(passFlags, machineFlags)}

	if *optLevel >= 1 {
		inline.InlineAll(mod)
	}
	if err := optimize.Run(mod, cfg); err != nil {
		return reportError(path, source, err)
	}

	if *printBlocks {
		printBasicBlocks(log, mod)
	}

	out, err := renderOutput(mod, *mtarget, cfg.Flags["strict-32bit"], cfg.Flags["keep-labels"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "mlogevo: error: %s\n", err)
		return 1
	}

	if *output == "" || *output == "-" {
		fmt.Println(out)
		return 0
	}
	if err := os.WriteFile(*output, []byte(out+"\n"), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "mlogevo: error: %s\n", err)
		return 1
	}
	return 0
}

func renderOutput(mod *ir.Module, mtarget string, strict32, keepLabels bool) (string, error) {
	switch mtarget {
	case "mlogev_ir":
		var globals []*ir.Quadruple
		for _, gv := range mod.Globals {
			if gv.Init != nil {
				globals = append(globals, gv.Init)
			}
		}
		return ir.DumpProgram(globals, mod.OrderedFunctions()), nil
	case "mlog":
		return emit.Emit(mod, emit.Options{Strict32: strict32, KeepLabels: keepLabels})
	default:
		return "", fmt.Errorf("unsupported -mtarget %q", mtarget)
	}
}

func parseFlagMap(passFlags, machineFlags repeatedFlag) map[string]bool {
	out := make(map[string]bool)
	apply := func(list repeatedFlag) {
		for _, raw := range list {
			if strings.HasPrefix(raw, "no-") {
				out[strings.TrimPrefix(raw, "no-")] = false
			} else {
				out[raw] = true
			}
		}
	}
	apply(passFlags)
	apply(machineFlags)
	return out
}

func printBasicBlocks(log *logging.Logger, mod *ir.Module) {
	for _, fn := range mod.Functions {
		log.Infof("function %s:", fn.Name)
		for _, b := range blocks.Build(fn) {
			log.Infof("  block %d (continues=%v, jumps-to=%d):", b.ID, b.WillContinue, b.JumpDestination)
			for _, q := range b.Instructions {
				log.Infof("    %s", q.Dump())
			}
		}
	}
}

// archIDs maps a -march value to the numeric id injected as MLOGEV_ARCH,
// letting preprocessed source distinguish target architectures with #if.
var archIDs = map[string]string{"mlog": "1"}

// preprocess shells out to the C preprocessor ($CPP, defaulting to "cpp"),
// falling back to the unpreprocessed source if the tool is unavailable —
// the dialect's extended asm/attribute syntax is hand-lexed either way, so
// a missing cpp only costs macro/include expansion, not compilability.
func preprocess(path string, defines, includes repeatedFlag, march string) (string, error) {
	cpp := os.Getenv("CPP")
	if cpp == "" {
		cpp = "cpp"
	}
	if _, err := exec.LookPath(cpp); err != nil {
		return "", err
	}
	args := []string{"-E", "-P", "-DMLOGEV_ARCH=" + archIDs[march]}
	for _, d := range defines {
		args = append(args, "-D"+d)
	}
	for _, inc := range includes {
		args = append(args, "-I"+inc)
	}
	args = append(args, path)
	cmd := exec.Command(cpp, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func reportError(path, source string, err error) int {
	ce, ok := err.(*errors.CompilerError)
	if !ok {
		fmt.Fprintf(os.Stderr, "mlogevo: error: %s\n", err)
		return 1
	}
	reporter := errors.NewReporter(path, source)
	fmt.Fprintln(os.Stderr, reporter.Minimal(ce))
	return 1
}
