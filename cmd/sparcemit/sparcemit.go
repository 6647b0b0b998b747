package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"

	"github.com/tetratelabs/sparcemit"
	"github.com/tetratelabs/sparcemit/internal/dwarfline"
	"github.com/tetratelabs/sparcemit/internal/irfile"
	"github.com/tetratelabs/sparcemit/internal/logging"
	"github.com/tetratelabs/sparcemit/internal/version"
	"github.com/tetratelabs/sparcemit/mir"
)

func main() {
	doMain(os.Stdout, os.Stderr, atexit.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "emit":
		doEmit(flag.Args()[1:], stdOut, stdErr, exit)
	case "lines":
		doLines(flag.Args()[1:], stdOut, stdErr, exit)
	case "version":
		fmt.Fprintln(stdOut, version.GetVersion())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

// emitConfig is the content of the -config file. Flags set on the command
// line override it.
type emitConfig struct {
	Debug       string `toml:"debug"`
	MaxCodeSize int    `toml:"max-code-size"`
	LogScopes   string `toml:"log-scopes"`
	CacheDir    string `toml:"cache-dir"`
	CacheDB     string `toml:"cache-db"`
}

func loadConfig(path string) (cfg emitConfig, err error) {
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

func doEmit(args []string, stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("emit", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var outPath string
	flags.StringVar(&outPath, "o", "", "Path of the machine code output. Defaults to the input path with the .bin extension.")

	var linesPath string
	flags.StringVar(&linesPath, "lines", "", "Path of the DWARF line program output. Implies -debug=dwarf.")

	var listing bool
	flags.BoolVar(&listing, "listing", false, "Print the offset and word of every instruction.")

	var configPath string
	flags.StringVar(&configPath, "config", "", "TOML file with the defaults of the debug, max-code-size, log-scopes, cache-dir and cache-db options.")

	var cfg emitConfig
	flags.StringVar(&cfg.Debug, "debug", "", "Debug information: none, dwarf or reduced.")
	flags.IntVar(&cfg.MaxCodeSize, "max-code-size", 0, "Maximum size in bytes of the machine code. Zero means no limit.")
	var logScopes logScopesFlag
	flags.Var(&logScopes, "logscopes",
		"A comma-separated list of scopes to log to stderr. "+
			"This may be specified multiple times. Supported values: all,branch,encode,debugline,cache")
	cacheDir := cacheDirFlag(flags)
	flags.StringVar(&cfg.CacheDB, "cache-db", "", "SQLite database of machine code reused for the same version of sparcemit.")

	_ = flags.Parse(args)
	cfg.LogScopes = string(logScopes)
	cfg.CacheDir = *cacheDir

	if help {
		printEmitUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to machine IR file")
		printEmitUsage(stdErr, flags)
		exit(1)
	}
	mirPath := flags.Arg(0)

	if configPath != "" {
		fileCfg, err := loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(stdErr, "invalid config: %v\n", err)
			exit(1)
		}
		cfg = mergeConfig(flags, fileCfg, cfg)
	}
	if linesPath != "" && cfg.Debug == "" {
		cfg.Debug = "dwarf"
	}

	debug, err := parseDebugKind(cfg.Debug)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid debug: %v\n", err)
		exit(1)
	}
	if (debug == sparcemit.DebugDWARF) != (linesPath != "") {
		fmt.Fprintln(stdErr, "-debug=dwarf requires -lines and the reverse")
		exit(1)
	}
	if cfg.MaxCodeSize < 0 {
		fmt.Fprintf(stdErr, "invalid max-code-size: %d\n", cfg.MaxCodeSize)
		exit(1)
	}
	if cfg.CacheDir != "" && cfg.CacheDB != "" {
		fmt.Fprintln(stdErr, "cachedir and cache-db are mutually exclusive")
		exit(1)
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(mirPath, filepath.Ext(mirPath)) + ".bin"
	}

	b, err := os.ReadFile(mirPath)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading machine IR: %v\n", err)
		exit(1)
	}
	fns, err := irfile.Unmarshal(b)
	if err != nil {
		fmt.Fprintf(stdErr, "error decoding machine IR: %v\n", err)
		exit(1)
	}

	configureLogging(cfg.LogScopes, stdErr)

	var lines bytes.Buffer
	ec := sparcemit.NewEmitConfig().
		WithDebugOutput(debug).
		WithMaxCodeSize(cfg.MaxCodeSize).
		WithLogScopes(cfg.LogScopes)
	if debug == sparcemit.DebugDWARF {
		ec = ec.WithLineProgram(sparcemit.NewDWARFLineProgram(&lines))
	}
	if cache := maybeUseCache(cfg.CacheDir, cfg.CacheDB, stdErr, exit); cache != nil {
		// Closed by atexit.Exit as well as on return.
		closer := atexit.Register(func() { _ = cache.Close() })
		defer func() {
			_ = closer.Cancel()
			_ = cache.Close()
		}()
		ec = ec.WithCache(cache)
	}

	e, err := sparcemit.NewEmitter(ec)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid config: %v\n", err)
		exit(1)
	}

	codes := make([]sparcemit.FunctionCode, 0, len(fns))
	for _, fn := range fns {
		code, err := e.EmitFunction(fn)
		if err != nil {
			fmt.Fprintf(stdErr, "error emitting %s: %v\n", fn.Name, err)
			exit(1)
		}
		codes = append(codes, code)
	}

	if err = writeOutput(outPath, e.Code()); err != nil {
		fmt.Fprintf(stdErr, "error writing machine code: %v\n", err)
		exit(1)
	}
	if linesPath != "" {
		if err = writeOutput(linesPath, lines.Bytes()); err != nil {
			fmt.Fprintf(stdErr, "error writing line program: %v\n", err)
			exit(1)
		}
	}

	if listing {
		printListing(stdOut, fns, codes, e.Code())
	}
	exit(0)
}

// mergeConfig returns fileCfg overridden by the flags set on the command
// line. Either cache flag replaces both cache options of the file.
func mergeConfig(flags *flag.FlagSet, fileCfg, flagCfg emitConfig) emitConfig {
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			fileCfg.Debug = flagCfg.Debug
		case "max-code-size":
			fileCfg.MaxCodeSize = flagCfg.MaxCodeSize
		case "logscopes":
			fileCfg.LogScopes = flagCfg.LogScopes
		case "cachedir", "cache-db":
			fileCfg.CacheDir = flagCfg.CacheDir
			fileCfg.CacheDB = flagCfg.CacheDB
		}
	})
	return fileCfg
}

// writeOutput writes b to path, removing the file if the program exits
// before it is complete.
func writeOutput(path string, b []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cleanup := atexit.Register(func() { _ = os.Remove(path) })
	if _, err = f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return cleanup.Cancel()
}

func parseDebugKind(s string) (sparcemit.DebugKind, error) {
	switch s {
	case "", "none":
		return sparcemit.DebugNone, nil
	case "dwarf":
		return sparcemit.DebugDWARF, nil
	case "reduced":
		return sparcemit.DebugReduced, nil
	}
	return 0, fmt.Errorf("unknown debug output %q", s)
}

// configureLogging sends the logs of the enabled scopes to stdErr.
func configureLogging(scopes string, stdErr io.Writer) {
	backend := simple.NewBackend()
	backend.Buffered = false
	if scopes == "" {
		backend.Configure(-4, nil) // none
	} else {
		backend.Configure(2, nil) // debug
		backend.Writer = stdErr
	}
	commonlog.SetBackend(backend)
}

func printListing(stdOut io.Writer, fns []*mir.Function, codes []sparcemit.FunctionCode, code []byte) {
	t := table.NewWriter()
	t.SetOutputMirror(stdOut)
	t.AppendHeader(table.Row{"Function", "Index", "Offset", "Word", "Instruction"})
	for i, fn := range fns {
		c := codes[i]
		for j, inst := range fn.Insts {
			offset := c.Offset + int(c.Offsets[j])
			word := ""
			if !mir.IsDebugMarker(inst) {
				word = fmt.Sprintf("%08x", binary.BigEndian.Uint32(code[offset:]))
			}
			t.AppendRow(table.Row{fn.Name, j, fmt.Sprintf("%#x", offset), word, inst.String()})
		}
		t.AppendSeparator()
	}
	t.Render()
}

func doLines(args []string, stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("lines", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	var line int64
	flags.Int64Var(&line, "line", 1, "Line of the function declaration, which is where the line program starts.")

	_ = flags.Parse(args)

	if help {
		printLinesUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to line program file")
		printLinesUsage(stdErr, flags)
		exit(1)
	}

	b, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stdErr, "error reading line program: %v\n", err)
		exit(1)
	}
	rows, err := dwarfline.Decode(b, line)
	if err != nil {
		fmt.Fprintf(stdErr, "error decoding line program: %v\n", err)
		exit(1)
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdOut)
	t.AppendHeader(table.Row{"Address", "Line", "Flags"})
	for _, r := range rows {
		var flags []string
		if r.PrologueEnd {
			flags = append(flags, "prologue_end")
		}
		if r.EpilogueBegin {
			flags = append(flags, "epilogue_begin")
		}
		t.AppendRow(table.Row{fmt.Sprintf("%#x", r.Address), r.Line, strings.Join(flags, ",")})
	}
	t.Render()
	exit(0)
}

func cacheDirFlag(flags *flag.FlagSet) *string {
	return flags.String("cachedir", "", "Writeable directory for machine code emitted from machine IR. "+
		"Contents are re-used for the same version of sparcemit.")
}

func maybeUseCache(cacheDir, cacheDB string, stdErr io.Writer, exit func(code int)) (cache sparcemit.Cache) {
	var err error
	switch {
	case cacheDir != "":
		cache = sparcemit.NewCache()
		if err = cache.WithCompilationCacheDirName(cacheDir); err != nil {
			fmt.Fprintf(stdErr, "invalid cachedir: %v\n", err)
			exit(1)
		}
	case cacheDB != "":
		cache = sparcemit.NewCache()
		if err = cache.WithCompilationCacheDB(cacheDB); err != nil {
			fmt.Fprintf(stdErr, "invalid cache-db: %v\n", err)
			exit(1)
		}
	}
	return
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "sparcemit CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  sparcemit <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  emit\t\tEmits SPARC V9 machine code from a machine IR file")
	fmt.Fprintln(stdErr, "  lines\t\tPrints the rows of a DWARF line program")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of sparcemit CLI")
}

func printEmitUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "sparcemit CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  sparcemit emit <options> <path to machine IR file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

func printLinesUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "sparcemit CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  sparcemit lines <options> <path to line program file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

// logScopesFlag accumulates comma-separated log scopes, validated by Set.
type logScopesFlag string

func (f *logScopesFlag) String() string {
	return string(*f)
}

func (f *logScopesFlag) Set(input string) error {
	if _, err := logging.ParseLogScopes(input); err != nil {
		return err
	}
	if *f != "" {
		*f += ","
	}
	*f += logScopesFlag(input)
	return nil
}
