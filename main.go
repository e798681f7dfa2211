package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pulse-cli/internal/answer"
	"pulse-cli/internal/config"
	"pulse-cli/internal/display"
	"pulse-cli/internal/gemini"
	"pulse-cli/internal/logging"
	"pulse-cli/internal/render"
	"pulse-cli/internal/search"
	"pulse-cli/internal/service"
	"pulse-cli/internal/tui"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	activeProfile string
	jsonOutput    bool
)

func main() {
	args := parseGlobalFlags(os.Args[1:])

	if err := config.LoadEnv(); err != nil {
		display.Warn(err.Error())
	}

	if len(args) == 0 || args[0] == "-i" || args[0] == "--interactive" || args[0] == "interactive" {
		if err := runInteractive(); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	var err error

	switch args[0] {
	case "search", "ask":
		err = cmdSearch(args[1:])
	case "related":
		err = cmdRelated(args[1:])
	case "factcheck":
		err = cmdFactCheck(args[1:])
	case "summarize", "summary":
		err = cmdSummarize(args[1:])
	case "filters":
		err = cmdFilters()
	case "set":
		err = cmdSet(args[1:])
	case "config":
		err = cmdConfig()
	case "profiles":
		err = cmdProfiles()
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Println(versionString())
	default:
		display.Error(fmt.Sprintf("Unknown command: %s", args[0]))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		display.Error(gemini.UserMessage(err))
		os.Exit(1)
	}
}

func runInteractive() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	log := newLogger(cfg, false)
	defer log.Sync() //nolint:errcheck
	return tui.Run(version, activeProfile, log)
}

// ─── Setup helpers ──────────────────────────────────────────────────────────

func newLogger(cfg *config.Config, debug bool) *zap.Logger {
	if debug {
		return logging.NewDebug()
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogPath())
	if err != nil {
		return logging.Nop()
	}
	return log.With(zap.String("profile", config.ProfileName(activeProfile)))
}

func newBackend(cfg *config.Config, log *zap.Logger) (*search.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var holder gemini.Holder
	return service.NewBackend(&holder, cfg, log)
}

// interruptContext is cancelled on Ctrl-C so a running stream stops at
// the next fragment and the partial answer is kept.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// ─── search ─────────────────────────────────────────────────────────────────

type searchOptions struct {
	query       string
	filters     map[string]string
	highlight   string
	exportPath  string
	yaml        bool
	noFollowUps bool
	debug       bool
}

func parseSearchArgs(args []string) (searchOptions, error) {
	opts := searchOptions{filters: make(map[string]string)}
	filterNames := search.FilterNames()
	var positional []string

	value := func(i *int) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", args[*i])
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--highlight", "-H":
			v, err := value(&i)
			if err != nil {
				return opts, err
			}
			opts.highlight = v
		case "--export", "-o":
			v, err := value(&i)
			if err != nil {
				return opts, err
			}
			opts.exportPath = v
		case "--yaml":
			opts.yaml = true
		case "--no-followups":
			opts.noFollowUps = true
		case "--debug":
			opts.debug = true
		default:
			name := strings.TrimPrefix(arg, "--")
			if strings.HasPrefix(arg, "--") && slices.Contains(filterNames, name) {
				v, err := value(&i)
				if err != nil {
					return opts, err
				}
				opts.filters[name] = v
				continue
			}
			if strings.HasPrefix(arg, "--") {
				return opts, fmt.Errorf("unknown flag: %s", arg)
			}
			positional = append(positional, arg)
		}
	}
	opts.query = strings.TrimSpace(strings.Join(positional, " "))
	return opts, nil
}

func cmdSearch(args []string) error {
	opts, err := parseSearchArgs(args)
	if err != nil {
		return err
	}
	if opts.query == "" {
		fmt.Println(`Usage: pulse search "<question>" [--lang en] [--tone academic] [--highlight term] [--export file]`)
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  pulse search "What is the capital of Egypt?" --lang en`)
		fmt.Println(`  pulse ask "latest on the Nile dam" --time week --source news --export nile.md`)
		fmt.Println()
		fmt.Println("Run 'pulse filters' to list every filter flag.")
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	filters, err := service.LoadFilters(cfg)
	if err != nil {
		display.Warn(err.Error())
	}
	for _, name := range search.FilterNames() {
		if v, ok := opts.filters[name]; ok {
			if err := filters.Set(name, v); err != nil {
				return err
			}
		}
	}

	log := newLogger(cfg, opts.debug)
	defer log.Sync() //nolint:errcheck

	b, err := newBackend(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	quiet := jsonOutput || opts.yaml
	live := newLiveRegion(os.Stdout)
	width := live.width()
	if !quiet && !live.enabled {
		display.Spinner("Searching...")
	}

	stream, err := b.Search(ctx, opts.query, filters)
	if err != nil {
		if !quiet && !live.enabled {
			display.ClearLine()
		}
		return err
	}

	acc := answer.NewAccumulator(log)
	snap, err := acc.Run(ctx, stream, func(s answer.Snapshot) {
		if !quiet && live.enabled {
			live.redraw(display.RenderBlocks(render.RenderSnapshot(s, opts.highlight), width))
		}
	})
	live.clear()
	if !quiet && !live.enabled {
		display.ClearLine()
	}

	if !quiet && !snap.Empty() {
		fmt.Println(display.RenderBlocks(render.RenderSnapshot(snap, opts.highlight), width))
		fmt.Println()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			display.Warn("Search cancelled.")
			return nil
		}
		if !snap.Empty() {
			display.Warn("The answer above is incomplete.")
		}
		return err
	}
	if snap.Empty() {
		return fmt.Errorf("no answer was returned, try rephrasing the question")
	}

	result := service.Result{
		ID:        uuid.NewString(),
		Query:     opts.query,
		CreatedAt: time.Now().UTC(),
		Filters:   filters.Values(),
		Answer:    strings.TrimSpace(snap.Text),
		Sources:   snap.Sources,
	}

	if !opts.noFollowUps {
		if !quiet {
			display.Spinner("Finding related questions...")
		}
		f := service.RunFollowUps(ctx, b, opts.query, snap.Text)
		if !quiet {
			display.ClearLine()
		}
		result.Related = f.Related
		result.Insights = f.Insights
		if f.InsightsErr != nil {
			log.Warn("insights failed", zap.Error(f.InsightsErr))
		}
	}

	switch {
	case jsonOutput:
		if err := printJSON(result); err != nil {
			return err
		}
	case opts.yaml:
		out, err := service.ExportYAML(result)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
	default:
		fmt.Println(display.RenderSources(result.Sources))
		if out := display.RenderRelated(result.Related); out != "" {
			fmt.Println()
			fmt.Println(out)
		}
		if out := display.RenderInsights(result.Insights); out != "" {
			fmt.Println()
			fmt.Println(out)
		}
		fmt.Println()
	}

	if opts.exportPath != "" {
		if err := service.WriteExport(opts.exportPath, result); err != nil {
			return err
		}
		if !quiet {
			display.Success("Saved " + opts.exportPath)
		}
	}
	return nil
}

// ─── related ────────────────────────────────────────────────────────────────

func cmdRelated(args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		fmt.Println(`Usage: pulse related "<question>"`)
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	log := newLogger(cfg, false)
	b, err := newBackend(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	questions, err := b.RelatedQuestions(ctx, query)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(questions)
	}
	if len(questions) == 0 {
		display.Warn("No related questions found.")
		return nil
	}
	fmt.Println(display.RenderRelated(questions))
	return nil
}

// ─── factcheck / summarize ──────────────────────────────────────────────────

// readText takes the text from args, or from stdin when args is empty or
// a single "-".
func readText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func cmdFactCheck(args []string) error {
	text, err := readText(args, os.Stdin)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Println(`Usage: pulse factcheck "<text>"   or   cat answer.md | pulse factcheck -`)
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	b, err := newBackend(cfg, newLogger(cfg, false))
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	if !jsonOutput {
		display.Spinner("Checking claims against the web...")
	}
	res, err := b.FactCheck(ctx, text)
	if !jsonOutput {
		display.ClearLine()
	}
	if err != nil {
		return fmt.Errorf("fact check: %w", err)
	}
	if jsonOutput {
		return printJSON(res)
	}
	fmt.Println(display.RenderFactCheck(res))
	return nil
}

func cmdSummarize(args []string) error {
	detail := search.DetailBrief
	var rest []string
	for _, a := range args {
		switch a {
		case "--detailed", "-d":
			detail = search.DetailDetailed
		case "--brief":
			detail = search.DetailBrief
		default:
			rest = append(rest, a)
		}
	}

	text, err := readText(rest, os.Stdin)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Println(`Usage: pulse summarize [--detailed] "<text>"   or   cat notes.md | pulse summarize -`)
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	b, err := newBackend(cfg, newLogger(cfg, false))
	if err != nil {
		return err
	}

	ctx, stop := interruptContext()
	defer stop()

	if !jsonOutput {
		display.Spinner(fmt.Sprintf("Writing a %s summary...", detail))
	}
	out, err := b.Summarize(ctx, text, detail)
	if !jsonOutput {
		display.ClearLine()
	}
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if jsonOutput {
		return printJSON(map[string]string{"detail": string(detail), "summary": out})
	}
	fmt.Println(display.RenderMarkdown(out, newLiveRegion(os.Stdout).width()))
	return nil
}

// ─── filters / set / config ─────────────────────────────────────────────────

func cmdFilters() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	filters, err := service.LoadFilters(cfg)
	if err != nil {
		display.Warn(err.Error())
	}

	if jsonOutput {
		values := make(map[string]string)
		for _, name := range search.FilterNames() {
			values[name] = filters.Get(name)
		}
		return printJSON(values)
	}

	display.Header("Search filters")
	for _, name := range search.FilterNames() {
		v := filters.Get(name)
		if v == "" {
			v = display.Dim + "(any)" + display.Reset
		}
		display.Info("--"+name, v+"  "+display.Gray+search.FilterHelp(name)+display.Reset)
	}
	fmt.Println()
	fmt.Printf("  %sStore a default with%s pulse set <filter> <value>\n\n", display.Dim, display.Reset)
	return nil
}

func cmdSet(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: pulse set <key> <value>")
		fmt.Println()
		fmt.Println("Keys:")
		fmt.Println("  key              Gemini API key")
		fmt.Println("  model            Model for answers (default " + config.DefaultModel + ")")
		fmt.Println("  reasoning-model  Model for fact checks (default " + config.DefaultReasoningModel + ")")
		fmt.Println("  base-url         API endpoint")
		fmt.Println("  rps              Requests per second (default 2)")
		fmt.Println("  log-level        debug, info, warn or error")
		fmt.Println("  log-file         Log file path")
		fmt.Println()
		fmt.Println("Any filter from 'pulse filters' can be stored too; an empty value resets it.")
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	key := strings.ToLower(args[0])
	value := strings.Join(args[1:], " ")

	shown := value
	if slices.Contains(search.FilterNames(), key) {
		filters, _ := service.LoadFilters(cfg)
		if err := filters.Set(key, value); err != nil {
			return err
		}
		cfg.Filters = filters.Values()
		shown = filters.Get(key)
	} else {
		if value == "" {
			return fmt.Errorf("%s requires a value", key)
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if key == "key" {
			shown = config.MaskKey(value)
		}
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("%s set to %s", key, shown))
	return nil
}

func cmdConfig() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	notSet := display.Dim + "(not set)" + display.Reset
	key := notSet
	if k := cfg.EffectiveAPIKey(); k != "" {
		key = config.MaskKey(k) + " " + display.Dim + "(" + cfg.KeySource() + ")" + display.Reset
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"profile":         config.ProfileName(activeProfile),
			"api_key":         config.MaskKey(cfg.EffectiveAPIKey()),
			"model":           cfg.ModelName(),
			"reasoning_model": cfg.ReasoningModelName(),
			"base_url":        cfg.Endpoint(),
			"rps":             cfg.RPS(),
			"log_file":        cfg.LogPath(),
			"filters":         cfg.Filters,
		})
	}

	display.Header("Pulse Configuration")
	display.Info("Profile:", config.ProfileName(activeProfile))
	display.Info("API key:", key)
	display.Info("Model:", cfg.ModelName())
	display.Info("Reasoning model:", cfg.ReasoningModelName())
	display.Info("Endpoint:", cfg.Endpoint())
	display.Info("Requests/sec:", fmt.Sprintf("%g", cfg.RPS()))
	logFile := cfg.LogPath()
	if logFile == "" {
		logFile = notSet
	}
	display.Info("Log file:", logFile)

	if len(cfg.Filters) == 0 {
		display.Info("Filters:", display.Dim+"(defaults)"+display.Reset)
	} else {
		for _, name := range slices.Sorted(maps.Keys(cfg.Filters)) {
			display.Info("Filter "+name+":", cfg.Filters[name])
		}
	}
	fmt.Println()

	return nil
}

func cmdProfiles() error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(profiles)
	}

	display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

	if len(profiles) == 0 {
		display.Warn("No profiles found.")
		return nil
	}

	for _, p := range profiles {
		marker := " "
		if p == config.ProfileName(activeProfile) {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, p)
	}
	fmt.Println()

	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func parseGlobalFlags(args []string) []string {
	var remaining []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--profile":
			if i+1 < len(args) {
				i++
				activeProfile = args[i]
			}
			continue
		case "-j", "--json":
			jsonOutput = true
			continue
		}
		remaining = append(remaining, args[i])
	}
	return remaining
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func versionString() string {
	s := "pulse " + version
	if commit != "none" && commit != "" {
		s += fmt.Sprintf("\n  commit: %s\n  built:  %s", commit, date)
	}
	return s
}

func printUsage() {
	fmt.Printf(`%sPulse%s · cited answers from the web (%s)

%sUsage:%s
  pulse                                            Launch interactive mode (default)
  pulse [--profile <name>] [-j] <command> [args]   Run a specific command

%sGetting Started:%s
  set key <api-key>         Store your Gemini API key (or export GEMINI_API_KEY)
  config                    Show current configuration

%sSearching:%s
  search|ask "<question>"   Stream a cited answer, then sources and related questions
    --<filter> <value>      Any filter, e.g. --lang en --tone academic --time week
    -H, --highlight <term>  Highlight a term in the answer
    -o, --export <file>     Save as markdown, or YAML for .yaml/.yml
    --yaml                  Print the full result as YAML
    --no-followups          Skip related questions and insights
    --debug                 Log to stderr
  related "<question>"      Suggest follow-up questions
  factcheck [<text>|-]      Check the claims in a text (stdin with -)
  summarize [--detailed] [<text>|-]
                            Summarize a text

%sSettings:%s
  filters                   List search filters and their defaults
  set <filter> <value>      Store a default filter (empty value resets it)
  set model <name>          Model for answers
  set rps <n>               Request rate limit

%sProfiles:%s
  profiles                  List all config profiles
  --profile <name>          Use a named config profile (default: unnamed)
  -j, --json                JSON output for scripting

%sExamples:%s
  pulse                                              # Start interactive mode
  pulse set key AIza...
  pulse search "What is the capital of Egypt?" --lang en
  pulse ask "Nile dam negotiations" --time week --source news --export nile.md
  cat article.txt | pulse factcheck -
  pulse --profile work config

`, display.Bold, display.Reset, version,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset)
}
