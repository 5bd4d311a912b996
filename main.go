package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/autogroup/internal/applog"
	"github.com/lotas/autogroup/internal/config"
	"github.com/lotas/autogroup/internal/daemon"
	"github.com/lotas/autogroup/internal/export"
	"github.com/lotas/autogroup/internal/firefox"
	"github.com/lotas/autogroup/internal/preview"
	"github.com/lotas/autogroup/internal/rules"
	"github.com/lotas/autogroup/internal/server"
	"github.com/lotas/autogroup/internal/storage"
	"github.com/lotas/autogroup/internal/tui"
)

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		runServe(args)
	case "rules":
		runRules(args)
	case "add":
		runAdd(args)
	case "status":
		runStatus(args)
	case "list":
		runList(args)
	case "toggle":
		runToggle(args)
	case "delete":
		runDelete(args)
	case "export":
		runExport(args)
	case "import":
		runImport(args)
	case "preview":
		runPreview(args)
	case "profiles":
		runProfiles()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n\n", cmd)
		printHelp()
		os.Exit(2)
	}
}

func printHelp() {
	fmt.Print(`autogroup — rule-based tab grouping

Usage:
  autogroup [serve]                                    Run the daemon (default)
    --config <file>        YAML config file (env: AUTOGROUP_CONFIG)
    --port <n>             WebSocket port (default: 19192)
    --verbose              Mirror log lines to stderr

  autogroup rules                                      Edit rules in the TUI
  autogroup add --group <name> --pattern <p> [...]     Add a rule
    --name <name>          Rule name
    --color <color>        Group color (default: grey)
    --pattern <p>          URL substring; repeat or comma-separate
    --disabled             Store the rule disabled
  autogroup status                                     Print how many rules are active
  autogroup list                                       List rules
  autogroup toggle <id>                                Enable or disable a rule
  autogroup delete <id>                                Delete a rule

  autogroup export                                     Export rules to stdout or file
    --json                 Export as JSON instead of markdown
    --out <file>           Output file path (default: stdout)
    --pretty               Render markdown for the terminal
  autogroup import <file>                              Replace all rules from a JSON export

  autogroup preview                                    Show how a Firefox session would be grouped
    --profile <name>       Firefox profile name
  autogroup profiles                                   List Firefox profiles

All rule commands accept --config <file>.

Environment:
  AUTOGROUP_CONFIG       Config file path
  AUTOGROUP_PORT         WebSocket port
  AUTOGROUP_DB           Rule database path
  AUTOGROUP_LOG_DIR      Log directory
  AUTOGROUP_PROFILE      Default Firefox profile (overridden by --profile flag)
`)
}

func fatal(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", a...)
	os.Exit(1)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fatal("%v", err)
	}
	return cfg
}

// openStore opens the rule database and seeds the default rule on first use.
func openStore(cfg *config.Config) *storage.RuleStore {
	db, err := storage.OpenDB(cfg.Rules.DBPath)
	if err != nil {
		fatal("open database: %v", err)
	}
	store := storage.NewRuleStore(db)
	if _, err := store.Seed(); err != nil {
		fatal("seed rules: %v", err)
	}
	return store
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	port := fs.Int("port", 0, "WebSocket port")
	verbose := fs.Bool("verbose", false, "Mirror log lines to stderr")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *port != 0 {
		cfg.Server.Port = *port
		if err := cfg.Validate(); err != nil {
			fatal("%v", err)
		}
	}

	if err := applog.Init(cfg.Log.Dir); err != nil {
		fatal("init log: %v", err)
	}
	defer applog.Close()
	if *verbose {
		applog.Mirror(os.Stderr)
	}

	store := openStore(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server.Port)
	fmt.Fprintf(os.Stderr, "autogroup listening on 127.0.0.1:%d\n", cfg.Server.Port)
	if err := daemon.New(cfg, srv, store).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		applog.Error("serve", err)
		fatal("%v", err)
	}
}

func runRules(args []string) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	fs.Parse(args)

	store := openStore(loadConfig(*configPath))
	p := tea.NewProgram(tui.NewModel(store), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal("%v", err)
	}
}

// patternFlag collects repeated --pattern values; each may hold several
// comma-separated patterns.
type patternFlag []string

func (p *patternFlag) String() string {
	return strings.Join(*p, ",")
}

func (p *patternFlag) Set(v string) error {
	*p = append(*p, strings.Split(v, ",")...)
	return nil
}

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	name := fs.String("name", "", "Rule name")
	group := fs.String("group", "", "Group name")
	color := fs.String("color", "", "Group color")
	disabled := fs.Bool("disabled", false, "Store the rule disabled")
	var patterns patternFlag
	fs.Var(&patterns, "pattern", "URL substring (repeatable, comma-separated)")
	fs.Parse(args)

	c, err := rules.ParseColor(*color)
	if err != nil {
		fatal("%v", err)
	}

	store := openStore(loadConfig(*configPath))
	r, err := store.Add(rules.Rule{
		Name:       strings.TrimSpace(*name),
		Pattern:    rules.NormalizePatterns(patterns),
		GroupName:  strings.TrimSpace(*group),
		GroupColor: c,
		Enabled:    !*disabled,
	})
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Added rule %s: %s → %s (%s)\n", r.ID, strings.Join(r.Pattern, ", "), r.GroupName, r.Color())
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	fs.Parse(args)

	rs, err := openStore(loadConfig(*configPath)).Rules()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(statusLine(rs))
}

func statusLine(rs []rules.Rule) string {
	n := rules.CountEnabled(rs)
	noun := "rules"
	if n == 1 {
		noun = "rule"
	}
	return fmt.Sprintf("%d %s active", n, noun)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	fs.Parse(args)

	rs, err := openStore(loadConfig(*configPath)).Rules()
	if err != nil {
		fatal("%v", err)
	}
	if len(rs) == 0 {
		fmt.Println("No rules.")
		return
	}
	for _, r := range rs {
		state := "on "
		if !r.Enabled {
			state = "off"
		}
		fmt.Printf("[%s] %-36s %s (%s): %s\n", state, r.ID, r.GroupName, r.Color(), strings.Join(r.Pattern, ", "))
	}
	fmt.Println(statusLine(rs))
}

func idArg(fs *flag.FlagSet, args []string) string {
	fs.Parse(reorderArgs(args))
	if fs.NArg() != 1 {
		fatal("%s needs exactly one rule id", fs.Name())
	}
	return fs.Arg(0)
}

func runToggle(args []string) {
	fs := flag.NewFlagSet("toggle", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	id := idArg(fs, args)

	r, err := openStore(loadConfig(*configPath)).Toggle(id)
	if err != nil {
		fatal("%v", err)
	}
	state := "enabled"
	if !r.Enabled {
		state = "disabled"
	}
	fmt.Printf("Rule %s %s\n", r.ID, state)
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	id := idArg(fs, args)

	if err := openStore(loadConfig(*configPath)).Delete(id); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Deleted rule %s\n", id)
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	jsonFlag := fs.Bool("json", false, "Export as JSON instead of markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	pretty := fs.Bool("pretty", false, "Render markdown for the terminal")
	fs.Parse(args)

	rs, err := openStore(loadConfig(*configPath)).Rules()
	if err != nil {
		fatal("%v", err)
	}

	var output string
	if *jsonFlag {
		output, err = export.JSON(rs, time.Now())
		if err != nil {
			fatal("generating JSON: %v", err)
		}
	} else {
		output = export.Markdown(rs, time.Now())
		if *pretty && *outFile == "" {
			output = export.Render(output, "dark", 100)
		}
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			fatal("writing file: %v", err)
		}
		return
	}
	fmt.Print(output)
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	path := idArg(fs, args)

	data, err := os.ReadFile(path)
	if err != nil {
		fatal("%v", err)
	}
	rs, err := export.ParseJSON(data)
	if err != nil {
		fatal("%v", err)
	}
	rs, err = openStore(loadConfig(*configPath)).Import(rs)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Imported %d rules; %s\n", len(rs), statusLine(rs))
}

func runPreview(args []string) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	profileName := fs.String("profile", "", "Firefox profile name")
	fs.Parse(args)

	rs, err := openStore(loadConfig(*configPath)).Rules()
	if err != nil {
		fatal("%v", err)
	}

	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal("discover profiles: %v", err)
	}
	profile, err := firefox.SelectProfile(profiles, resolveProfileName(*profileName))
	if err != nil {
		fatal("%v", err)
	}
	session, err := firefox.ReadSessionFile(profile.Path)
	if err != nil {
		fatal("read session: %v", err)
	}
	session.Profile = profile

	fmt.Printf("Profile: %s (%d tabs, %s)\n", profile.Name, len(session.AllTabs), statusLine(rs))
	fmt.Print(preview.FormatDryRun(preview.Plan(session, rs)))
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal("discovering Firefox profiles: %v", err)
	}
	if len(profiles) == 0 {
		fmt.Fprintln(os.Stderr, "No Firefox profiles found.")
		os.Exit(1)
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

// resolveProfileName returns the profile name from the flag if set,
// otherwise falls back to the AUTOGROUP_PROFILE environment variable.
func resolveProfileName(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("AUTOGROUP_PROFILE")
}
