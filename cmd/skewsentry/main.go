// Command skewsentry is the CLI entry point for the training/serving skew
// checker (SPEC_FULL.md §10), shaped after the teacher's cmd/cli/main.go:
// a subcommand switch, one flag.FlagSet per subcommand, exit-code discipline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/yourorg/skewsentry/internal/adapter"
	"github.com/yourorg/skewsentry/internal/config"
	"github.com/yourorg/skewsentry/internal/contract"
	"github.com/yourorg/skewsentry/internal/devserver"
	"github.com/yourorg/skewsentry/internal/explain"
	"github.com/yourorg/skewsentry/internal/inputs"
	"github.com/yourorg/skewsentry/internal/report"
	"github.com/yourorg/skewsentry/internal/runner"
	"github.com/yourorg/skewsentry/internal/table"

	// examples/offline and examples/online register themselves under
	// "examples-offline"/"examples-online" for --offline/--online to refer
	// to by name without a separate plugin mechanism.
	_ "github.com/yourorg/skewsentry/examples/offline"
	_ "github.com/yourorg/skewsentry/examples/online"
)

// version is set at build time via -ldflags; "dev" otherwise.
var version = "dev"

const usage = `SkewSentry CLI - detect training/serving skew in feature pipelines

Usage:
  skewsentry <command> [options]

Commands:
  check     Run an offline/online comparison and report the result
  init      Infer a starter feature spec from a sample input file
  serve     Run a local mock online-feature HTTP service
  version   Print version information

Run 'skewsentry <command> --help' for more information on a command.

Examples:
  skewsentry check --spec spec.yml --data data.csv --offline examples-offline --online examples-online
  skewsentry init --spec spec.yml --data data.csv --keys user_id,txn_seq
  skewsentry serve --port 8089
`

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	_ = godotenv.Load()

	if len(args) < 2 {
		fmt.Print(usage)
		return 2
	}

	switch args[1] {
	case "check":
		return runCheck(args[2:])
	case "init":
		return runInit(args[2:])
	case "serve":
		return runServe(args[2:])
	case "version", "-v", "--version":
		fmt.Printf("skewsentry version %s\n", version)
		return 0
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[1])
		fmt.Print(usage)
		return 2
	}
}

// runCheck implements `skewsentry check`. Exit codes per spec.md §6: 0 ok,
// 1 report failed (a real skew was found), 2 configuration/load error.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	specPath := fs.String("spec", "", "Feature spec YAML path (required)")
	dataPath := fs.String("data", "", "Input data file (.csv, .xlsx) or a Google Sheets URL (required)")
	offlineName := fs.String("offline", "", "Offline adapter: registered name or http(s):// URL (required)")
	onlineName := fs.String("online", "", "Online adapter: registered name or http(s):// URL (required)")
	sample := fs.Int("sample", 0, "Sample N rows before comparing (must be positive; omit to skip sampling)")
	seed := fs.Int64("seed", 0, "Random seed for --sample")
	jsonOut := fs.String("json", "", "Write the JSON report to this path")
	htmlOut := fs.String("html", "", "Write the HTML report to this path")
	doExplain := fs.Bool("explain", false, "Attach an LLM narrative over the report (requires OPENAI_API_KEY)")

	fs.Usage = func() {
		fmt.Println(`Run an offline/online feature comparison.

Usage:
  skewsentry check --spec <path> --data <path> --offline <name> --online <name|url> [options]

Options:
  --spec      Feature spec YAML path (required)
  --data      Input data file (.csv, .xlsx) or a Google Sheets URL (required)
  --offline   Offline adapter: registered name or http(s):// URL (required)
  --online    Online adapter: registered name or http(s):// URL (required)
  --sample    Sample N rows before comparing (must be positive; omit to skip sampling)
  --seed      Random seed for --sample
  --json      Write the JSON report to this path
  --html      Write the HTML report to this path
  --explain   Attach an LLM narrative over the report (requires OPENAI_API_KEY)`)
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *specPath == "" || *dataPath == "" || *offlineName == "" || *onlineName == "" {
		fmt.Fprintln(os.Stderr, "Error: --spec, --data, --offline, and --online are all required")
		fs.Usage()
		return 2
	}

	cfg := config.LoadConfig()
	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 2
	}

	spec, err := contract.Load(*specPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading spec: %v\n", err)
		return 2
	}

	offline, err := resolveAdapter(*offlineName, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving offline adapter: %v\n", err)
		return 2
	}
	online, err := resolveAdapter(*onlineName, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving online adapter: %v\n", err)
		return 2
	}

	// fs.Int always yields a value; distinguish "flag omitted" from an
	// explicitly-passed --sample 0 by checking which flags were actually set.
	var sampleOpt *int
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "sample" {
			sampleOpt = sample
		}
	})

	ctx := context.Background()
	rep, err := runner.RunFromPath(ctx, spec, *dataPath, cfg.GoogleCredentialsPath, offline, online, runner.Options{Sample: sampleOpt, Seed: *seed})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running comparison: %v\n", err)
		return 2
	}

	fmt.Print(report.Text(rep))

	if *doExplain {
		printNarrative(ctx, cfg, rep)
	}

	if *jsonOut != "" {
		raw, err := report.JSON(rep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering JSON report: %v\n", err)
			return 2
		}
		if err := os.WriteFile(*jsonOut, raw, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON report: %v\n", err)
			return 2
		}
	}
	if *htmlOut != "" {
		jsonHref := ""
		if *jsonOut != "" {
			jsonHref = filepath.Base(*jsonOut)
		}
		html, err := report.HTML(rep, jsonHref)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering HTML report: %v\n", err)
			return 2
		}
		if err := os.WriteFile(*htmlOut, []byte(html), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing HTML report: %v\n", err)
			return 2
		}
	}

	if !rep.OK {
		return 1
	}
	return 0
}

func printNarrative(ctx context.Context, cfg *config.Config, rep *runner.ComparisonReport) {
	client, err := explain.NewClient(explain.Config{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.ExplainModel,
		Timeout:    cfg.ExplainTimeout,
		MaxRetries: cfg.ExplainMaxRetries,
		RetryDelay: cfg.ExplainRetryDelay,
		CacheTTL:   cfg.ExplainCacheTTL,
		CacheSize:  cfg.ExplainMaxCacheSize,
	})
	if err != nil || client == nil {
		fmt.Println("\nNarrative: no narrative available (explainer disabled)")
		return
	}
	narrative, err := client.Narrate(ctx, rep)
	if err != nil || narrative == "" {
		fmt.Println("\nNarrative: no narrative available")
		return
	}
	fmt.Printf("\nNarrative:\n%s\n", narrative)
}

// resolveAdapter builds an Adapter from a CLI-supplied string: an http(s)://
// URL becomes a batched HTTP adapter (internal/adapter.NewHTTP); anything
// else is looked up in the in-process registry (internal/adapter.NewInProcess),
// the Go analogue of the original's "module:function" dotted-path adapter.
func resolveAdapter(spec string, cfg *config.Config) (adapter.Adapter, error) {
	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		return adapter.NewHTTP(adapter.HTTPConfig{
			URL:         spec,
			BatchSize:   cfg.HTTPBatchSize,
			Timeout:     cfg.HTTPTimeout,
			Retries:     cfg.HTTPRetries,
			TokenSource: oauthTokenSource(cfg),
		})
	}
	return adapter.NewInProcess(spec)
}

// oauthTokenSource builds a client-credentials oauth2.TokenSource for the
// HTTP adapter when SKEWSENTRY_HTTP_OAUTH_TOKEN_URL is configured; nil
// otherwise, in which case the HTTP adapter sends unauthenticated requests.
func oauthTokenSource(cfg *config.Config) oauth2.TokenSource {
	if cfg.HTTPOAuthTokenURL == "" {
		return nil
	}
	ccCfg := clientcredentials.Config{
		ClientID:     cfg.HTTPOAuthClientID,
		ClientSecret: cfg.HTTPOAuthClientSecret,
		TokenURL:     cfg.HTTPOAuthTokenURL,
		Scopes:       cfg.HTTPOAuthScopes,
	}
	return ccCfg.TokenSource(context.Background())
}

// runInit implements `skewsentry init`: infer a starter spec from a sample
// input file's column dtypes, all features nullable with no tolerance — a
// best-effort artifact a human then edits, matching the teacher's
// generate-then-edit pattern (mdflow convert).
func runInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	specPath := fs.String("spec", "", "Output spec YAML path (required)")
	dataPath := fs.String("data", "", "Sample input data file (.csv, .xlsx) or a Google Sheets URL (required)")
	keys := fs.String("keys", "", "Comma-separated key column names (required)")
	sheet := fs.String("sheet", "", "Sheet name, for .xlsx inputs")

	fs.Usage = func() {
		fmt.Println(`Infer a starter feature spec from a sample input file.

Usage:
  skewsentry init --spec <path> --data <path> --keys k1,k2 [options]

Options:
  --spec   Output spec YAML path (required)
  --data   Sample input data file (.csv, .xlsx) or a Google Sheets URL (required)
  --keys   Comma-separated key column names (required)
  --sheet  Sheet name, for .xlsx inputs`)
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *specPath == "" || *dataPath == "" || *keys == "" {
		fmt.Fprintln(os.Stderr, "Error: --spec, --data, and --keys are all required")
		fs.Usage()
		return 2
	}

	cfg := config.LoadConfig()
	t, err := loadSample(context.Background(), *dataPath, *sheet, cfg.GoogleCredentialsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading sample data: %v\n", err)
		return 2
	}

	keyList := strings.Split(*keys, ",")
	for i := range keyList {
		keyList[i] = strings.TrimSpace(keyList[i])
	}

	spec := inferSpec(t, keyList)
	if err := spec.Save(*specPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing spec: %v\n", err)
		return 2
	}

	fmt.Printf("Wrote starter spec to %s (%d features inferred)\n", *specPath, len(spec.Features))
	return 0
}

func loadSample(ctx context.Context, path, sheet, googleCredentialsPath string) (table.Table, error) {
	if _, _, ok := inputs.ParseGoogleSheetURL(path); ok {
		return inputs.LoadGoogleSheet(ctx, googleCredentialsPath, path, "")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return inputs.LoadCSV(path)
	case ".xlsx":
		return inputs.LoadXLSX(path, sheet)
	default:
		return table.Table{}, fmt.Errorf("unsupported input file extension %q", filepath.Ext(path))
	}
}

func isKey(name string, keys []string) bool {
	for _, k := range keys {
		if k == name {
			return true
		}
	}
	return false
}

func inferSpec(t table.Table, keys []string) *contract.Spec {
	spec := &contract.Spec{Version: 1, Keys: keys, NullPolicy: contract.NullPolicySame}
	for _, col := range t.Columns {
		if isKey(col.Name, keys) {
			continue
		}
		spec.Features = append(spec.Features, contract.Feature{
			Name:     col.Name,
			DType:    dtypeFromKind(col.Kind),
			Nullable: true,
		})
	}
	return spec
}

func dtypeFromKind(k table.Kind) contract.DType {
	switch k {
	case table.IntKind:
		return contract.DTypeInt
	case table.FloatKind:
		return contract.DTypeFloat
	case table.BoolKind:
		return contract.DTypeBool
	case table.TimeKind:
		return contract.DTypeDatetime
	default:
		return contract.DTypeString
	}
}

// runServe implements `skewsentry serve`: run the local mock online-feature
// HTTP service (SPEC_FULL.md §9) standalone, for exercising an HTTP adapter
// against a real socket during local development.
func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	host := fs.String("host", "", "Bind host (default from SKEWSENTRY_DEVSERVER_HOST)")
	port := fs.String("port", "", "Bind port (default from SKEWSENTRY_DEVSERVER_PORT)")
	producerName := fs.String("producer", "", "Registered in-process adapter name to serve (default: identity passthrough)")

	fs.Usage = func() {
		fmt.Println(`Run a local mock online-feature HTTP service.

Usage:
  skewsentry serve [--host h] [--port N] [--producer name]`)
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.LoadConfig()
	if *host == "" {
		*host = cfg.DevserverHost
	}
	if *port == "" {
		*port = cfg.DevserverPort
	}

	var producerFn adapter.Func
	if *producerName != "" {
		a, err := adapter.NewInProcess(*producerName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving producer: %v\n", err)
			return 2
		}
		producerFn = a.Produce
	}

	srv := devserver.New(devserver.Config{Host: *host, Port: *port, Producer: producerFn})
	slog.Info("devserver starting", "addr", srv.Addr())
	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}
