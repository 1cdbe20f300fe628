package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/loom-graph/loom/internal/checkpoint"
	"github.com/loom-graph/loom/internal/config"
	"github.com/loom-graph/loom/internal/server"
	mid "github.com/loom-graph/loom/internal/server/middleware"
	"github.com/loom-graph/loom/internal/util"
	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/export"
	"github.com/loom-graph/loom/pkg/loader"
	loaderio "github.com/loom-graph/loom/pkg/loader/io"
	loaders3 "github.com/loom-graph/loom/pkg/loader/s3"
	loaderweb "github.com/loom-graph/loom/pkg/loader/web"
	"github.com/loom-graph/loom/pkg/logger"
	"github.com/loom-graph/loom/pkg/logger/console"
	"github.com/loom-graph/loom/pkg/pipeline"
)

// Version is set at build time via ldflags.
var Version = "dev"

// BuildCmd runs the full pipeline over a corpus and exports the result.
type BuildCmd struct {
	Path   string   `arg:"" optional:"" help:"Directory of posts to process (overrides config)"`
	URL    []string `help:"Process pages fetched from these URLs instead of a directory"`
	Output string   `short:"o" default:"graph.json" help:"Output path for the graph JSON"`
	Vault  string   `help:"Also write a linked note vault to this directory"`
}

// Run executes the build command.
func (c *BuildCmd) Run(cli *CLI) error {
	app, store, err := buildApp(cli, true)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	var source loader.Source
	switch {
	case len(c.URL) > 0:
		source = loaderweb.NewURLSource(c.URL, nil)
	case c.Path != "":
		source = loaderio.NewDirSource(c.Path)
	default:
		var err error
		source, err = sourceFromConfig(app.Config)
		if err != nil {
			return err
		}
	}

	ctx := interruptContext()

	docs, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	docs, err = loader.Prepare(docs)
	if err != nil {
		return fmt.Errorf("preparing documents: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no processable documents found")
	}
	color.Green("Processing %d documents", len(docs))

	runID, err := gonanoid.New()
	if err != nil {
		return err
	}

	// Cancellation suspends the run with a checkpoint; the partial graph
	// still gets written below.
	if err := app.Pipeline.Start(ctx, runID, docs); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, pipeline.ErrNoCredential) {
			return fmt.Errorf("no model credential configured, set LOOM_API_KEY or OPENAI_API_KEY")
		}
		return err
	}
	fmt.Println()

	progress := app.Pipeline.Progress()
	if progress.Status != common.StatusComplete {
		color.Yellow("Run %s suspended at document %d/%d, resume with: loom resume %s",
			runID, progress.CurrentDocumentIndex, progress.TotalDocuments, runID)
	}

	return writeOutputs(app, c.Output, c.Vault)
}

// ResumeCmd continues a checkpointed run.
type ResumeCmd struct {
	RunID  string `arg:"" help:"Run id printed when the run was started"`
	Output string `short:"o" default:"graph.json" help:"Output path for the graph JSON"`
	Vault  string `help:"Also write a linked note vault to this directory"`
}

// Run executes the resume command.
func (c *ResumeCmd) Run(cli *CLI) error {
	app, store, err := buildApp(cli, true)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("checkpointing is disabled, nothing to resume")
	}
	defer func() { _ = store.Close() }()

	ctx := interruptContext()

	err = app.Pipeline.ResumeFromCheckpoint(ctx, c.RunID)
	switch {
	case errors.Is(err, pipeline.ErrNoCheckpoint):
		return fmt.Errorf("no checkpoint found for run %s", c.RunID)
	case errors.Is(err, pipeline.ErrNoCredential):
		return fmt.Errorf("no model credential configured, set LOOM_API_KEY or OPENAI_API_KEY")
	case err != nil && !errors.Is(err, context.Canceled):
		return err
	}
	fmt.Println()

	return writeOutputs(app, c.Output, c.Vault)
}

// ExportCmd exports the graph of a checkpointed run without resuming it.
type ExportCmd struct {
	RunID  string `arg:"" help:"Run id of the checkpointed run"`
	Format string `default:"json" enum:"json,vault,context" help:"Export format"`
	Output string `short:"o" default:"graph.json" help:"Output path (a directory for vault)"`
}

// Run executes the export command.
func (c *ExportCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(cfg.CheckpointPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	state, err := store.Load(context.Background(), c.RunID)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoCheckpoint) {
			return fmt.Errorf("no checkpoint found for run %s", c.RunID)
		}
		return err
	}

	switch c.Format {
	case "vault":
		err = export.WriteVault(state.Graph, c.Output)
	case "context":
		err = export.WriteContext(state.Graph, c.Output)
	default:
		err = export.WriteJSON(state.Graph, c.Output)
	}
	if err != nil {
		return err
	}

	color.Green("✓ Exported %s (%d entities, %d concepts, %d relationships)",
		c.Output, len(state.Graph.Entities), len(state.Graph.Concepts), len(state.Graph.Relationships))
	return nil
}

// ServeCmd runs the HTTP control server.
type ServeCmd struct{}

// Run executes the serve command.
func (c *ServeCmd) Run(cli *CLI) error {
	app, store, err := buildApp(cli, false)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	server.Init(app)
	return nil
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Config  string           `short:"c" help:"Path to config file" default:"loom.yaml"`
	Debug   bool             `help:"Enable debug logging"`

	// Commands
	Build  BuildCmd  `cmd:"" help:"Build a knowledge graph from a post corpus"`
	Resume ResumeCmd `cmd:"" help:"Resume a checkpointed run"`
	Export ExportCmd `cmd:"" help:"Export the graph of a checkpointed run"`
	Serve  ServeCmd  `cmd:"" help:"Run the HTTP control server"`
}

func main() {
	util.LoadEnv()

	cli := &CLI{}
	kongCtx := kong.Parse(cli,
		kong.Name("loom"),
		kong.Description("Incremental knowledge graph construction from a post corpus"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cli.Debug || util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	if err := kongCtx.Run(cli); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cli *CLI) (*config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.Debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func interruptContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func sourceFromConfig(cfg *config.Config) (loader.Source, error) {
	switch cfg.Source.Kind {
	case "urls":
		return loaderweb.NewURLSource(cfg.Source.URLs, nil), nil
	case "s3":
		return loaders3.NewBucketSource(context.Background(), loaders3.NewBucketSourceParams{
			Bucket:    cfg.Source.S3.Bucket,
			Prefix:    cfg.Source.S3.Prefix,
			Endpoint:  cfg.Source.S3.Endpoint,
			Region:    cfg.Source.S3.Region,
			AccessKey: cfg.Source.S3.AccessKey,
			SecretKey: cfg.Source.S3.SecretKey,
		})
	default:
		return loaderio.NewDirSource(cfg.Source.Dir), nil
	}
}

func writeOutputs(app *mid.App, output, vault string) error {
	g := app.Pipeline.Graph()
	if g == nil {
		return fmt.Errorf("no graph was produced")
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := export.WriteJSON(g, output); err != nil {
		return fmt.Errorf("writing graph: %w", err)
	}
	color.Green("✓ Graph written to %s", output)

	if vault != "" {
		if err := export.WriteVault(g, vault); err != nil {
			return fmt.Errorf("writing vault: %w", err)
		}
		color.Green("✓ Vault written to %s", vault)
	}

	fmt.Printf("  Entities:       %d\n", len(g.Entities))
	fmt.Printf("  Concepts:       %d\n", len(g.Concepts))
	fmt.Printf("  Relationships:  %d\n", len(g.Relationships))
	fmt.Printf("  Documents:      %d\n", g.Metadata.TotalDocumentsProcessed)

	metrics := app.Model.GetMetrics()
	fmt.Printf("  Model calls:    %d (%d tokens in, %d out)\n",
		metrics.Requests, metrics.InputTokens, metrics.OutputTokens)
	return nil
}
