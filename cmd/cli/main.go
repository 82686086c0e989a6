// Command cli drives the failover pipeline from a terminal: generate a
// diagram, probe the configured providers, or list them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"diagramgen/internal/config"
	"diagramgen/internal/domain/models"
	llmSvc "diagramgen/internal/domain/services/llm"
	serviceLLM "diagramgen/internal/service/llm"
	"diagramgen/internal/service/registry"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

type app struct {
	cfg       *config.Config
	registry  *registry.Registry
	services  *serviceLLM.Services
	logger    *slog.Logger
	verbose   bool
	providers string
}

func (a *app) setup() error {
	_ = godotenv.Load()
	a.cfg = config.Load()
	if a.providers != "" {
		a.cfg.ProvidersFile = a.providers
	}

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	a.registry = registry.New(a.logger)
	if err := registry.Bootstrap(a.registry, a.cfg); err != nil {
		return fmt.Errorf("bootstrap providers: %w", err)
	}

	services, err := serviceLLM.SetupServices(a.registry, a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.services = services
	return nil
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "cli",
		Short:         "Generate draw.io diagrams through a chain of OpenAI-compatible providers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")
	root.PersistentFlags().StringVar(&a.providers, "providers", "", "providers YAML file (overrides PROVIDERS_FILE)")

	root.AddCommand(generateCmd(a), probeCmd(a), providersCmd(a))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		red.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func generateCmd(a *app) *cobra.Command {
	var (
		out          string
		skip         []string
		systemPrompt string
		buffered     bool
	)
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a diagram and write the mxfile document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &models.GenerationRequest{Prompt: args[0], ExcludedProviders: skip}
			if systemPrompt != "" {
				req.SystemPrompt = &systemPrompt
			}

			var (
				doc string
				err error
			)
			if buffered {
				doc, err = a.generateBuffered(cmd.Context(), req)
			} else {
				doc, err = a.generateStreamed(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				fmt.Println(doc)
				return nil
			}
			if err := os.WriteFile(out, []byte(doc), 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			green.Fprintf(os.Stderr, "Saved %s (%d bytes)\n", out, len(doc))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "provider names to skip")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "override the system prompt")
	cmd.Flags().BoolVar(&buffered, "buffered", false, "use a single buffered call per provider")
	return cmd
}

func (a *app) generateBuffered(ctx context.Context, req *models.GenerationRequest) (string, error) {
	result, err := a.services.Generation.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	cyan.Fprintf(os.Stderr, "Generated by %s\n", result.ProviderUsed)
	return result.Document, nil
}

// generateStreamed prints progress on stderr while the document streams in
func (a *app) generateStreamed(ctx context.Context, req *models.GenerationRequest) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := io.Writer(os.Stderr)
	for ev := range a.services.Generation.Stream(ctx, req) {
		switch ev.Type {
		case models.EventSkip:
			yellow.Fprintf(progress, "- skipping %s\n", ev.Provider)
		case models.EventStart:
			cyan.Fprintf(progress, "> trying %s\n", ev.Provider)
		case models.EventContent:
			fmt.Fprint(progress, ".")
		case models.EventError:
			red.Fprintf(progress, "\n! %s\n", ev.Message)
		case models.EventComplete:
			green.Fprintf(progress, "\nGenerated by %s\n", ev.ProviderUsed)
			return ev.Document, nil
		case models.EventValidationFailed, models.EventFailed:
			return "", errors.New(ev.Message)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", errors.New("stream ended without a result")
}

func probeCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Send a greeting to every enabled provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := a.services.Generation.Probe(cmd.Context())
			if jsonOutput {
				return printJSON(results)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "PROVIDER\tSTATUS\tCODE\tDETAIL\n")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Provider, statusColor(r).Sprint(r.Status), r.StatusCode, detail(r))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func statusColor(r llmSvc.ProbeResult) *color.Color {
	if r.Status == "ok" {
		return green
	}
	return red
}

func detail(r llmSvc.ProbeResult) string {
	if r.Error != "" {
		return r.Error
	}
	return r.ResponsePreview
}

func providersCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List provider records in failover order",
		RunE: func(cmd *cobra.Command, args []string) error {
			records := a.registry.ListAll()
			for i := range records {
				records[i].APIKey = ""
			}
			if jsonOutput {
				return printJSON(records)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\tNAME\tMODEL\tPRIORITY\tENABLED\tSYSTEM\n")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%t\n", r.ID, r.Name, r.Model, r.Priority, r.Enabled, r.IsSystem)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
