package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/colibri-os/rlab/internal/adapters/server"
	"github.com/colibri-os/rlab/internal/adapters/server/common"
	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/domain"
	"github.com/colibri-os/rlab/internal/platform"
)

// newPathsCommand prints resolved config and data locations without opening a store.
func newPathsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := platform.Resolve(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", firstNonEmpty(opts.configPath, opts.env.ConfigPath, paths.ConfigPath))
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", firstNonEmpty(opts.dbPath, opts.env.DBPath, paths.DBPath))
			_, _ = fmt.Fprintf(out, "store: %s\n", firstNonEmpty(opts.storePath, opts.env.StorePath, paths.StorePath))
			return nil
		},
	}
}

// newProgressCommand prints the completion index, level, and category table.
func newProgressCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show completion index, level, and per-category counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "progress", func(ctx context.Context, rt *runtime) error {
				progress, err := rt.adapter().Progress(ctx)
				if err != nil {
					return err
				}
				if progress.Load.Degraded() {
					rt.logger.Warn("event log partially unreadable", "skipped", progress.Load.Skipped, "failure", progress.Load.Failure)
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), progress)
				}
				return writeProgressText(cmd.OutOrStdout(), progress)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// newTimelineCommand lists events newest first.
func newTimelineCommand(opts *globalOptions) *cobra.Command {
	var (
		asJSON   bool
		category string
		kind     string
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "List recorded events newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "timeline", func(ctx context.Context, rt *runtime) error {
				timeline, err := rt.adapter().Timeline(ctx, common.TimelineRequest{Category: category, Kind: kind})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), timeline)
				}
				return writeTimelineText(cmd.OutOrStdout(), timeline)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().StringVar(&category, "category", "", "only show one category (C1-C7)")
	cmd.Flags().StringVar(&kind, "kind", "", "only show one kind (micro|evidence|milestone)")
	return cmd
}

// newSubmitCommand appends one micro-action, evidence, or milestone.
func newSubmitCommand(opts *globalOptions) *cobra.Command {
	var (
		asJSON bool
		req    common.SubmitEventRequest
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a micro-action, evidence, or milestone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "submit", func(ctx context.Context, rt *runtime) error {
				result, err := rt.adapter().SubmitEvent(ctx, req)
				if err != nil {
					return fmt.Errorf("%s: %w", app.ValidationMessage(err), err)
				}
				rt.logger.Info("event recorded", "id", result.Event.ID, "kind", result.Event.Kind, "category", result.Event.Category)
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Message)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "id: %s\n", result.Event.ID)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Kind, "kind", string(domain.EventKindMicroAction), "event kind (micro|evidence|milestone)")
	flags.StringVar(&req.Category, "category", "", "category id (C1-C7)")
	flags.StringVar(&req.Title, "title", "", "short title")
	flags.StringVar(&req.Description, "description", "", "what was done and learned")
	flags.BoolVar(&req.RegisteredExternally, "external", false, "also registered in the external story tool")
	flags.BoolVar(&asJSON, "json", false, "print JSON instead of a message")
	return cmd
}

// newCategoriesCommand prints the fixed category table.
func newCategoriesCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the seven progress categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "categories", func(ctx context.Context, rt *runtime) error {
				categories, err := rt.adapter().Categories(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"categories": categories})
				}
				t := newTable("ID", "CATEGORÍA", "EJEMPLOS")
				for _, category := range categories {
					t.Row(string(category.ID), category.Label, category.Hint)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), t.String())
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// newLevelsCommand prints the configured level ladder.
func newLevelsCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "List the level ladder and its thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "levels", func(ctx context.Context, rt *runtime) error {
				levels, err := rt.adapter().Levels(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"levels": levels})
				}
				t := newTable("ID", "NIVEL", "MICROACCIONES", "EVIDENCIAS", "")
				for _, level := range levels {
					note := ""
					if level.Placeholder {
						note = "próximamente"
					}
					t.Row(level.ID, level.Name, fmt.Sprint(level.MicroThreshold), fmt.Sprint(level.EvidenceThreshold), note)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), t.String())
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// newSeedCommand appends the demo journey once.
func newSeedCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Append the demo journey (skips events already present)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "seed", func(ctx context.Context, rt *runtime) error {
				added, err := rt.svc.SeedDemo(ctx)
				if err != nil {
					return fmt.Errorf("seed demo events: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d events\n", added)
				return nil
			})
		},
	}
}

// newImportCommand appends events from a stored array or a local-storage dump.
func newImportCommand(opts *globalOptions) *cobra.Command {
	var (
		inPath string
		key    string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import events from a legacy JSON array or local-storage dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return fmt.Errorf("--in is required")
			}
			return withRuntime(cmd, opts, "import", func(ctx context.Context, rt *runtime) error {
				content, err := os.ReadFile(inPath)
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				report, err := rt.svc.ImportLegacy(ctx, content, firstNonEmpty(key, rt.cfg.Storage.Key))
				if err != nil {
					return fmt.Errorf("import events: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d events (%d duplicates, %d skipped)\n", report.Imported, report.Duplicates, report.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input JSON file")
	cmd.Flags().StringVar(&key, "key", "", "local-storage key holding the event array")
	return cmd
}

// newExportCommand writes the log as a legacy JSON array.
func newExportCommand(opts *globalOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the event log as a legacy JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "export", func(ctx context.Context, rt *runtime) error {
				encoded, report, err := rt.svc.ExportLegacy(ctx)
				if err != nil {
					return fmt.Errorf("export events: %w", err)
				}
				if report.Degraded() {
					rt.logger.Warn("export skipped unreadable entries", "skipped", report.Skipped, "failure", report.Failure)
				}
				encoded = append(encoded, '\n')
				if outPath == "-" {
					if _, err := cmd.OutOrStdout().Write(encoded); err != nil {
						return fmt.Errorf("write export to stdout: %w", err)
					}
					return nil
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// newServeCommand exposes the HTTP API and MCP tools.
func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "serve", func(ctx context.Context, rt *runtime) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serveCommandRunner(ctx, server.Config{
					HTTPBind:      firstNonEmpty(httpBind, rt.cfg.Server.HTTPBind),
					APIEndpoint:   firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
					ServerName:    rt.appName,
					ServerVersion: version,
				}, server.Dependencies{
					Service: rt.adapter(),
					Logger:  rt.logger,
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from [server] http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint")
	return cmd
}

// writeJSON writes one indented JSON document.
func writeJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	encoded = append(encoded, '\n')
	_, err = w.Write(encoded)
	return err
}

// newTable builds a plain bordered table for CLI output.
func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

// writeProgressText renders the level summary and the category table.
func writeProgressText(w io.Writer, progress common.Progress) error {
	lines := []string{
		fmt.Sprintf("Nivel: %s", progress.CurrentLevel.Name),
		fmt.Sprintf("IC: %d%%", progress.CompletionIndex),
		fmt.Sprintf("Microacciones: %d/%d  Evidencias: %d/%d", progress.Micro, progress.MicroMax, progress.Evidence, progress.EvidenceMax),
	}
	if next := progress.NextLevel; next != nil {
		if next.Placeholder {
			lines = append(lines, fmt.Sprintf("Siguiente: %s (próximamente)", next.Name))
		} else {
			lines = append(lines, fmt.Sprintf("Siguiente: %s (%d microacciones, %d evidencias)", next.Name, next.MicroThreshold, next.EvidenceThreshold))
		}
	}
	if progress.Load.Degraded() {
		lines = append(lines, fmt.Sprintf("Aviso: %d registros ilegibles fueron ignorados.", progress.Load.Skipped))
	}

	t := newTable("CATEGORÍA", "MICRO", "EVIDENCIAS", "")
	for _, row := range progress.Categories {
		status := ""
		if row.Complete() {
			status = "completa"
		}
		t.Row(
			row.Category.DisplayLabel(),
			fmt.Sprintf("%d/%d", row.Micro, row.MicroMax),
			fmt.Sprintf("%d/%d", row.Evidence, row.EvidenceMax),
			status,
		)
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n")+"\n\n"+t.String())
	return err
}

// writeTimelineText renders one event per row plus the kind counters.
func writeTimelineText(w io.Writer, timeline common.Timeline) error {
	if len(timeline.Events) == 0 {
		_, err := fmt.Fprintln(w, "Sin registros.")
		return err
	}
	t := newTable("FECHA", "TIPO", "CAT", "TÍTULO", "STORY")
	for _, event := range timeline.Events {
		date := "sin fecha"
		if !event.CreatedAt.IsZero() {
			date = event.CreatedAt.Local().Format("2006-01-02")
		}
		story := ""
		if event.RegisteredExternally {
			story = "sí"
		}
		t.Row(date, event.KindLabel, event.Category, event.Title, story)
	}
	counts := timeline.Counts
	_, err := fmt.Fprintf(w, "%s\n%d registros · %d microacciones · %d evidencias · %d hitos · %d en Story\n",
		t.String(), counts.Total, counts.MicroActions, counts.Evidence, counts.Milestones, counts.RegisteredExternally)
	return err
}
