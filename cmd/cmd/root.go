/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"groundswell/internal/config"
	"groundswell/internal/core"
	"groundswell/internal/embedding"
	"groundswell/internal/ingest"
	"groundswell/internal/llm"
	"groundswell/internal/narrative"
	"groundswell/internal/pipeline"
	"groundswell/internal/store"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "groundswell",
	Short: "Groundswell turns collected customer evidence into sequenced marketing campaigns",
	Long: `Groundswell is an evidence-grounded marketing insight engine.

It clusters collected customer evidence by theme, discovers non-obvious
connections between themes, synthesizes citation-backed marketing insights
through a language model, gates them for quality, and sequences the
survivors into a narrative campaign ready for publishing.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.groundswell.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(lensesCmd)

	runCmd.Flags().Int("days", 14, "campaign duration in days (7-30)")
	runCmd.Flags().String("type", "narrative_arc", "campaign type label")
	runCmd.Flags().StringP("output", "o", "", "write the campaign JSON to a file instead of stdout")
	runCmd.Flags().String("markdown", "", "also write a markdown campaign brief to this file")
	runCmd.Flags().Bool("no-store", false, "run without the local store (no cache, no persistence)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [evidence-file]",
	Short: "Run the full pipeline over a JSON evidence file",
	Long: `Run ingests a JSON array of evidence records, embeds and clusters them,
synthesizes citation-backed insights, and emits a sequenced campaign.

Re-running on an unchanged evidence set and configuration is served from
the run cache.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		days, _ := cmd.Flags().GetInt("days")
		campaignType, _ := cmd.Flags().GetString("type")
		outputPath, _ := cmd.Flags().GetString("output")
		markdownPath, _ := cmd.Flags().GetString("markdown")
		noStore, _ := cmd.Flags().GetBool("no-store")

		ing, err := ingest.LoadFile(args[0])
		if err != nil {
			return err
		}
		if len(ing.Rejected) > 0 {
			fmt.Fprintf(os.Stderr, "warning: %d evidence record(s) rejected at ingestion\n", len(ing.Rejected))
		}

		deps, cleanup, err := buildDeps(cfg, noStore)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := pipeline.New(cfg, deps)
		result, err := p.Run(ctx, ing.Accepted, narrative.Request{
			CampaignType: campaignType,
			DurationDays: days,
		})
		if err != nil {
			return err
		}

		if result.CacheHit {
			fmt.Fprintln(os.Stderr, "served from run cache")
		}
		if result.Partial {
			fmt.Fprintf(os.Stderr, "partial result: %d degraded pass(es), %d excluded record(s)\n",
				len(result.DegradedPasses), len(result.ExcludedEvidence))
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		if outputPath != "" {
			if err := os.WriteFile(outputPath, out, 0644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Printf("Campaign written to %s\n", outputPath)
		} else {
			fmt.Println(string(out))
		}

		if markdownPath != "" {
			byID := make(map[string]core.Insight, len(result.Insights))
			for _, ins := range result.Insights {
				byID[ins.ID] = ins
			}
			md := narrative.RenderMarkdown(result.Campaign, byID)
			if err := os.WriteFile(markdownPath, []byte(md), 0644); err != nil {
				return fmt.Errorf("failed to write markdown brief: %w", err)
			}
			fmt.Printf("Campaign brief written to %s\n", markdownPath)
		}

		return nil
	},
}

// buildDeps wires the configured providers and store. The returned cleanup
// closes the store.
func buildDeps(cfg *config.Config, noStore bool) (pipeline.Deps, func(), error) {
	client, err := llm.NewClient(cfg.AI.Gemini.Model)
	if err != nil {
		return pipeline.Deps{}, nil, err
	}

	var embedder embedding.Embedder
	switch cfg.AI.Provider {
	case "openai":
		embedder, err = embedding.NewOpenAIEmbedder(cfg.AI.OpenAI.EmbeddingModel, cfg.AI.OpenAI.Dimensions)
		if err != nil {
			return pipeline.Deps{}, nil, err
		}
	default:
		embedder = embedding.NewGeminiEmbedder(client)
	}

	deps := pipeline.Deps{LLM: client, Embedder: embedder}
	cleanup := func() {}

	if !noStore {
		st, err := store.NewStore(cfg.Cache.Directory)
		if err != nil {
			return pipeline.Deps{}, nil, fmt.Errorf("failed to open store: %w", err)
		}
		deps.Store = st
		cleanup = func() { st.Close() }
	}

	return deps, cleanup, nil
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local run cache and store",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		st, err := store.NewStore(cfg.Cache.Directory)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("Cached runs:    %d\n", stats.CachedRuns)
		fmt.Printf("Insights:       %d\n", stats.InsightCount)
		fmt.Printf("Campaigns:      %d\n", stats.CampaignCount)
		fmt.Printf("Theme pairs:    %d\n", stats.PairCount)
		fmt.Printf("Database size:  %.1f KB\n", float64(stats.DatabaseSize)/1024)
		if !stats.LastUpdated.IsZero() {
			fmt.Printf("Last updated:   %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached runs and co-occurrence history",
	Long: `Clear removes cached run results and the theme co-occurrence history.
Persisted insights and campaigns are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		st, err := store.NewStore(cfg.Cache.Directory)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ClearCache(); err != nil {
			return err
		}

		fmt.Println("Cache cleared.")
		return nil
	},
}

var lensesCmd = &cobra.Command{
	Use:   "lenses",
	Short: "List the configured synthesis lenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		for _, lens := range cfg.Synthesis.Lenses {
			fmt.Printf("%s\n", lens.Name)
			fmt.Printf("  categories: %s\n", strings.Join(lens.Categories, ", "))
			fmt.Printf("  focus:      %s\n", lens.Focus)
		}

		return nil
	},
}
