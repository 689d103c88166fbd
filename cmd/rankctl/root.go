package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/extract"
	"aivisibility/backend-go/internal/models"
	"aivisibility/backend-go/internal/ranking"
)

var version = "dev"

type globalOptions struct {
	aliasFile   string
	domainCache string
	faviconSize int
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "rankctl",
		Short: "Normalize and rank brand visibility records",
		Long: `rankctl turns raw analytics rows (JSON arrays or {"data": [...]}
envelopes) into the ranking the dashboard shows, and exports them as CSV.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.aliasFile, "aliases", os.Getenv("ALIAS_FILE"), "YAML alias table layered on the built-in aliases")
	cmd.PersistentFlags().StringVar(&opts.domainCache, "domain-cache", "", "JSON file persisting brand domains between runs")
	cmd.PersistentFlags().IntVar(&opts.faviconSize, "favicon-size", brand.DefaultFaviconSize, "Favicon size in pixels")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newRankCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newLogoCommand(opts))
	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// pipeline is the normalizer with its alias table and domain cache.
type pipeline struct {
	canon   *brand.Canonicalizer
	domains *brand.PersistentDomainCache
	logos   *brand.Resolver
}

func (o *globalOptions) pipeline(ctx context.Context) (*pipeline, error) {
	canon := brand.MustCanonicalizer(brand.DefaultAliases)
	if o.aliasFile != "" {
		aliases, err := brand.LoadAliases(o.aliasFile)
		if err != nil {
			return nil, err
		}
		if canon, err = brand.NewCanonicalizer(aliases); err != nil {
			return nil, err
		}
	}
	var store brand.DomainStore
	if o.domainCache != "" {
		store = brand.NewFileDomainStore(o.domainCache)
	}
	domains := brand.NewDomainCache(store)
	if err := domains.Load(ctx); err != nil {
		slog.Warn("domain cache not loaded", "path", o.domainCache, "error", err)
	}
	slog.Debug("pipeline ready", "aliases", canon.Len(), "domains", domains.Len())
	return &pipeline{
		canon:   canon,
		domains: domains,
		logos:   brand.NewResolver(domains, brand.ResolverConfig{Size: o.faviconSize}),
	}, nil
}

func (p *pipeline) normalizer(merge ranking.MergeStrategy) *ranking.Normalizer {
	return ranking.NewNormalizer(p.canon, p.logos, merge)
}

func (p *pipeline) save(ctx context.Context) {
	if err := p.domains.Save(ctx); err != nil {
		slog.Warn("domain cache not saved", "error", err)
	}
}

// readRecords decodes records from path, or from in when path is "-" or
// empty.
func readRecords(path string, in io.Reader) ([]models.RawMetricRecord, error) {
	var (
		b   []byte
		err error
	)
	if path == "" || path == "-" {
		b, err = io.ReadAll(in)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	records, err := extract.DecodeRecords(b)
	if err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	slog.Debug("decoded records", "count", len(records))
	return records, nil
}
