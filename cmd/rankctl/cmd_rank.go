package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"aivisibility/backend-go/internal/export"
	"aivisibility/backend-go/internal/models"
	"aivisibility/backend-go/internal/ranking"
)

func newRankCommand(opts *globalOptions) *cobra.Command {
	var (
		input        string
		scope        string
		format       string
		merge        string
		labelUnnamed bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank brands from raw analytics records",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := ranking.Scope(scope)
			if sc != ranking.ScopeGlobal && sc != ranking.ScopePrompt {
				return fmt.Errorf("unknown scope %q (want global or prompt)", scope)
			}
			strategy, err := ranking.ParseMergeStrategy(merge)
			if err != nil {
				return err
			}
			records, err := readRecords(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			p, err := opts.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			entries := p.normalizer(strategy).NormalizeWith(records, sc, ranking.Options{LabelUnnamed: labelUnnamed})
			p.save(cmd.Context())
			return writeRanking(cmd.OutOrStdout(), format, entries)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON records file, - for stdin")
	cmd.Flags().StringVar(&scope, "scope", string(ranking.ScopeGlobal), "Ranking scope: global or prompt")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json or csv")
	cmd.Flags().StringVar(&merge, "merge", string(ranking.MergeRunningAverage), "Prompt-scope visibility merge: running_average or mean")
	cmd.Flags().BoolVar(&labelUnnamed, "label-unnamed", false, "Keep rows without a brand as \"Competitor n\"")
	return cmd
}

func writeRanking(w io.Writer, format string, entries []models.RankingEntry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "csv":
		return export.WriteRankingCSV(w, entries)
	case "table":
		data := pterm.TableData{{"Rank", "Brand", "Visibility", "Sentiment", "Position", "Logo"}}
		for _, e := range entries {
			data = append(data, []string{
				strconv.Itoa(e.Rank),
				e.DisplayName,
				strconv.Itoa(e.VisibilityPercent) + "%",
				optionalInt(e.Sentiment),
				optionalFloat(e.SourcePosition),
				logoCell(e),
			})
		}
		out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	default:
		return fmt.Errorf("unknown format %q (want table, json or csv)", format)
	}
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func logoCell(e models.RankingEntry) string {
	if e.Domain != "" {
		return e.Domain
	}
	if e.LogoURL != "" {
		return "logo"
	}
	return "[" + e.Initials + "]"
}
