// Package export renders rankings and prompt lists as downloadable CSV.
package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/extract"
	"aivisibility/backend-go/internal/models"
	"aivisibility/backend-go/internal/ranking"
)

// VisibilitySeries is a date by brand grid of visibility percentages. A nil
// value means the brand had no row for that date.
type VisibilitySeries struct {
	Brands []string
	Rows   []SeriesRow
}

type SeriesRow struct {
	Date   string
	Values []*int
}

type cell struct {
	sum float64
	n   int
}

// BuildVisibilitySeries groups dated rows by day and canonical brand. Brand
// columns keep first-encounter order; dates are ascending. Several rows for
// one brand on one day (one per platform) are averaged.
func BuildVisibilitySeries(records []models.RawMetricRecord, canon *brand.Canonicalizer) VisibilitySeries {
	var (
		brands   []string
		brandIdx = map[string]int{}
		cells    = map[string]map[int]*cell{}
	)
	for _, raw := range records {
		f := extract.Extract(raw)
		date := normalizeDate(f.Date)
		if date == "" || !f.HasBrand() {
			continue
		}
		name := canon.Canonicalize(f.BrandKey).DisplayName
		key := brand.CacheKey(name)
		i, ok := brandIdx[key]
		if !ok {
			i = len(brands)
			brandIdx[key] = i
			brands = append(brands, name)
		}
		day := cells[date]
		if day == nil {
			day = map[int]*cell{}
			cells[date] = day
		}
		c := day[i]
		if c == nil {
			c = &cell{}
			day[i] = c
		}
		c.sum += f.Visibility
		c.n++
	}

	dates := make([]string, 0, len(cells))
	for d := range cells {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := VisibilitySeries{Brands: brands, Rows: make([]SeriesRow, 0, len(dates))}
	if out.Brands == nil {
		out.Brands = []string{}
	}
	for _, d := range dates {
		row := SeriesRow{Date: d, Values: make([]*int, len(brands))}
		for i, c := range cells[d] {
			v := ranking.Percent(c.sum / float64(c.n))
			row.Values[i] = &v
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// normalizeDate reduces RFC 3339 timestamps to their UTC day. Other values
// are kept as given.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.DateOnly)
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly)
	}
	return s
}

// WriteVisibilityCSV writes "Date,<brand1>,<brand2>,..." followed by one
// row per date. Missing cells are empty.
func WriteVisibilityCSV(w io.Writer, s VisibilitySeries) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Date"}, s.Brands...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range s.Rows {
		rec := make([]string, 0, len(row.Values)+1)
		rec = append(rec, row.Date)
		for _, v := range row.Values {
			if v == nil {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.Itoa(*v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePromptsCSV writes "Prompt,Volume" rows. Prompts containing commas or
// quotes are quoted.
func WritePromptsCSV(w io.Writer, prompts []models.PromptEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Prompt", "Volume"}); err != nil {
		return err
	}
	for _, p := range prompts {
		vol := ""
		if p.Volume != nil {
			vol = strconv.FormatFloat(*p.Volume, 'f', -1, 64)
		}
		if err := cw.Write([]string{p.Prompt, vol}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRankingCSV writes the normalized ranking table used by the CLI.
func WriteRankingCSV(w io.Writer, entries []models.RankingEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Rank", "Brand", "Visibility", "Sentiment", "Position", "Domain"}); err != nil {
		return err
	}
	for _, e := range entries {
		sentiment, position := "", ""
		if e.Sentiment != nil {
			sentiment = strconv.Itoa(*e.Sentiment)
		}
		if e.SourcePosition != nil {
			position = strconv.FormatFloat(*e.SourcePosition, 'f', -1, 64)
		}
		rec := []string{strconv.Itoa(e.Rank), e.DisplayName, strconv.Itoa(e.VisibilityPercent), sentiment, position, e.Domain}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
