package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/model"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replay datasource fragments from a CSV file",
	Long:  "Feeds each CSV row through the realtime aggregation path, as if it had arrived from a crawler.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close(ctx)

		processed, rejected, err := importFragments(ctx, env, importCSVPath)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int("processed", processed),
			zap.Int("rejected", rejected),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

// importFragments streams the CSV and hands each fragment to the facade.
// Rejected rows are logged and skipped; only I/O and parse errors abort.
func importFragments(ctx context.Context, env *pipelineEnv, path string) (processed, rejected int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, eris.Wrap(err, "open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, 0, eris.Wrap(err, "read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["gtin"]; !ok {
		return 0, 0, eris.New("csv is missing the gtin column")
	}
	if _, ok := col["datasource"]; !ok {
		return 0, 0, eris.New("csv is missing the datasource column")
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return processed, rejected, eris.Wrapf(err, "read csv line %d", line)
		}
		line++

		frag := fragmentFromRecord(col, record)
		if err := env.Facade.OnFragment(ctx, frag); err != nil {
			rejected++
			zap.L().Warn("fragment rejected",
				zap.Int("line", line),
				zap.String("gtin", frag.GTIN),
				zap.Error(err),
			)
			continue
		}
		processed++
	}
	return processed, rejected, nil
}

// fragmentFromRecord maps one CSV row onto a fragment. Categories are
// pipe-separated; attributes arrive as name=value pairs in an
// "attributes" column, separated by pipes.
func fragmentFromRecord(col map[string]int, record []string) *model.Fragment {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	frag := &model.Fragment{
		GTIN:       field("gtin"),
		Datasource: field("datasource"),
		URL:        field("url"),
		Timestamp:  time.Now().UTC(),
	}
	if ts := field("timestamp"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			frag.Timestamp = parsed
		}
	}
	if p := field("price"); p != "" {
		if v, err := strconv.ParseFloat(p, 64); err == nil {
			frag.Price = v
		}
	}
	if rt := field("rating"); rt != "" {
		if v, err := strconv.ParseFloat(rt, 64); err == nil {
			frag.Rating = v
		}
	}
	if cats := field("categories"); cats != "" {
		for _, c := range strings.Split(cats, "|") {
			if c = strings.TrimSpace(c); c != "" {
				frag.Categories = append(frag.Categories, c)
			}
		}
	}
	if attrs := field("attributes"); attrs != "" {
		for _, pair := range strings.Split(attrs, "|") {
			name, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			frag.Attributes = append(frag.Attributes, model.FragmentAttribute{
				Name:  strings.TrimSpace(name),
				Value: strings.TrimSpace(value),
			})
		}
	}
	return frag
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
