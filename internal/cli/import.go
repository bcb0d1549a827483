package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/importer"
	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import rows from a CSV file",
		Long: `Import backlogs or dependencies from a CSV file with a header row.

Columns whose header matches a field name are mapped automatically. Use
--map field=column to map any other column; --map field= unmaps a field.
Rows that fail validation are skipped and counted by reason.`,
	}
	cmd.AddCommand(
		newImportKindCmd("backlog", importer.BacklogFields,
			func(ctx context.Context, s *session, im *importer.Importer, r io.Reader, m importer.Mapping) (*types.ImportResult, error) {
				return im.Backlogs(ctx, r, m, s.store.Backlogs())
			}),
		newImportKindCmd("dependency", importer.DependencyFields,
			func(ctx context.Context, s *session, im *importer.Importer, r io.Reader, m importer.Mapping) (*types.ImportResult, error) {
				return im.Dependencies(ctx, r, m, s.store.Config(), s.store.Dependencies())
			}),
	)
	return cmd
}

type importFunc func(ctx context.Context, s *session, im *importer.Importer, r io.Reader, m importer.Mapping) (*types.ImportResult, error)

func newImportKindCmd(kind string, fields []string, run importFunc) *cobra.Command {
	var file string
	var overrides []string
	cmd := &cobra.Command{
		Use:   kind,
		Short: fmt.Sprintf("Import %s rows", kind),
		Long: fmt.Sprintf("Import %s rows from a CSV file.\n\nFields: %s (the first two are required).",
			kind, strings.Join(fields, ", ")),
		Example: fmt.Sprintf(`  backlog import %s --file rows.csv --map task="Task Name"`, kind),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			mapping, err := buildMapping(data, fields, overrides)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				im := importer.New(importer.WithLogger(s.logger))
				result, err := run(ctx, s, im, bytes.NewReader(data), mapping)
				if result != nil {
					if perr := printImportResult(cmd, result); perr != nil && err == nil {
						err = perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file (required)")
	cmd.Flags().StringArrayVar(&overrides, "map", nil, "field=column mapping; repeatable")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// buildMapping starts from the header columns that match field names and
// applies each field=column override on top.
func buildMapping(data []byte, fields, overrides []string) (importer.Mapping, error) {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if errors.Is(err, io.EOF) {
		return nil, importer.ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	m := importer.DefaultMapping(header, fields)
	for _, o := range overrides {
		field, column, ok := strings.Cut(o, "=")
		if !ok {
			return nil, usagef("invalid --map %q (want field=column)", o)
		}
		field = strings.TrimSpace(field)
		if strings.TrimSpace(column) == "" {
			delete(m, field)
			continue
		}
		m[field] = column
	}
	return m, nil
}

func printImportResult(cmd *cobra.Command, r *types.ImportResult) error {
	p := printer(cmd)
	if flags.jsonMode {
		return p.JSON(r)
	}
	if err := p.Line("imported %d, skipped %d (run %s)", r.Imported, r.Skipped, r.RunID); err != nil {
		return err
	}
	if r.Skipped == 0 {
		return nil
	}
	reasons := make([]string, 0, len(r.SkipReasons))
	for reason := range r.SkipReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	t := render.Table{Headers: []string{"reason", "rows"}}
	for _, reason := range reasons {
		t.Rows = append(t.Rows, []string{reason, fmt.Sprint(r.SkipReasons[reason])})
	}
	return p.Table(t)
}
