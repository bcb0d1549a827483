package cli

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
)

func newExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every table to JSONL files",
		Long: `Write each table to <dir>/<table>.jsonl, one JSON object per row. Images
are base64 encoded. The default directory is "export" under the data
directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				target := dir
				if target == "" {
					target = filepath.Join(s.dataDir, "export")
				}
				result, err := s.store.Export(ctx, target)
				if err != nil {
					return err
				}
				return emit(cmd, result, func() render.Table {
					tables := make([]string, 0, len(result.Rows))
					for table := range result.Rows {
						tables = append(tables, table)
					}
					sort.Strings(tables)
					t := render.Table{Headers: []string{"table", "rows", "file"}}
					for _, table := range tables {
						t.Rows = append(t.Rows, []string{
							table, strconv.Itoa(result.Rows[table]), filepath.Join(result.Dir, table+".jsonl"),
						})
					}
					return t
				})
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "output directory")
	return cmd
}
