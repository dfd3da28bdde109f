package main

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/vellum/dialect/sql/sqlcatalog"
	"github.com/syssam/vellum/dialect/sql/sqlpage"
	"github.com/syssam/vellum/dialect/sql/sqlquery"
)

var pageFlags struct {
	columns   string
	direction string
	size      int
	state     string
}

var pageCmd = &cobra.Command{
	Use:   "page [schema.]TABLE",
	Short: "Fetch a page of rows ordered by an indexed key",
	Long: `page fetches one page of a table ordered by --columns, which must be a
prefix of the primary key or of a unique index. Pass the state printed by a
previous call with --state to continue from that page.`,
	Example: `  vellum page people --columns LastName
  vellum page people --columns LastName --direction next --state gqVmaXJzdIGoTGFzdE5hbWU...`,
	Args: cobra.ExactArgs(1),
	RunE: runPage,
}

func init() {
	pageCmd.Flags().StringVarP(&pageFlags.columns, "columns", "c", "", "key columns (comma-separated)")
	pageCmd.Flags().StringVarP(&pageFlags.direction, "direction", "d", "first", "page direction: first, next, previous or last")
	pageCmd.Flags().IntVarP(&pageFlags.size, "size", "n", 0, "page size (default VELLUM_PAGE_SIZE)")
	pageCmd.Flags().StringVar(&pageFlags.state, "state", "", "paging state printed by a previous call")
	_ = pageCmd.MarkFlagRequired("columns")
}

type pageDoc struct {
	Direction string           `yaml:"direction"`
	Rows      []map[string]any `yaml:"rows"`
	State     string           `yaml:"state"`
}

func runPage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir, err := sqlpage.ParseDirection(pageFlags.direction)
	if err != nil {
		return err
	}
	schema, name := sqlcatalog.SplitName(args[0])
	base := sqlquery.Select(cli.provider, cli.catalog)
	if _, err := base.From(sqlquery.Table(schema, name)); err != nil {
		return err
	}
	var columns []string
	for _, c := range strings.Split(pageFlags.columns, ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	pager, err := sqlpage.New(ctx, base, columns, cli.driver,
		sqlpage.WithPageSize(cli.cfg.Paging.Size),
		sqlpage.WithLogger(cli.log),
	)
	if err != nil {
		return err
	}
	if pageFlags.state != "" {
		blob, err := base64.StdEncoding.DecodeString(pageFlags.state)
		if err != nil {
			return fmt.Errorf("decode --state: %w", err)
		}
		if err := pager.RestorePagingState(blob); err != nil {
			return err
		}
	}
	rows, err := pager.GetPage(ctx, dir, pageFlags.size)
	if err != nil {
		return err
	}
	state, err := pager.GetPagingState()
	if err != nil {
		return err
	}
	doc := pageDoc{
		Direction: dir.String(),
		Rows:      make([]map[string]any, len(rows)),
		State:     base64.StdEncoding.EncodeToString(state),
	}
	for i, r := range rows {
		doc.Rows[i] = r.Map()
	}
	return writeYAML(doc)
}
