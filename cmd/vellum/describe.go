package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/vellum/dialect/sql/sqlcatalog"
)

var describeCmd = &cobra.Command{
	Use:   "describe [schema.]TABLE",
	Short: "Print the catalog metadata of a table as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, name := sqlcatalog.SplitName(args[0])
		t, err := cli.catalog.GetTable(cmd.Context(), schema, name)
		if err != nil {
			return err
		}
		return writeYAML(describeTable(t))
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists [schema.]TABLE",
	Short: "Report whether a table exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, name := sqlcatalog.SplitName(args[0])
		ok, err := cli.catalog.TableExists(cmd.Context(), schema, name)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cli.out, ok)
		return err
	},
}

type tableDoc struct {
	Schema      string          `yaml:"schema,omitempty"`
	Name        string          `yaml:"name"`
	Columns     []columnDoc     `yaml:"columns"`
	PrimaryKey  []string        `yaml:"primary_key,omitempty,flow"`
	Indexes     []indexDoc      `yaml:"indexes,omitempty"`
	ForeignKeys []foreignKeyDoc `yaml:"foreign_keys,omitempty"`
}

type columnDoc struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Native    string `yaml:"native,omitempty"`
	Nullable  bool   `yaml:"nullable,omitempty"`
	Identity  bool   `yaml:"identity,omitempty"`
	Default   bool   `yaml:"default,omitempty"`
	MaxLength int    `yaml:"max_length,omitempty"`
	Precision int    `yaml:"precision,omitempty"`
	Scale     int    `yaml:"scale,omitempty"`
}

type indexDoc struct {
	Name    string   `yaml:"name"`
	Unique  bool     `yaml:"unique,omitempty"`
	Keys    []string `yaml:"keys,flow"`
	Include []string `yaml:"include,omitempty,flow"`
}

type foreignKeyDoc struct {
	Name       string            `yaml:"name"`
	References string            `yaml:"references"`
	Columns    map[string]string `yaml:"columns"`
}

func describeTable(t *sqlcatalog.TableMetadata) tableDoc {
	doc := tableDoc{Schema: t.Schema, Name: t.Name, PrimaryKey: t.PrimaryKey()}
	for _, c := range t.Columns() {
		doc.Columns = append(doc.Columns, columnDoc{
			Name:      c.Name,
			Type:      c.Type.String(),
			Native:    c.NativeType,
			Nullable:  c.Nullable,
			Identity:  c.Identity,
			Default:   c.HasDefault,
			MaxLength: c.MaxLength,
			Precision: c.Precision,
			Scale:     c.Scale,
		})
	}
	for _, ix := range t.Indexes() {
		keys := make([]string, len(ix.Keys))
		for i, k := range ix.Keys {
			switch {
			case k.Expression != "":
				keys[i] = k.Expression
			case k.Descending:
				keys[i] = k.Column + " DESC"
			default:
				keys[i] = k.Column
			}
		}
		doc.Indexes = append(doc.Indexes, indexDoc{Name: ix.Name, Unique: ix.Unique, Keys: keys, Include: ix.Include})
	}
	for _, fk := range t.ForeignKeys() {
		ref := fk.RefTable
		if fk.RefSchema != "" {
			ref = fk.RefSchema + "." + ref
		}
		cols := make(map[string]string, len(fk.Columns))
		for _, p := range fk.Columns {
			cols[p.Column] = p.Referenced
		}
		doc.ForeignKeys = append(doc.ForeignKeys, foreignKeyDoc{Name: fk.Name, References: ref, Columns: cols})
	}
	return doc
}

func writeYAML(v any) error {
	enc := yaml.NewEncoder(cli.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
