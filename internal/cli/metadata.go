package cli

import (
	"fmt"
	"io"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/ethanyzhang/prestotype/internal/config"
	"github.com/ethanyzhang/prestotype/metadata"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const describeParallelism = 4

func parseTableNames(args []string) ([]metadata.TableName, error) {
	names := make([]metadata.TableName, len(args))
	for i, arg := range args {
		name, err := metadata.ParseTableName(arg)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <catalog.schema.table>...",
		Short: "Show the columns of tables with parsed types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := parseTableNames(args)
			if err != nil {
				return err
			}
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			described, err := metadata.NewColumnService(db).DescribeTables(ctx, tables, describeParallelism)
			if err != nil {
				return err
			}
			return renderDescribed(cmd.OutOrStdout(), a.cfg.Output, described)
		},
	}
}

func renderDescribed(w io.Writer, format string, described []metadata.TableColumns) error {
	switch format {
	case config.OutputJSON:
		type entry struct {
			metadata.TableName
			Columns []presto.Column `json:"columns"`
		}
		entries := make([]entry, len(described))
		for i, d := range described {
			entries[i] = entry{TableName: d.Table, Columns: d.Columns}
		}
		return writeJSON(w, entries)
	case config.OutputText:
		for _, d := range described {
			fmt.Fprintln(w, d.Table)
			for _, c := range d.Columns {
				fmt.Fprintf(w, "  %s %s\n", c.Name, c.Type)
			}
		}
		return nil
	}

	t := newTable(w, "Table", "Column", "Type", "Base", "Calculated")
	for i, d := range described {
		if i > 0 {
			t.AppendSeparator()
		}
		for j, c := range d.Columns {
			name := ""
			if j == 0 {
				name = d.Table.String()
			}
			sig, err := c.Signature()
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{name, c.Name, c.Type, sig.Base(), sig.IsCalculated()})
		}
	}
	t.Render()
	return nil
}

func newTableCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Create, drop and rename tables",
	}

	var (
		file   string
		dryRun bool
	)
	create := &cobra.Command{
		Use:   "create -f <table.yaml>",
		Short: "Create a table from a YAML definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := metadata.LoadTableInfo(file)
			if err != nil {
				return err
			}
			if dryRun {
				statement, err := metadata.BuildCreateTable(*info)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), statement)
				return nil
			}
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			if err := metadata.NewTableService(db).CreateTable(ctx, *info); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", info.TableName)
			return nil
		},
	}
	create.Flags().StringVarP(&file, "file", "f", "", "table definition file")
	create.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement instead of running it")
	_ = create.MarkFlagRequired("file")

	drop := &cobra.Command{
		Use:   "drop <catalog.schema.table>",
		Short: "Drop a table if it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := metadata.ParseTableName(args[0])
			if err != nil {
				return err
			}
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			if err := metadata.NewTableService(db).DropTable(ctx, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", name)
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename <catalog.schema.table> <catalog.schema.table>",
		Short: "Rename a table within its catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := parseTableNames(args)
			if err != nil {
				return err
			}
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			if err := metadata.NewTableService(db).RenameTable(ctx, names[0], names[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", names[0], names[1])
			return nil
		},
	}

	cmd.AddCommand(create, drop, rename)
	return cmd
}

func newColumnCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Add and drop columns",
	}

	var comment string
	add := &cobra.Command{
		Use:   "add <catalog.schema.table> <name> <type>",
		Short: "Add a column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := metadata.ParseTableName(args[0])
			if err != nil {
				return err
			}
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			column := metadata.ColumnInfo{Name: args[1], Type: args[2], Comment: comment}
			return metadata.NewColumnService(db).AddColumn(ctx, name, column)
		},
	}
	add.Flags().StringVar(&comment, "comment", "", "column comment")

	drop := &cobra.Command{
		Use:   "drop <catalog.schema.table> <name>",
		Short: "Drop a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := metadata.ParseTableName(args[0])
			if err != nil {
				return err
			}
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			return metadata.NewColumnService(db).DropColumn(ctx, name, args[1])
		},
	}

	cmd.AddCommand(add, drop)
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List, create and drop schemas",
	}

	list := &cobra.Command{
		Use:   "list <catalog>",
		Short: "List the schemas of a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			names, err := metadata.NewSchemaService(db).Schemas(ctx, args[0])
			if err != nil {
				return err
			}
			return renderNames(cmd.OutOrStdout(), a.cfg.Output, "Schema", names)
		},
	}

	var properties map[string]string
	create := &cobra.Command{
		Use:     "create <catalog> <schema>",
		Short:   "Create a schema if it does not exist",
		Example: "  prestotype schema create hive scratch --property location=s3://bucket/scratch",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			props := make(map[string]any, len(properties))
			for k, v := range properties {
				props[k] = v
			}
			return metadata.NewSchemaService(db).CreateSchema(ctx, args[0], args[1], props)
		},
	}
	create.Flags().StringToStringVar(&properties, "property", nil, "schema property as key=value (repeatable)")

	var cascade bool
	drop := &cobra.Command{
		Use:   "drop <catalog> <schema>",
		Short: "Drop a schema if it exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			return metadata.NewSchemaService(db).DropSchema(ctx, args[0], args[1], cascade)
		},
	}
	drop.Flags().BoolVar(&cascade, "cascade", false, "drop the tables of the schema too")

	cmd.AddCommand(list, create, drop)
	return cmd
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables <catalog> <schema>",
		Short: "List the tables of a schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, db, closeDB, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			names, err := metadata.NewSchemaService(db).Tables(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return renderNames(cmd.OutOrStdout(), a.cfg.Output, "Table", names)
		},
	}
}

func renderNames(w io.Writer, format, header string, names []string) error {
	switch format {
	case config.OutputJSON:
		if names == nil {
			names = []string{}
		}
		return writeJSON(w, names)
	case config.OutputText:
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return nil
	}
	t := newTable(w, header)
	for _, n := range names {
		t.AppendRow(table.Row{n})
	}
	t.Render()
	return nil
}
