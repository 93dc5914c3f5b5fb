package cli

import (
	"fmt"
	"slices"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/ethanyzhang/prestotype/internal/config"
	"github.com/ethanyzhang/prestotype/typesig"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// parseAll parses every argument with the configured type variables plus
// extra.
func (a *app) parseAll(args, extra []string) ([]parsed, error) {
	vars := slices.Concat(a.cfg.Variables, extra)
	out := make([]parsed, len(args))
	for i, arg := range args {
		sig, err := typesig.Parse(arg, typesig.WithVariables(vars...))
		if err != nil {
			return nil, err
		}
		out[i] = parsed{Input: arg, Sig: sig}
	}
	return out, nil
}

func newParseCmd(a *app) *cobra.Command {
	var vars []string
	cmd := &cobra.Command{
		Use:   "parse <signature>...",
		Short: "Parse signatures and show their structure",
		Example: `  prestotype parse 'map(varchar(10), row(a bigint, "b c" array(double)))'
  prestotype parse --var T 'array(T)' -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.parseAll(args, vars)
			if err != nil {
				return err
			}
			return renderParsed(cmd.OutOrStdout(), a.cfg.Output, items)
		},
	}
	cmd.Flags().StringSliceVar(&vars, "var", nil, "identifier to treat as a type variable (repeatable)")
	return cmd
}

func newFormatCmd(a *app) *cobra.Command {
	var (
		vars []string
		wire bool
	)
	cmd := &cobra.Command{
		Use:   "format <signature>...",
		Short: "Print signatures in canonical form",
		Long: `Print signatures in canonical form.

With --wire the text is the form sent over the client protocol. With -o json
the structured form the coordinator sends next to each column is printed
instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.parseAll(args, vars)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch a.cfg.Output {
			case config.OutputJSON:
				wires := make([]presto.ClientTypeSignature, len(items))
				for i, it := range items {
					wires[i] = presto.NewClientTypeSignature(it.Sig)
				}
				return writeJSON(w, wires)
			case config.OutputText:
				for _, it := range items {
					fmt.Fprintln(w, typesig.Format(it.Sig, wire))
				}
				return nil
			}
			t := newTable(w, "Input", "Canonical")
			for _, it := range items {
				t.AppendRow(table.Row{it.Input, typesig.Format(it.Sig, wire)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&vars, "var", nil, "identifier to treat as a type variable (repeatable)")
	cmd.Flags().BoolVar(&wire, "wire", false, "use the client protocol form")
	return cmd
}
