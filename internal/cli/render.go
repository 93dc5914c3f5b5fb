package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ethanyzhang/prestotype/internal/config"
	"github.com/ethanyzhang/prestotype/typesig"
	"github.com/jedib0t/go-pretty/v6/table"
)

// node is one element of a parsed signature, flattened for display.
type node struct {
	Path       string `json:"path"`
	Kind       string `json:"kind"`
	Field      string `json:"field,omitempty"`
	Value      string `json:"value"`
	Calculated bool   `json:"calculated"`
	depth      int
}

// flatten walks sig depth first. The root has path "$"; parameter i of a node
// at path p has path p.i.
func flatten(sig *typesig.TypeSignature) []node {
	out := []node{{Path: "$", Kind: "SIGNATURE", Value: sig.String(), Calculated: sig.IsCalculated()}}
	return appendParameters(out, "$", 1, sig)
}

func appendParameters(out []node, path string, depth int, sig *typesig.TypeSignature) []node {
	for i, p := range sig.Parameters() {
		n := node{
			Path:       path + "." + strconv.Itoa(i),
			Kind:       p.Kind().String(),
			Value:      p.String(),
			Calculated: p.IsCalculated(),
			depth:      depth,
		}
		if named, ok := p.NamedType(); ok {
			if name, ok := named.Name(); ok {
				n.Field = name
			}
			n.Value = named.Type.String()
		}
		out = append(out, n)
		if child := p.Signature(); child != nil {
			out = appendParameters(out, n.Path, depth+1, child)
		}
	}
	return out
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type parsed struct {
	Input string
	Sig   *typesig.TypeSignature
}

func renderParsed(w io.Writer, format string, items []parsed) error {
	switch format {
	case config.OutputJSON:
		type entry struct {
			Input     string `json:"input"`
			Signature string `json:"signature"`
			Hash      string `json:"hash"`
			Nodes     []node `json:"nodes"`
		}
		entries := make([]entry, len(items))
		for i, it := range items {
			entries[i] = entry{
				Input:     it.Input,
				Signature: it.Sig.String(),
				Hash:      fmt.Sprintf("%016x", it.Sig.Hash()),
				Nodes:     flatten(it.Sig),
			}
		}
		return writeJSON(w, entries)
	case config.OutputText:
		for _, it := range items {
			for _, n := range flatten(it.Sig) {
				label := n.Kind
				if n.Field != "" {
					label += " " + n.Field
				}
				fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", n.depth), label, n.Value)
			}
		}
		return nil
	}

	t := newTable(w, "Input", "Path", "Kind", "Field", "Value", "Calculated")
	for i, it := range items {
		if i > 0 {
			t.AppendSeparator()
		}
		for _, n := range flatten(it.Sig) {
			input := ""
			if n.Path == "$" {
				input = it.Input
			}
			t.AppendRow(table.Row{input, n.Path, n.Kind, n.Field, n.Value, n.Calculated})
		}
	}
	t.Render()
	return nil
}
