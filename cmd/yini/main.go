// Command yini is a thin CLI over the yini façade package: parse,
// validate, inspect, and write back YINI configuration files. The
// wiring follows MacroPower-x/cmd/magicschema's cobra root-command
// shape (RunE delegating to a plain run function, SilenceErrors/
// SilenceUsage set so the façade's own error messages are what the
// user sees).
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yini-lang/yini"
	"github.com/yini-lang/yini/logging"
	"github.com/yini-lang/yini/sidecar"
	"github.com/yini-lang/yini/value"
)

func main() {
	logCfg := &logging.Config{}

	rootCmd := &cobra.Command{
		Use:           "yini",
		Short:         "Inspect, validate, and rewrite YINI configuration files",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	logCfg.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		h, err := logCfg.NewHandler(os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(h))
		return nil
	}

	rootCmd.AddCommand(
		newCheckCmd(),
		newCompileCmd(),
		newDecompileCmd(),
		newValidateCmd(),
		newExportJSONCmd(),
		newQueryCmd(),
		newGenerateSidecarCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.yini>",
		Short: "Load and resolve a YINI file, reporting the first fatal error",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, err := yini.Load(args[0], yini.Options{})
			if err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <in.yini> <out.ymeta>",
		Short: "Resolve a YINI file and write its binary sidecar to out",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := yini.Load(args[0], yini.Options{})
			if err != nil {
				return err
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			return sidecar.Write(f, doc.Resolved(), nil, nil)
		},
	}
}

func newDecompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompile <in.ymeta> <out.yini>",
		Short: "Read a binary sidecar and render it back as YINI source",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			decoded, err := sidecar.Read(f)
			if err != nil {
				return err
			}
			return os.WriteFile(args[1], []byte(renderYINI(decoded)), 0o644)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.yini>",
		Short: "Load a YINI file and report schema validation diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := yini.Load(args[0], yini.Options{})
			if err != nil {
				return err
			}
			diags := doc.Diagnostics()
			for _, d := range diags {
				fmt.Fprintln(os.Stdout, d)
			}
			if len(diags) > 0 {
				return fmt.Errorf("%d validation issue(s) found", len(diags))
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func newExportJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json <file.yini>",
		Short: "Resolve a YINI file and print its sections as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := yini.Load(args[0], yini.Options{})
			if err != nil {
				return err
			}
			cfg := doc.Resolved()
			out := make(map[string]any, len(cfg.Sections))
			for _, name := range cfg.Order {
				sec := cfg.Sections[name]
				entries := make(map[string]any, len(sec.Values))
				for _, key := range sec.Order {
					entries[key] = toJSON(value.Unwrap(sec.Values[key]))
				}
				out[name] = entries
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <file.yini> <section> <key>",
		Short: "Print the resolved value at section.key",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := yini.Load(args[0], yini.Options{})
			if err != nil {
				return err
			}
			v, ok := doc.Get(args[1], args[2])
			if !ok {
				return fmt.Errorf("no such entry: %s.%s", args[1], args[2])
			}
			fmt.Println(v.String())
			return nil
		},
	}
}

func newGenerateSidecarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-sidecar <file.yini>",
		Short: "Write (or refresh) the binary .ymeta sidecar for a YINI file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := yini.Load(args[0], yini.Options{})
			if err != nil {
				return err
			}
			if err := doc.WriteSidecar(); err != nil {
				return err
			}
			fmt.Println(doc.SidecarPath())
			return nil
		},
	}
}

// renderYINI renders a decoded sidecar back to YINI source text, using
// the canonical formatter for every value (spec §6 "Value canonical
// formatter"). Macros are re-emitted first since a decompiled file has
// no other record of them; inheritance is not reconstructed since the
// sidecar's Sections block already stores flattened, resolved entries.
func renderYINI(decoded *sidecar.Decoded) string {
	var b strings.Builder
	if len(decoded.Macros) > 0 {
		b.WriteString("[#define]\n")
		for name, v := range decoded.Macros {
			fmt.Fprintf(&b, "%s = %s\n", name, value.Unwrap(v).String())
		}
		b.WriteString("\n")
	}
	cfg := decoded.Config
	for _, name := range cfg.Order {
		sec := cfg.Sections[name]
		fmt.Fprintf(&b, "[%s]\n", name)
		for _, key := range sec.Order {
			fmt.Fprintf(&b, "%s = %s\n", key, value.Unwrap(sec.Values[key]).String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

// toJSON converts a resolved value.Value into plain
// maps/slices/primitives that encoding/json can marshal directly,
// since the value types themselves carry no json struct tags.
func toJSON(v value.Value) any {
	switch x := v.(type) {
	case value.Null:
		return nil
	case value.Int:
		return int64(x)
	case value.Float:
		return float64(x)
	case value.Bool:
		return bool(x)
	case value.String:
		return string(x)
	case *value.Array:
		items := make([]any, len(x.Items))
		for i, it := range x.Items {
			items[i] = toJSON(it)
		}
		return items
	case *value.Set:
		items := make([]any, len(x.Items))
		for i, it := range x.Items {
			items[i] = toJSON(it)
		}
		return items
	case *value.Map:
		out := make(map[string]any, len(x.Keys))
		for _, k := range x.Keys {
			out[k] = toJSON(x.Values[k])
		}
		return out
	case value.Color:
		return x.String()
	case value.Coord:
		return x.String()
	case value.Path:
		return x.String()
	case *value.Dynamic:
		return toJSON(x.Inner)
	default:
		return v.String()
	}
}
