package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	customelements "github.com/agentflare-ai/go-customelements"
	"github.com/agentflare-ai/go-customelements/dom"
	"github.com/agentflare-ai/go-customelements/manifest"
	"github.com/agentflare-ai/go-customelements/name"
	"github.com/agentflare-ai/go-customelements/reactions"
	"github.com/agentflare-ai/go-customelements/report"
	"github.com/agentflare-ai/go-xmldom"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ceupgrade",
		Short:         "Define custom elements and upgrade XML documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")

	root.AddCommand(newRunCmd(), newCheckCmd(), newNameCmd())
	return root
}

// result is printed by the run command.
type result struct {
	Definitions []string       `json:"definitions"`
	Reactions   int            `json:"reactions"`
	Upgraded    int            `json:"upgraded"`
	Elements    []elementState `json:"elements"`
	report.Result
}

type elementState struct {
	LocalName  string `json:"localName"`
	State      string `json:"state"`
	Definition string `json:"definition,omitempty"`
}

func newRunCmd() *cobra.Command {
	var (
		manifestPath string
		namespace    string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "run <document.xml>",
		Short: "Define the manifest's elements and upgrade the document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			doc, err := xmldom.NewDecoder(bytes.NewReader(source)).Decode()
			if err != nil {
				return fmt.Errorf("decode document: %w", err)
			}

			m, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}

			logger := slog.Default()
			var diags report.Result
			queue := reactions.New(reactions.Options{
				Logger:  logger,
				OnError: diags.Collector(args[0]),
			})
			reg := customelements.New(customelements.Config{
				Document:  doc,
				Namespace: namespace,
				Upgrader:  queue,
				Logger:    logger,
			})
			if _, err := manifest.DefineAll(ctx, reg, m, manifest.LogBinder(logger)); err != nil {
				return err
			}
			processed := queue.Process(ctx)

			res := &result{Reactions: processed.Reactions, Upgraded: processed.Upgraded, Result: diags}
			for _, def := range reg.Definitions() {
				res.Definitions = append(res.Definitions, def.Name())
			}
			if root := doc.DocumentElement(); root != nil {
				for _, el := range dom.NewWalker(nil).InclusiveDescendants(root) {
					state := queue.State(el)
					if state == reactions.Undefined {
						continue
					}
					es := elementState{LocalName: string(el.LocalName()), State: state.String()}
					if def := queue.Definition(el); def != nil {
						es.Definition = def.Name()
					}
					res.Elements = append(res.Elements, es)
				}
			}
			if err := printResult(cmd.OutOrStdout(), res, args[0], string(source), asJSON); err != nil {
				return err
			}
			if len(processed.Errors) > 0 {
				return fmt.Errorf("%d reaction(s) failed", len(processed.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Custom element manifest (YAML)")
	cmd.Flags().StringVar(&namespace, "namespace", customelements.HTMLNamespaceURI, "Namespace of custom elements in the document")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <manifest.yaml>",
		Short: "Validate a manifest and its definitions without a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(args[0])
			if err != nil {
				return err
			}
			reg := customelements.New(customelements.Config{})
			if _, err := manifest.DefineAll(cmd.Context(), reg, m, nil); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, def := range reg.Definitions() {
				fmt.Fprintf(out, "%s <%s>\n", def.Name(), def.LocalName())
			}
			return nil
		},
	}
}

func newNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name <name>...",
		Short: "Report whether names are valid custom element names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, n := range args {
				switch {
				case name.IsValid(n):
					fmt.Fprintf(out, "%s\tvalid\n", n)
				case name.IsReserved(n):
					invalid++
					fmt.Fprintf(out, "%s\treserved\n", n)
				default:
					invalid++
					fmt.Fprintf(out, "%s\tinvalid\n", n)
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d invalid name(s)", invalid)
			}
			return nil
		},
	}
}

func loadManifest(path string) (*manifest.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return manifest.Load(f)
}

func printResult(w io.Writer, res *result, sourceName, source string, asJSON bool) error {
	if asJSON {
		return report.NewJSONReporter(w).Print(res)
	}
	fmt.Fprintf(w, "defined: %v\n", res.Definitions)
	fmt.Fprintf(w, "reactions: %d upgraded: %d\n", res.Reactions, res.Upgraded)
	for _, es := range res.Elements {
		fmt.Fprintf(w, "  <%s> %s %s\n", es.LocalName, es.State, es.Definition)
	}
	return report.NewPrettyReporter(w).Print(sourceName, source, res.Diagnostics)
}
