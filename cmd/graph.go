package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"coderag/internal/graph"
	"coderag/internal/walker"

	"github.com/spf13/cobra"
)

var (
	flagGraphFile string
	flagGraphJSON bool
)

var graphCmd = &cobra.Command{
	Use:         "graph [path]",
	Short:       "Build the structure graph of a codebase and print a summary",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{rootArgAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := commandRoot(cmd, args)
		if err != nil {
			return err
		}
		g, err := buildGraph(root)
		if err != nil {
			return err
		}

		if flagGraphFile != "" {
			return printDefinitions(g, filepath.ToSlash(flagGraphFile))
		}

		s := g.Summary()
		if flagGraphJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		fmt.Println(titleStyle.Render("Structure graph of " + root))
		fmt.Println(statLine("Files", s.Files))
		fmt.Println(statLine("Entities", s.Entities))
		fmt.Println(statLine("Edges", s.Edges))
		return nil
	},
}

func init() {
	graphCmd.Flags().StringVar(&flagGraphFile, "file", "", "list the definitions of one file (path relative to the root)")
	graphCmd.Flags().BoolVar(&flagGraphJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(graphCmd)
}

// buildGraph scans root with the configured filters and extracts its graph.
func buildGraph(root string) (*graph.Graph, error) {
	files, err := walker.Scan(root, walker.Options{
		Extensions:  cfg.Extensions,
		StorageDir:  cfg.StorageDir,
		MaxFileSize: cfg.MaxFileSize,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	g := graph.NewBuilder(logger).Build(files)
	s := g.Summary()
	logger.Info("structure graph built", "files", s.Files, "entities", s.Entities, "edges", s.Edges)
	return g, nil
}

func printDefinitions(g *graph.Graph, relPath string) error {
	if _, ok := g.Entity(relPath); !ok {
		return fmt.Errorf("file %q is not in the graph", relPath)
	}
	fmt.Println(titleStyle.Render(relPath))
	for _, e := range g.Definitions(relPath) {
		fmt.Printf("  %-8s %s %s\n", e.Kind, e.Name, dimStyle.Render(fmt.Sprintf("line %d", e.Line)))
		if e.Kind != graph.KindClass {
			continue
		}
		for _, m := range g.Definitions(e.ID) {
			fmt.Printf("    %-8s %s %s\n", m.Kind, m.Name, dimStyle.Render(fmt.Sprintf("line %d", m.Line)))
		}
	}
	return nil
}
