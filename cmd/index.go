package cmd

import (
	"fmt"
	"os"
	"time"

	"coderag/internal/index"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var indexCmd = &cobra.Command{
	Use:         "index [path]",
	Short:       "Scan, chunk and embed a codebase into the store",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{rootArgAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := commandRoot(cmd, args)
		if err != nil {
			return err
		}

		st, err := openStore(root)
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Println(titleStyle.Render("Indexing " + root))
		start := time.Now()

		opts := index.Options{
			Extensions:  cfg.Extensions,
			StorageDir:  cfg.StorageDir,
			MaxFileSize: cfg.MaxFileSize,
			BatchSize:   cfg.BatchSize,
			Logger:      logger,
		}
		ingest := func(onProgress index.ProgressFunc) (*index.Stats, error) {
			opts.OnProgress = onProgress
			return index.Ingest(root, st, opts)
		}

		var stats *index.Stats
		if term.IsTerminal(int(os.Stdout.Fd())) {
			stats, err = ingestWithSpinner(os.Stdout, ingest)
		} else {
			stats, err = ingest(func(stage string, done, total int) {
				logger.Debug(stage, "done", done, "total", total)
			})
		}

		if stats != nil {
			fmt.Println()
			fmt.Println(successStyle.Render(fmt.Sprintf("Done in %s", time.Since(start).Round(time.Millisecond))))
			fmt.Println(statLine("Files", fmt.Sprintf("%d total, %d parsed, %d unparseable", stats.FilesTotal, stats.FilesParsed, stats.FilesSkipped)))
			fmt.Println(statLine("Chunks", stats.ChunksTotal))
			fmt.Println(statLine("Graph", fmt.Sprintf("%d entities, %d edges", stats.Graph.Entities, stats.Graph.Edges)))
			fmt.Println(statLine("Store", fmt.Sprintf("%d records, %d embedded (%s)", st.Len(), st.Embedded(), st.State())))
			fmt.Println(dimStyle.Render(st.Path()))
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
