package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/casedesk/go-casedesk/backend"
	"github.com/casedesk/go-casedesk/backend/sqlitebackend"
	"github.com/casedesk/go-casedesk/client"
	"github.com/casedesk/go-casedesk/config"
	"github.com/casedesk/go-casedesk/export"
	"github.com/casedesk/go-casedesk/logger"
	"github.com/casedesk/go-casedesk/reqcache"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// app bundles everything a subcommand needs.
type app struct {
	cfg     config.Config
	log     logger.Logger
	backend *sqlitebackend.Backend
	cache   *reqcache.Cache
	client  *client.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := config.ApplyEnvFile(envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.DBPath = config.FlagOrEnv(cmd, "db", "CASEDESK_DB", cfg.DBPath)

	log := config.NewLogger(cmd)

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}
	be, err := sqlitebackend.New(cfg.DBPath, sqlitebackend.WithLogger(log.WithPrefix("[backend]")))
	if err != nil {
		return nil, err
	}

	cache := reqcache.New(cmd.Context(),
		reqcache.WithDefaultTTL(cfg.CacheTTL),
		reqcache.WithSweepInterval(cfg.SweepInterval),
		reqcache.WithOrphanThreshold(cfg.OrphanThreshold),
		reqcache.WithLogger(log.WithPrefix("[cache]")))

	return &app{
		cfg:     cfg,
		log:     log,
		backend: be,
		cache:   cache,
		client: client.New(be, cache,
			client.WithTTLs(cfg.TTLs),
			client.WithLogger(log.WithPrefix("[client]"))),
	}, nil
}

func (a *app) close() {
	a.cache.Close()
	if err := a.backend.Close(); err != nil {
		a.log.Warn("closing database: %v", err)
	}
}

// run wraps a subcommand body with app setup and teardown.
func run(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, a, args)
	}
}

func table(header string, rows func(w *tabwriter.Writer)) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	w.Flush()
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a new case",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			caseNumber, _ := cmd.Flags().GetString("case-number")
			department, _ := cmd.Flags().GetString("department")
			clientName, _ := cmd.Flags().GetString("client")
			created, err := a.client.CreateCase(cmd.Context(), backend.CreateCaseArgs{
				Name:       args[0],
				CaseNumber: caseNumber,
				Department: department,
				Client:     clientName,
			})
			if err != nil {
				return err
			}
			fmt.Println(created.ID)
			return nil
		}),
	}
	cmd.Flags().String("case-number", "", "court case number")
	cmd.Flags().String("department", "", "department handling the case")
	cmd.Flags().String("client", "", "client name")
	return cmd
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <case-id> <folder>",
		Short: "Scan a folder and add its files to a case",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			result, err := a.client.IngestFiles(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("ingested %d, skipped %d\n", result.Ingested, result.Skipped)
			return nil
		}),
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <case-id> <folder>",
		Short: "Reconcile a case with a folder, adding new files and dropping unprotected missing ones",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			result, err := a.client.SyncCaseFolder(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("added %d, removed %d, kept %d\n", result.Added, result.Removed, result.Kept)
			return nil
		}),
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <case-id>",
		Short: "List a case's files",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			files, err := a.client.LoadFiles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table("ID\tNAME\tFOLDER\tTYPE\tSTATUS\tSIZE", func(w *tabwriter.Writer) {
				for _, f := range files {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
						f.ID, f.FileName, f.FolderPath, f.FileType, f.Status, f.FileSize)
				}
			})
			return nil
		}),
	}
}

func newCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts <case-id>",
		Short: "Show file counts per review status",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			counts, err := a.client.GetFileCounts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			statuses := make([]string, 0, len(counts.ByStatus))
			for s := range counts.ByStatus {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)
			table("STATUS\tCOUNT", func(w *tabwriter.Writer) {
				for _, s := range statuses {
					fmt.Fprintf(w, "%s\t%d\n", s, counts.ByStatus[s])
				}
				fmt.Fprintf(w, "total\t%d\n", counts.Total)
			})
			return nil
		}),
	}
}

func newDupesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dupes <case-id>",
		Short: "List groups of files with identical content",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			groups, err := a.client.LoadDuplicateGroups(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table("HASH\tCOUNT\tFILE IDS", func(w *tabwriter.Writer) {
				for _, g := range groups {
					fmt.Fprintf(w, "%.12s\t%d\t%s\n", g.FileHash, g.Count, strings.Join(g.FileIDs, ","))
				}
			})
			return nil
		}),
	}
}

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources <case-id>",
		Short: "List a case's source folders",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			if add, _ := cmd.Flags().GetString("add"); add != "" {
				src, err := a.client.AddSource(cmd.Context(), backend.AddSourceArgs{
					CaseID: args[0], SourcePath: add,
				})
				if err != nil {
					return err
				}
				fmt.Println(src.ID)
				return nil
			}
			sources, err := a.client.LoadSources(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table("ID\tPATH\tTYPE", func(w *tabwriter.Writer) {
				for _, s := range sources {
					fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.SourcePath, s.SourceType)
				}
			})
			return nil
		}),
	}
	cmd.Flags().String("add", "", "register a source folder instead of listing")
	return cmd
}

func newNoteCmd() *cobra.Command {
	noteCmd := &cobra.Command{
		Use:   "note",
		Short: "Manage case and file notes",
	}

	addCmd := &cobra.Command{
		Use:   "add <case-id> <content>",
		Short: "Attach a note to a case or, with --file, to a file",
		Args:  cobra.MinimumNArgs(2),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			fileID, _ := cmd.Flags().GetString("file")
			pinned, _ := cmd.Flags().GetBool("pin")
			note, err := a.client.AddNote(cmd.Context(), backend.AddNoteArgs{
				CaseID:  args[0],
				FileID:  fileID,
				Content: strings.Join(args[1:], " "),
				Pinned:  pinned,
			})
			if err != nil {
				return err
			}
			fmt.Println(note.ID)
			return nil
		}),
	}
	addCmd.Flags().String("file", "", "file id to attach the note to")
	addCmd.Flags().Bool("pin", false, "pin the note")

	lsCmd := &cobra.Command{
		Use:   "ls <case-id>",
		Short: "List notes, newest first, pinned on top",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			fileID, _ := cmd.Flags().GetString("file")
			notes, err := a.client.LoadNotes(cmd.Context(), args[0], fileID)
			if err != nil {
				return err
			}
			table("ID\tFILE\tPIN\tCONTENT", func(w *tabwriter.Writer) {
				for _, n := range notes {
					pin := ""
					if n.Pinned {
						pin = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.FileID, pin, n.Content)
				}
			})
			return nil
		}),
	}
	lsCmd.Flags().String("file", "", "only notes attached to this file id")

	rmCmd := &cobra.Command{
		Use:   "rm <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			return a.client.DeleteNote(cmd.Context(), args[0])
		}),
	}

	noteCmd.AddCommand(addCmd, lsCmd, rmCmd)
	return noteCmd
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <file-id>...",
		Short: "Set the review status of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			status, _ := cmd.Flags().GetString("set")
			if status == "" {
				return errors.New("--set is required")
			}
			result, err := a.client.UpdateFileStatus(cmd.Context(), args, status)
			if err != nil {
				return err
			}
			fmt.Printf("updated %d\n", result.Updated)
			return nil
		}),
	}
	cmd.Flags().String("set", "", "new status (unreviewed, in_progress, reviewed, flagged, finalized)")
	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-id>...",
		Short: "Remove files from a case, skipping protected ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			result, err := a.client.DeleteFiles(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d, protected %d\n", result.Deleted, result.Protected)
			return nil
		}),
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <case-id> <output-file>",
		Short: "Write a document inventory (CSV or JSON by file extension)",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			caseID, outPath := args[0], args[1]

			files, err := a.client.LoadFiles(cmd.Context(), caseID)
			if err != nil {
				return err
			}
			notes, err := a.client.LoadNotes(cmd.Context(), caseID, "")
			if err != nil {
				return err
			}
			byFile := map[string][]string{}
			for _, n := range notes {
				if n.FileID != "" {
					byFile[n.FileID] = append(byFile[n.FileID], n.Content)
				}
			}

			rows := export.BuildRows(files, byFile)
			caseNumber, _ := cmd.Flags().GetString("case-number")
			folder, _ := cmd.Flags().GetString("folder")
			meta := export.Metadata{CaseNumber: caseNumber, FolderPath: folder}

			out, err := os.Create(outPath)
			if err != nil {
				return errors.Wrap(err, "creating output file")
			}
			defer out.Close()

			switch strings.ToLower(filepath.Ext(outPath)) {
			case ".json":
				err = export.WriteJSON(out, rows, meta)
			case ".csv":
				err = export.WriteCSV(out, rows, meta)
			default:
				return errors.Newf("unsupported output format %q, use .csv or .json", filepath.Ext(outPath))
			}
			if err != nil {
				return err
			}
			return errors.Wrap(out.Close(), "closing output file")
		}),
	}
	cmd.Flags().String("case-number", "", "case number for the inventory title")
	cmd.Flags().String("folder", "", "source folder for the inventory preamble")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <case-id>",
		Short: "Summarize a case",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			counts, err := a.client.GetFileCounts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dupes, err := a.client.LoadDuplicateGroups(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			noteCounts, err := a.client.GetNoteCounts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sources, err := a.client.LoadSources(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var notes int64
			for _, nc := range noteCounts {
				notes += nc.Count
			}
			fmt.Printf("files: %d\nduplicate groups: %d\nnotes: %d\nsources: %d\n",
				counts.Total, len(dupes), notes, len(sources))

			cacheStats := a.client.CacheStats()
			a.log.Debug("cache entries after run: %d", cacheStats.EntryCount)
			return nil
		}),
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "casedesk",
		Short:         "Manage case file inventories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db", "", "database path (default CASEDESK_DB or the user config dir)")
	root.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("env-file", "", "load environment variables from this file")

	root.AddCommand(
		newInitCmd(),
		newIngestCmd(),
		newSyncCmd(),
		newLsCmd(),
		newCountsCmd(),
		newDupesCmd(),
		newSourcesCmd(),
		newNoteCmd(),
		newStatusCmd(),
		newRmCmd(),
		newExportCmd(),
		newStatsCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "casedesk: %v\n", err)
		os.Exit(1)
	}
}
