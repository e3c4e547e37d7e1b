package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"colstore-go/internal/app"
	"colstore-go/internal/colstore"
	"colstore-go/internal/config"
	"colstore-go/internal/storage"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	configPath string
	verbose    bool
)

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "SaveFile", "Watch").
func newApp(ctx context.Context, operation, parameters string) (*app.App, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(ctx, cfg, operation, app.Options{Parameters: parameters, Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "colstore",
	Short:        "Document collection store",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path := configPath
		if path == "" {
			path = defaults.ConfigPath
		}

		cfg := defaults.NewConfig()
		if mode, _ := cmd.Flags().GetString("mode"); mode == colstore.ModeRelational {
			cfg.Storage = config.StorageConfig{
				Mode:         colstore.ModeRelational,
				DatabasePath: filepath.Join(defaults.BaseDir, "collections.db"),
			}
		} else if mode != colstore.ModeFilesystem {
			return fmt.Errorf("unknown storage mode %q (supported: %s)", mode, strings.Join(storage.SupportedModes(), ", "))
		}

		if res := storage.ValidateConfig(cfg.Storage); !res.Valid() {
			return res.Err()
		}
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Storage Mode: %s\n", cfg.Storage.Mode)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}

		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Storage Mode: %s\n", cfg.Storage.Mode)
		switch cfg.Storage.Mode {
		case colstore.ModeRelational:
			fmt.Printf("Database:     %s\n", cfg.Storage.DatabasePath)
		case colstore.ModeFilesystem:
			fmt.Printf("Collections:  %s\n", cfg.Storage.FilesystemPath)
			fmt.Printf("Metadata DB:  %s\n", cfg.Storage.MetadataDBPath)
			fmt.Printf("Auto Reconcile: %t\n", cfg.Storage.AutoReconcileEnabled())
		}
		if len(cfg.Storage.AllowedExtensions) > 0 {
			fmt.Printf("Extensions:   %s\n", strings.Join(cfg.Storage.AllowedExtensions, " "))
		}

		if res := storage.ValidateConfig(cfg.Storage); !res.Valid() {
			fmt.Println()
			for _, p := range res.Problems {
				fmt.Printf("problem: %s\n", p)
			}
			return errors.New("configuration is not usable")
		}
		return nil
	},
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List supported storage modes",
	Run: func(cmd *cobra.Command, args []string) {
		for _, m := range storage.SupportedModes() {
			fmt.Println(m)
		}
	},
}

// collection command
var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp(cmd.Context(), "CreateCollection", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.CreateCollection(cmd.Context(), args[0], description)
		if err != nil {
			return err
		}
		fmt.Printf("Created collection: %s\n", c.Name)
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListCollections", "")
		if err != nil {
			return err
		}
		defer a.Close()

		cols, err := a.ListCollections(cmd.Context())
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			fmt.Println("No collections.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, c := range cols {
			fmt.Fprintf(tw, "%s\t%d file(s)\t%s\n", c.Name, c.FileCount, c.Description)
		}
		return tw.Flush()
	},
}

var collectionInfoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Show collection details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "GetCollection", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.GetCollection(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Name:        %s\n", info.Name)
		if info.Description != "" {
			fmt.Printf("Description: %s\n", info.Description)
		}
		fmt.Printf("Created:     %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Files:       %d\n", info.FileCount)
		fmt.Printf("Size:        %d bytes\n", info.TotalSize)
		if info.Sync != nil {
			printSyncSummary(info.Sync)
		}
		if l := info.LastReconciliation; l != nil {
			fmt.Printf("Last Reconciliation: %s  +%d ~%d -%d\n",
				l.Timestamp.Format("2006-01-02 15:04:05"), l.FilesAdded, l.FilesModified, l.FilesDeleted)
		}
		return nil
	},
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a collection and all its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DeleteCollection", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.DeleteCollection(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted collection %s (%d file record(s))\n", args[0], n)
		return nil
	},
}

// file command
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage files in a collection",
}

var fileSaveCmd = &cobra.Command{
	Use:   "save COLLECTION FILENAME",
	Short: "Save a file (content from --content, --from or stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readContent(cmd)
		if err != nil {
			return err
		}
		folder, _ := cmd.Flags().GetString("folder")
		sourceURL, _ := cmd.Flags().GetString("source-url")

		a, err := newApp(cmd.Context(), "SaveFile", args[0]+"/"+args[1])
		if err != nil {
			return err
		}
		defer a.Close()

		meta, err := a.SaveFile(cmd.Context(), colstore.SaveRequest{
			Collection: args[0],
			Filename:   args[1],
			Content:    content,
			Folder:     folder,
			SourceURL:  sourceURL,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s/%s (%d bytes, %s)\n", meta.Collection, meta.Path, meta.Size, meta.ContentHash[:12])
		return nil
	},
}

// readContent picks the save payload: --content wins, then --from, then stdin.
func readContent(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("content") {
		content, _ := cmd.Flags().GetString("content")
		return content, nil
	}

	var r io.Reader = cmd.InOrStdin()
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		f, err := os.Open(from)
		if err != nil {
			return "", fmt.Errorf("opening content file: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return string(data), nil
}

var fileReadCmd = &cobra.Command{
	Use:   "read COLLECTION PATH",
	Short: "Print a file's content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ReadFile", args[0]+"/"+args[1])
		if err != nil {
			return err
		}
		defer a.Close()

		content, err := a.ReadFile(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Print(content)
		return nil
	},
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete COLLECTION PATH",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DeleteFile", args[0]+"/"+args[1])
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteFile(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s/%s\n", args[0], args[1])
		return nil
	},
}

var fileListCmd = &cobra.Command{
	Use:   "list COLLECTION",
	Short: "List files in a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListFiles", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.ListFiles(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No files found.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, f := range files {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.Path, f.Size, f.SyncStatus, f.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}

// reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile [COLLECTION]",
	Short: "Bring metadata in line with files on disk",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return errors.New("name one collection or pass --all")
		}

		parameters := "all"
		if !all {
			parameters = args[0]
		}
		a, err := newApp(cmd.Context(), "Reconcile", parameters)
		if err != nil {
			return err
		}
		defer a.Close()

		if all {
			results, err := a.ReconcileAll(cmd.Context())
			for _, res := range results {
				printReconcileResult(res)
			}
			return err
		}

		res, err := a.Reconcile(cmd.Context(), args[0])
		if res != nil {
			printReconcileResult(res)
		}
		return err
	},
}

func printReconcileResult(res *colstore.ReconcileResult) {
	fmt.Printf("%s: %d added, %d modified, %d deleted\n", res.Collection, res.FilesAdded, res.FilesModified, res.FilesDeleted)
	if verbose {
		for _, act := range res.Actions {
			fmt.Printf("  %-22s %s  %s\n", act.Action, act.File, act.Reason)
		}
		return
	}
	for _, f := range res.Failures() {
		fmt.Printf("  %-22s %s  %s\n", f.Action, f.File, f.Error)
	}
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Inspect and record vector sync state",
}

var syncStatusCmd = &cobra.Command{
	Use:   "status COLLECTION",
	Short: "Summarize a collection's vector sync state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SyncSummary", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.SyncSummary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSyncSummary(s)
		return nil
	},
}

var syncSetCmd = &cobra.Command{
	Use:   "set COLLECTION PATH STATUS",
	Short: "Record the vector sync status of one file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp(cmd.Context(), "SetSyncStatus", args[0]+"/"+args[1])
		if err != nil {
			return err
		}
		defer a.Close()

		meta, err := a.SetSyncStatus(cmd.Context(), args[0], args[1], args[2], message)
		if err != nil {
			return err
		}
		fmt.Printf("%s/%s: %s\n", meta.Collection, meta.Path, meta.SyncStatus)
		return nil
	},
}

func printSyncSummary(s *colstore.SyncSummary) {
	fmt.Printf("Sync Status: %s\n", s.Status)
	fmt.Printf("  synced %d, syncing %d, not synced %d, errors %d (of %d)\n",
		s.Synced, s.Syncing, s.NotSynced, s.SyncErrors, s.TotalFiles)
	if s.SyncActionable() {
		fmt.Println("  sync has work to do")
	}
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and back up the metadata database",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}

		st, path, err := app.DatabaseStatus(cfg.Storage)
		if err != nil {
			return err
		}
		fmt.Printf("Database: %s\n", path)
		fmt.Printf("Version:  %d (latest %d)\n", st.Version, st.Latest)
		switch {
		case st.Dirty:
			fmt.Println("State:    dirty, a migration failed part way")
		case st.UpToDate():
			fmt.Println("State:    up to date")
		case st.Version > st.Latest:
			fmt.Println("State:    newer than this binary")
		default:
			fmt.Println("State:    pending migrations (applied on next open)")
		}
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent copy of the database to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		dest, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving backup path: %w", err)
		}

		src, err := app.BackupDatabase(cmd.Context(), cfg.Storage, dest)
		if err != nil {
			return err
		}
		fmt.Printf("Backed up %s to %s\n", src, dest)
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile periodically and serve health and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Watch", "")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Watch(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $"+app.EnvConfigPath+" or ~/.config/colstore.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output and debug logging")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("mode", colstore.ModeFilesystem, "Storage mode")
	configCmd.AddCommand(configShowCmd)

	// collection subcommands
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCreateCmd.Flags().StringP("description", "d", "", "Collection description")
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionInfoCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)

	// file subcommands
	fileCmd.AddCommand(fileSaveCmd)
	fileSaveCmd.Flags().String("content", "", "File content")
	fileSaveCmd.Flags().String("from", "", "Read content from this file")
	fileSaveCmd.Flags().StringP("folder", "f", "", "Folder within the collection")
	fileSaveCmd.Flags().String("source-url", "", "Where the content came from")
	fileCmd.AddCommand(fileReadCmd)
	fileCmd.AddCommand(fileDeleteCmd)
	fileCmd.AddCommand(fileListCmd)

	// sync subcommands
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncSetCmd)
	syncSetCmd.Flags().StringP("message", "m", "", "Error message for sync_error")

	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modesCmd)
	rootCmd.AddCommand(collectionCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().Bool("all", false, "Discover and reconcile every collection")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(watchCmd)
}
