package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gistwatch/gistwatch/internal/config"
	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/logger"
	"github.com/gistwatch/gistwatch/internal/progress"
	"github.com/gistwatch/gistwatch/internal/state"
)

// Command flags
var (
	addDescription string
	addFiles       []string
	addFolders     []string
	watchInterval  int
	historyLimit   int
)

var tokenCmd = &cobra.Command{
	Use:   "token <token>",
	Short: "Store the gist API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.NewStore(cfgFile)
		if err != nil {
			return err
		}
		if err := store.SetToken(args[0]); err != nil {
			return err
		}
		fmt.Println("token stored")
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Define a group and upload its current file set as a new gist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, history, err := newService()
		if err != nil {
			return err
		}
		defer history.Close()
		svc.SetReporter(progress.NewConsoleReporter(os.Stdout))

		group := domain.FileGroup{
			Name:        args[0],
			Description: addDescription,
			Files:       absAll(addFiles),
			Folders:     absAll(addFolders),
		}

		fmt.Printf("creating group %s\n", group.Name)
		created, err := svc.CreateGroup(cmd.Context(), group)
		if err != nil {
			return err
		}
		fmt.Printf("group %s created as gist %s\n", created.Name, created.GistID)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a group's gist and its local definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, history, err := newService()
		if err != nil {
			return err
		}
		defer history.Close()

		if err := svc.RemoveGroup(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("group %s removed\n", args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List defined groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.NewStore(cfgFile)
		if err != nil {
			return err
		}
		cfg, err := store.Load()
		if err != nil {
			return err
		}

		if len(cfg.Groups) == 0 {
			fmt.Println("no groups defined")
			return nil
		}
		for _, g := range cfg.Groups {
			remote := "not created"
			if g.HasRemote() {
				remote = g.GistID
			}
			fmt.Printf("%s\t%d files, %d folders\tgist: %s\n",
				g.Name, len(g.Files), len(g.Folders), remote)
		}
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <name>",
	Short: "Run one detection pass and push any changed files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, history, err := newService()
		if err != nil {
			return err
		}
		defer history.Close()

		n, err := svc.Push(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Printf("group %s is already in sync\n", args[0])
			return nil
		}
		fmt.Printf("pushed %d file(s) for group %s\n", n, args[0])
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [name...]",
	Short: "Watch groups and push changes as they happen",
	Long: `Watch starts change detection for the named groups, or for every group
with a gist when no names are given.

By default filesystem events drive pushes, debounced so editor write bursts
collapse into one update. With --interval the filesystem is polled instead,
comparing content snapshots every N minutes.

Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, history, err := newService()
		if err != nil {
			return err
		}
		defer history.Close()

		names := args
		if len(names) == 0 {
			groups, err := svc.Groups()
			if err != nil {
				return err
			}
			for _, g := range groups {
				if g.HasRemote() {
					names = append(names, g.Name)
				}
			}
		}
		if len(names) == 0 {
			return fmt.Errorf("no groups to watch")
		}

		interval := time.Duration(watchInterval) * time.Minute
		ctx := cmd.Context()
		started := 0
		for _, name := range names {
			if err := svc.Watch(ctx, name, interval); err != nil {
				logger.Get().Error("cannot watch group", "group", name, "error", err)
				continue
			}
			started++
		}
		if started == 0 {
			return fmt.Errorf("no group could be watched")
		}
		fmt.Printf("watching %d group(s), press Ctrl-C to stop\n", started)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("shutting down")
		svc.Scheduler().DisposeAll()
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show a group's remote metadata and last successful push",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, history, err := newService()
		if err != nil {
			return err
		}
		defer history.Close()

		meta, err := svc.RemoteMetadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if meta == nil {
			fmt.Println("remote document carries no metadata yet")
		} else {
			fmt.Printf("remote version:  %s\n", meta.Version)
			fmt.Printf("last upload:     %s\n", meta.UploadDate.Local().Format(time.RFC3339))
			fmt.Printf("watched files:   %d\n", len(meta.WatchedFiles))
			fmt.Printf("watched folders: %d\n", len(meta.WatchedFolders))
		}

		last, err := history.LastSuccess(args[0])
		if err != nil {
			return err
		}
		if last == nil {
			fmt.Println("no successful push recorded")
			return nil
		}
		fmt.Printf("last push:       %s (%d file(s))\n",
			last.Start.Local().Format(time.RFC3339), last.Files)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [name]",
	Short: "Show recent push history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := dataDir()
		if err != nil {
			return err
		}
		history, err := state.NewManager(dir)
		if err != nil {
			return err
		}
		defer history.Close()

		var records []state.PushRecord
		if len(args) == 1 {
			records, err = history.History(args[0], historyLimit)
		} else {
			records, err = history.AllHistory(historyLimit)
		}
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no pushes recorded")
			return nil
		}
		for _, r := range records {
			line := fmt.Sprintf("%s\t%s\t%s\t%d file(s)",
				r.Start.Local().Format(time.RFC3339), r.Group, r.Status, r.Files)
			if r.Error != "" {
				line += "\t" + r.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addDescription, "description", "", "description stored on the gist")
	addCmd.Flags().StringSliceVar(&addFiles, "file", nil, "file to track (repeatable)")
	addCmd.Flags().StringSliceVar(&addFolders, "folder", nil, "folder to track recursively (repeatable)")

	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "poll every N minutes instead of watching filesystem events")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum records to show")
}

// absAll resolves every path to an absolute one; unresolvable paths are kept
// as given and surface later as unreadable
func absAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
			continue
		}
		out = append(out, p)
	}
	return out
}
