package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"coahub/app/bootstrap"
	"coahub/app/config"
	"coahub/app/repositories"

	"github.com/sirupsen/logrus"
)

const cliVersion = "1.0.0"

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain runs the command named by os.Args and exits non-zero on failure.
func RealMain() {
	if code := run(os.Args[1:], os.Stdin, os.Stdout); code != 0 {
		exit(code)
	}
}

func run(args []string, in io.Reader, out io.Writer) int {
	if len(args) < 1 {
		printHelp(out)
		return 1
	}

	cmd := strings.ToLower(args[0])
	switch cmd {
	case "help":
		printHelp(out)
		return 0
	case "version":
		fmt.Fprintf(out, "coahub version %s\n", cliVersion)
		return 0
	case "serve", "reconcile", "backup", "restore":
	default:
		fmt.Fprintf(out, "Unknown command: %s\n\n", args[0])
		printHelp(out)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(out, "Failed to load config: %v\n", err)
		return 1
	}
	cfg.ConfigureLogger(os.Stderr)

	switch cmd {
	case "serve":
		err = serve(cfg)
	case "reconcile":
		err = reconcile(cfg, out)
	case "backup":
		target := ""
		if len(args) > 1 {
			target = args[1]
		}
		err = backup(cfg, target, out)
	case "restore":
		if len(args) < 2 {
			fmt.Fprintln(out, "Error: backup file path required for restore")
			return 1
		}
		force := len(args) > 2 && (args[2] == "-y" || args[2] == "--yes")
		err = restore(cfg, args[1], force, in, out)
	}
	if err != nil {
		logrus.WithError(err).Errorf("%s failed", cmd)
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printHelp(out io.Writer) {
	helpText := `Usage: coahub <command> [options]
Commands:
  help                    Display this help message.
  version                 Show version information.
  serve                   Run the forum API server.
  reconcile               Recount comments and repair drifted commentsCount values.
  backup [file]           Write a backup of the Badger database (default data/backups/backup_<unix>.db).
  restore <file> [-y]     Load a backup into the Badger database.
`
	fmt.Fprintln(out, helpText)
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	return app.Run(ctx)
}

func reconcile(cfg *config.Config, out io.Writer) error {
	ctx := context.Background()
	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	n, err := app.Comments.ReconcileCommentCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Repaired %d post(s)\n", n)
	return nil
}

func badgerOnly(cfg *config.Config) error {
	if cfg.Storage != config.StorageBadger {
		return fmt.Errorf("backup and restore require STORAGE=badger (use mongodump for MongoDB)")
	}
	return nil
}

func backup(cfg *config.Config, target string, out io.Writer) error {
	if err := badgerOnly(cfg); err != nil {
		return err
	}
	if _, err := os.Stat(cfg.BadgerPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No database exists to backup")
		return nil
	}

	if target == "" {
		target = filepath.Join("data", "backups", fmt.Sprintf("backup_%d.db", time.Now().Unix()))
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	store, err := repositories.Open(cfg.BadgerPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if err := store.Backup(f); err != nil {
		return fmt.Errorf("failed to backup database: %w", err)
	}
	fmt.Fprintf(out, "Database backed up successfully to %s\n", target)
	return nil
}

func restore(cfg *config.Config, source string, force bool, in io.Reader, out io.Writer) error {
	if err := badgerOnly(cfg); err != nil {
		return err
	}
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	if _, err := os.Stat(cfg.BadgerPath); err == nil && !force {
		fmt.Fprint(out, "Existing database found. Backup entries will overwrite matching keys. Continue? [y/N] ")
		response, _ := bufio.NewReader(in).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}
	}

	store, err := repositories.Open(cfg.BadgerPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if err := store.Restore(f); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	fmt.Fprintln(out, "Database restored successfully")
	return nil
}
