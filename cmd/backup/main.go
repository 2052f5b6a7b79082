package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"heritagequest/internal/config"
	"heritagequest/internal/database"
	"heritagequest/internal/logger"
	"heritagequest/internal/service"

	"github.com/sirupsen/logrus"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing progress before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()
	log := logger.New("heritagequest-backup", cfg.LogLevel)
	ctx := context.Background()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Entry().WithError(err).Fatal("failed to initialize database")
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if _, err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		log.Entry().WithError(err).Fatal("failed to run migrations")
	}

	backupService := service.NewBackupService(db, log)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, log, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, log, backupService, *importInput, *importClear, *importYes)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	// Ensure directory exists
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Entry().WithError(err).Fatal("failed to create output directory")
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		log.Entry().WithError(err).Fatal("failed to create output file")
	}

	log.Entry().WithField("path", outputPath).Info("exporting database")
	if _, err := backupService.Export(ctx, f); err != nil {
		f.Close()
		log.Entry().WithError(err).Fatal("export failed")
	}
	if err := f.Close(); err != nil {
		log.Entry().WithError(err).Fatal("failed to write output file")
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		log.Entry().WithFields(logrus.Fields{
			"path":    outputPath,
			"size_mb": float64(fileInfo.Size()) / 1024 / 1024,
		}).Info("export complete")
	}
}

func handleImport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, inputPath string, clearData, skipConfirm bool) {
	f, err := os.Open(inputPath)
	if err != nil {
		log.Entry().WithError(err).Fatal("failed to open input file")
	}
	defer f.Close()

	if clearData {
		if !skipConfirm {
			fmt.Print("WARNING: This will delete all player progress. Type 'yes' to confirm: ")
			var confirmation string
			fmt.Scanln(&confirmation)
			if confirmation != "yes" {
				log.Entry().Info("import cancelled")
				return
			}
		}

		if err := backupService.Clear(ctx); err != nil {
			log.Entry().WithError(err).Fatal("failed to clear database")
		}
	}

	log.Entry().WithField("path", inputPath).Info("importing database")
	if _, err := backupService.Import(ctx, f); err != nil {
		log.Entry().WithError(err).Fatal("import failed")
	}

	log.Entry().Info("import complete")
}

func printUsage() {
	fmt.Println("Heritage Quest Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export player progress to JSON file")
	fmt.Println("  backup import [options]    Import player progress from JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing progress before import (WARNING: destructive)")
	fmt.Println("  -yes              Do not ask for confirmation when clearing")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export -output mybackup.json")
	fmt.Println("  backup import -input backup.json")
	fmt.Println("  backup import -input backup.json -clear")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./heritagequest.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  MIGRATIONS_PATH  Directory holding the per-dialect migrations (default: ./migrations)")
}
