package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/gmx/internal/services"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file from the template when missing, then initializes the
// database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if err := r.loadConfig(configPath); err != nil {
			r.logger.Warn("failed to load created config, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready: %s\n", r.config.Database.Path)
}

// SetupSession stores a browser "Copy as cURL" capture for later requests.
//
// The capture is validated before it is written; with --check it is also used to list playlists.
func (r *Runner) SetupSession(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	outputPath := cmd.String("output")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	raw := []byte(curlCmd)
	if curlFile != "" {
		data, err := os.ReadFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to read cURL file: %w", err)
		}
		raw = data
		r.logger.Info("read cURL from file", "file", curlFile)
	}

	capture, err := shared.ParseCurlCommand(raw)
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}
	if capture.Cookie == "" {
		return fmt.Errorf("%w: capture carries no cookie; copy an authenticated request", shared.ErrMissingCredentials)
	}
	r.logger.Debug("parsed capture", "url", capture.URL, "headers", len(capture.Headers), "cookies", len(capture.Cookies()))

	if outputPath == "" {
		outputPath = r.config.Service.CurlPath
	}
	if outputPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		outputPath = filepath.Join(homeDir, ".gmx", "session.curl")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, raw, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	r.logger.Info("session saved", "path", outputPath)

	r.writePlain("✓ Session captured (%d cookie(s))\n", len(capture.Cookies()))
	r.writePlain("Saved to: %s\n", outputPath)

	if cmd.Bool("check") {
		r.session = services.NewCookieSession(capture)
		r.dispatcher = nil

		d, err := r.Dispatcher()
		if err != nil {
			return err
		}
		playlists, err := d.ListPlaylists(ctx)
		if err != nil {
			return fmt.Errorf("session check failed: %w", err)
		}
		r.writePlain("✓ Session works: %d playlist(s) visible\n", len(playlists))
	}

	if outputPath != r.config.Service.CurlPath {
		r.writePlainln("Next steps:")
		r.writePlain("1. Update %s with: service.curl_path = \"%s\"\n", r.configPath, outputPath)
		r.writePlain("2. Run 'gmx playlist list' to test the session\n")
	}
	return nil
}
