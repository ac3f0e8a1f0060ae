package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"avatar-server/internal/app"
	"avatar-server/internal/infra"
)

// AppContext holds what every subcommand needs.
type AppContext struct {
	Config     *infra.Config
	Logger     *infra.Logger
	Components *app.Components
}

// NewAppContext loads envFile (missing files are ignored), reads the config
// and wires the generation pipeline.
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, logger, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}
	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return &AppContext{Config: cfg, Logger: logger, Components: components}, nil
}

// Close releases the pipeline resources.
func (ac *AppContext) Close() {
	if ac.Components != nil {
		ac.Components.Close()
	}
}

func loadConfig(envFile string) (*infra.Config, *infra.Logger, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	// stdout is reserved for command output
	logger := infra.NewLogger(cfg.AppEnv).Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return cfg, &logger, nil
}
