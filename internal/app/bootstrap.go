package app

import (
	"context"
	"fmt"
	"os"

	"avatar-server/internal/adapter/repo"
	"avatar-server/internal/asset"
	"avatar-server/internal/catalog"
	"avatar-server/internal/generation"
	"avatar-server/internal/infra"
	"avatar-server/internal/providers/comfy"
	"avatar-server/internal/providers/prompt"
	"avatar-server/internal/storage"
	"avatar-server/internal/workflow"
)

// Components is the wired object graph shared by the API server and the CLI.
type Components struct {
	Service  *generation.Service
	Catalog  *catalog.Catalog
	Resolver *asset.Resolver
	Backend  *comfy.Client
	Photos   *storage.FileStore
	Styles   *repo.StyleRepositoryPG

	closers []func()
}

// Close releases whatever Build opened.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build wires every component from cfg. Callers must Close the result.
func Build(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Components, error) {
	if logger == nil {
		logger = infra.NopLogger()
	}
	c := &Components{}

	if cfg.BackendAddressInvalid != "" {
		logger.Warn().
			Str("value", cfg.BackendAddressInvalid).
			Str("using", cfg.BackendAddress).
			Msg("COMFYUI_SERVER_ADDRESS is malformed, falling back to default")
	}

	src, err := c.catalogSource(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Catalog = catalog.New(src, logger)

	photos, err := storage.NewFileStore(cfg.PhotoStoreDir)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Photos = photos
	c.Resolver = asset.NewResolver(asset.Options{
		HTTPClient:     infra.NewHTTPClient(cfg.BackendTimeout),
		Static:         os.DirFS(cfg.StaticAssetDir),
		Photos:         photos,
		Logger:         logger,
		MaxRemoteBytes: cfg.MaxUploadBytes,
	})

	tmpl, err := workflow.LoadTemplate(cfg.WorkflowTemplatePath)
	if err != nil {
		c.Close()
		return nil, err
	}
	logger.Debug().Strs("nodes", tmpl.Keys()).Msg("workflow template loaded")
	binder := workflow.NewBinder(tmpl, workflow.DefaultProfile(), logger)
	// gaps are logged by the binder and are not fatal
	binder.Validate()

	c.Backend = comfy.NewClient(comfy.Options{
		BaseURL:        cfg.BackendAddress,
		HTTPClient:     infra.NewHTTPClient(cfg.BackendTimeout),
		Logger:         logger,
		RequestTimeout: cfg.BackendTimeout,
	})

	svc, err := generation.NewService(generation.Options{
		Backend:     c.Backend,
		Resolver:    c.Resolver,
		Synthesizer: newSynthesizer(cfg, logger),
		Binder:      binder,
		Poll: generation.PollConfig{
			Interval:    cfg.PollInterval,
			MaxAttempts: cfg.PollMaxAttempts,
			Grace:       cfg.PollGraceAttempts,
		},
		Logger: logger,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Service = svc

	logger.Info().
		Str("backend", c.Backend.Address()).
		Str("client_id", c.Backend.ClientID()).
		Str("catalog", cfg.CatalogSource).
		Str("prompt_provider", cfg.PromptProvider).
		Str("poll_budget", svc.PollBudget()).
		Msg("generation pipeline ready")
	return c, nil
}

func (c *Components) catalogSource(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (catalog.Source, error) {
	switch cfg.CatalogSource {
	case "directory":
		return catalog.NewDirectory(os.DirFS(cfg.StaticAssetDir), cfg.CatalogCacheTTL, logger), nil
	case "postgres":
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, pool.Close)
		c.Styles = repo.NewStyleRepository(pool)
		return c.Styles, nil
	case "", "static":
		return catalog.NewStatic(), nil
	default:
		return nil, fmt.Errorf("unsupported catalog source %q", cfg.CatalogSource)
	}
}

func newSynthesizer(cfg *infra.Config, logger *infra.Logger) prompt.Synthesizer {
	static := prompt.NewStaticSynthesizer()
	if cfg.PromptProvider != "openai" {
		return static
	}
	synth, err := prompt.NewOpenAISynthesizer(prompt.OpenAIOptions{
		APIKey:   cfg.OpenAIAPIKey,
		Model:    cfg.OpenAIModel,
		BaseURL:  cfg.OpenAIBaseURL,
		Fallback: static,
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("openai prompt synthesis fell back to static")
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("openai synthesizer unavailable, using static prompts")
		return static
	}
	logger.Info().Str("model", synth.Model()).Msg("openai prompt synthesis enabled")
	return synth
}
