package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
	"avatar-server/internal/providers/comfy"
	"avatar-server/internal/providers/prompt"
	"avatar-server/internal/workflow"
)

// Backend is the subset of the workflow server a generation needs.
type Backend interface {
	HistoryReader
	ArtifactFetcher
	UploadImage(ctx context.Context, asset domain.ResolvedAsset, ns domain.Namespace, overwrite bool) (comfy.UploadResult, error)
	QueuePrompt(ctx context.Context, graph workflow.Graph) (comfy.QueueResult, error)
	Address() string
}

// AssetResolver produces the three input images of a request.
type AssetResolver interface {
	ResolvePhoto(ctx context.Context, requester string, src domain.PhotoSource) (domain.ResolvedAsset, error)
	ResolveStyle(ctx context.Context, role domain.AssetRole, style domain.StyleAsset) (domain.ResolvedAsset, error)
}

type Options struct {
	Backend     Backend
	Resolver    AssetResolver
	Synthesizer prompt.Synthesizer
	Binder      *workflow.Binder
	Poll        PollConfig
	Logger      *infra.Logger
	Now         func() time.Time
	Seed        func() (uint32, error)
}

// Service runs one generation end to end. It is safe for concurrent use; the
// only state shared between requests is read-only.
type Service struct {
	backend   Backend
	resolver  AssetResolver
	synth     prompt.Synthesizer
	binder    *workflow.Binder
	poller    *Poller
	extractor *Extractor
	logger    *infra.Logger
	now       func() time.Time
	seed      func() (uint32, error)
}

func NewService(opts Options) (*Service, error) {
	if opts.Backend == nil {
		return nil, errors.New("generation: backend is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("generation: asset resolver is required")
	}
	if opts.Binder == nil {
		return nil, errors.New("generation: binder is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	synth := opts.Synthesizer
	if synth == nil {
		synth = prompt.NewStaticSynthesizer()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	seed := opts.Seed
	if seed == nil {
		seed = workflow.NewSeed
	}
	return &Service{
		backend:   opts.Backend,
		resolver:  opts.Resolver,
		synth:     synth,
		binder:    opts.Binder,
		poller:    NewPoller(opts.Backend, opts.Poll, logger),
		extractor: NewExtractor(opts.Backend, opts.Binder.Profile().OutputNodes, logger),
		logger:    logger,
		now:       now,
		seed:      seed,
	}, nil
}

// Generate stages the inputs, submits the bound workflow, waits for it and
// returns the final image. Every failure is terminal; nothing is retried and
// uploaded inputs are left on the backend.
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Result, error) {
	if err := req.Validate(); err != nil {
		return domain.Result{}, err
	}
	start := s.now()
	log := s.logger.With().
		Str("requester", req.RequesterID).
		Str("garment", req.Garment.ID).
		Str("backdrop", req.Backdrop.ID).
		Logger()

	assets, err := s.resolveAssets(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("asset resolution failed")
		return domain.Result{}, err
	}

	names := make(map[domain.AssetRole]string, len(assets))
	for _, role := range domain.UploadOrder {
		up, err := s.backend.UploadImage(ctx, assets[role], domain.NamespaceInput, true)
		if err != nil {
			log.Error().Err(err).Str("role", string(role)).Msg("upload failed")
			return domain.Result{}, err
		}
		names[role] = up.WorkflowName()
	}

	synthesized, err := s.synth.Synthesize(ctx, prompt.Input{
		Garment:  req.Garment.Description,
		Backdrop: req.Backdrop.Description,
		Hint:     req.Hint,
	})
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) {
			err = &domain.Error{Kind: domain.KindPrompt, Op: "synthesize prompt", Err: err}
		}
		log.Error().Err(err).Msg("prompt synthesis failed")
		return domain.Result{}, err
	}
	if synthesized.FallbackReason != "" {
		log.Warn().Str("reason", synthesized.FallbackReason).Msg("prompt synthesized by fallback")
	}

	seed, err := s.seed()
	if err != nil {
		return domain.Result{}, &domain.Error{Kind: domain.KindInternal, Op: "draw seed", Err: err}
	}
	graph, gaps := s.binder.Bind(workflow.Values{
		SubjectImage:   names[domain.RoleSubject],
		GarmentImage:   names[domain.RoleGarment],
		BackdropImage:  names[domain.RoleBackdrop],
		Prompt:         synthesized.Prompt,
		Seed:           seed,
		FilenamePrefix: workflow.OutputPrefix(req.RequesterID, s.now()),
	})
	if len(gaps) > 0 {
		log.Warn().Int("skipped", len(gaps)).Msg("workflow bound with skipped roles")
	}

	queued, err := s.backend.QueuePrompt(ctx, graph)
	if err != nil {
		log.Error().Err(err).Msg("workflow submission failed")
		return domain.Result{}, err
	}
	job := &domain.Job{ID: queued.PromptID, Number: queued.Number, Status: domain.JobStatusSubmitted}
	log = log.With().Str("prompt_id", job.ID).Logger()
	log.Info().Int("queue_number", job.Number).Uint32("seed", seed).Msg("workflow submitted")

	if err := s.poller.Wait(ctx, job); err != nil {
		log.Error().Err(err).Str("status", string(job.Status)).Int("attempts", job.Attempts).Msg("job did not complete")
		return domain.Result{}, err
	}

	result, err := s.extractor.Extract(ctx, job)
	if err != nil {
		log.Error().Err(err).Msg("result extraction failed")
		return domain.Result{}, err
	}
	result.Prompt = synthesized.Prompt
	log.Info().
		Str("output_node", result.OutputNode).
		Str("filename", result.Filename).
		Dur("elapsed", s.now().Sub(start)).
		Msg("generation completed")
	return result, nil
}

func (s *Service) resolveAssets(ctx context.Context, req domain.GenerationRequest) (map[domain.AssetRole]domain.ResolvedAsset, error) {
	subject, err := s.resolver.ResolvePhoto(ctx, req.RequesterID, req.Photo)
	if err != nil {
		return nil, err
	}
	garment, err := s.resolver.ResolveStyle(ctx, domain.RoleGarment, req.Garment)
	if err != nil {
		return nil, err
	}
	backdrop, err := s.resolver.ResolveStyle(ctx, domain.RoleBackdrop, req.Backdrop)
	if err != nil {
		return nil, err
	}
	return map[domain.AssetRole]domain.ResolvedAsset{
		domain.RoleSubject:  subject,
		domain.RoleGarment:  garment,
		domain.RoleBackdrop: backdrop,
	}, nil
}

// PollBudget describes the configured wait bound, for startup logs.
func (s *Service) PollBudget() string {
	cfg := s.poller.Config()
	return fmt.Sprintf("%d x %s (+%d grace)", cfg.MaxAttempts, cfg.Interval, cfg.Grace)
}
