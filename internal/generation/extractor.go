package generation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"avatar-server/internal/asset"
	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
	"avatar-server/internal/providers/comfy"
)

// ArtifactFetcher downloads one backend artifact.
type ArtifactFetcher interface {
	View(ctx context.Context, ref comfy.ImageRef) ([]byte, string, error)
}

// Extractor picks the final image among a job's outputs and inlines it.
type Extractor struct {
	fetcher    ArtifactFetcher
	preference []string
	logger     *infra.Logger
}

// NewExtractor uses preference as the ordered list of output nodes to try.
func NewExtractor(fetcher ArtifactFetcher, preference []string, logger *infra.Logger) *Extractor {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Extractor{fetcher: fetcher, preference: append([]string(nil), preference...), logger: logger}
}

// Select returns the first image of the first preferred node that has any.
func (e *Extractor) Select(job *domain.Job) (domain.OutputArtifact, error) {
	for _, node := range e.preference {
		if arts := job.Outputs[node]; len(arts) > 0 {
			return arts[0], nil
		}
	}
	produced := make([]string, 0, len(job.Outputs))
	for node := range job.Outputs {
		produced = append(produced, node)
	}
	sort.Strings(produced)
	return domain.OutputArtifact{}, &domain.Error{
		Kind: domain.KindMissingOutput,
		Op:   "extract result",
		Message: fmt.Sprintf("none of the output nodes [%s] produced an image (produced: [%s])",
			strings.Join(e.preference, ", "), strings.Join(produced, ", ")),
	}
}

// Extract fetches the selected artifact and encodes it as a data URI.
func (e *Extractor) Extract(ctx context.Context, job *domain.Job) (domain.Result, error) {
	art, err := e.Select(job)
	if err != nil {
		return domain.Result{}, err
	}
	data, _, err := e.fetcher.View(ctx, comfy.ImageRef{
		Filename:  art.Filename,
		Subfolder: art.Subfolder,
		Type:      string(art.Namespace),
	})
	if err != nil {
		return domain.Result{}, err
	}
	art.Data = data
	mimeType := asset.MIMEForOutput(art.Filename)
	e.logger.Debug().
		Str("prompt_id", job.ID).
		Str("node", art.NodeKey).
		Str("filename", art.Filename).
		Int("bytes", len(data)).
		Msg("output fetched")
	return domain.Result{
		JobID:      job.ID,
		OutputNode: art.NodeKey,
		Filename:   art.Filename,
		MIMEType:   mimeType,
		DataURI:    asset.EncodeDataURI(mimeType, art.Data),
	}, nil
}
