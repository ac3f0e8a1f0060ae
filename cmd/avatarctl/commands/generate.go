package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"avatar-server/internal/asset"
	"avatar-server/internal/domain"
)

// GenerateAction runs one generation and writes the image to --out.
func GenerateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	components := appCtx.Components
	garment, err := components.Catalog.Lookup(ctx, domain.StyleGarment, cmd.String("garment"))
	if err != nil {
		return err
	}
	backdrop, err := components.Catalog.Lookup(ctx, domain.StyleBackdrop, cmd.String("backdrop"))
	if err != nil {
		return err
	}
	photo, err := photoFromFlags(cmd.String("photo"), cmd.String("photo-url"), cmd.String("stored-key"))
	if err != nil {
		return err
	}

	result, err := components.Service.Generate(ctx, domain.GenerationRequest{
		RequesterID: strings.TrimSpace(cmd.String("requester")),
		Photo:       photo,
		Garment:     garment,
		Backdrop:    backdrop,
		Hint:        cmd.String("hint"),
	})
	if err != nil {
		return err
	}

	path, err := writeResult(cmd.String("out"), result)
	if err != nil {
		return err
	}
	fmt.Printf("job:    %s\n", result.JobID)
	fmt.Printf("prompt: %s\n", result.Prompt)
	fmt.Printf("image:  %s\n", path)
	return nil
}

// photoFromFlags maps the mutually exclusive photo flags onto a source.
// No flag at all leaves the source empty so a stored photo is picked.
func photoFromFlags(file, url, storedKey string) (domain.PhotoSource, error) {
	var src domain.PhotoSource
	if file = strings.TrimSpace(file); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return src, fmt.Errorf("read photo: %w", err)
		}
		src.Data = data
		src.Filename = filepath.Base(file)
	}
	src.URL = strings.TrimSpace(url)
	src.StoredKey = strings.TrimSpace(storedKey)
	return src, nil
}

// writeResult decodes the result image into out. A directory or an empty out
// gets the backend filename.
func writeResult(out string, result domain.Result) (string, error) {
	_, data, err := asset.DecodeDataURI(result.DataURI)
	if err != nil {
		return "", fmt.Errorf("decode result image: %w", err)
	}
	if out == "" {
		out = "."
	}
	if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
		out = filepath.Join(out, filepath.Base(result.Filename))
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write result image: %w", err)
	}
	return out, nil
}
