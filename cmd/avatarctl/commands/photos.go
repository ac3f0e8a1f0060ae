package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"avatar-server/internal/domain"
)

type photoStorer interface {
	StorePhoto(ctx context.Context, requester string, src domain.PhotoSource) (string, error)
}

// PhotosListAction prints a requester's stored photo keys in selection order.
func PhotosListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	keys, err := appCtx.Components.Resolver.StoredPhotos(ctx, cmd.String("requester"))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("no stored photos")
		return nil
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

// PhotosAddAction stores a local file under the requester and prints its key.
func PhotosAddAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	key, err := addPhoto(ctx, appCtx.Components.Resolver, cmd.String("requester"), cmd.String("file"))
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

func addPhoto(ctx context.Context, store photoStorer, requester, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	return store.StorePhoto(ctx, requester, domain.PhotoSource{Data: data, Filename: filepath.Base(file)})
}
