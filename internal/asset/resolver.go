package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
)

const defaultMaxRemoteBytes = 20 << 20

// PhotoStore is the requester photo bucket.
type PhotoStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Options configures a Resolver.
type Options struct {
	HTTPClient     *http.Client
	Static         fs.FS
	Photos         PhotoStore
	Logger         *infra.Logger
	Now            func() time.Time
	MaxRemoteBytes int64
}

// Resolver turns the ways a caller can hand us an image into bytes ready for
// upload. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	httpClient     *http.Client
	static         fs.FS
	photos         PhotoStore
	logger         *infra.Logger
	now            func() time.Time
	maxRemoteBytes int64
}

// NewResolver builds a Resolver. Static and Photos may be nil; requests that
// need them then fail with an asset resolution error.
func NewResolver(opts Options) *Resolver {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = infra.NewHTTPClient(30 * time.Second)
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxBytes := opts.MaxRemoteBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxRemoteBytes
	}
	return &Resolver{
		httpClient:     httpClient,
		static:         opts.Static,
		photos:         opts.Photos,
		logger:         logger,
		now:            now,
		maxRemoteBytes: maxBytes,
	}
}

// ResolvePhoto resolves the subject photo. An empty source selects the
// requester's first stored photo.
func (r *Resolver) ResolvePhoto(ctx context.Context, requester string, src domain.PhotoSource) (domain.ResolvedAsset, error) {
	switch {
	case src.IsEmpty():
		key, err := r.FirstStoredPhoto(ctx, requester)
		if err != nil {
			return domain.ResolvedAsset{}, err
		}
		r.logger.Info().Str("requester", requester).Str("key", key).Msg("auto-selected stored photo")
		return r.fromStore(ctx, key)
	case len(src.Data) > 0 || src.Filename != "":
		return r.fromUpload(requester, src)
	case strings.TrimSpace(src.URL) != "":
		return r.fromRemote(ctx, requester, strings.TrimSpace(src.URL))
	case strings.TrimSpace(src.DataURI) != "":
		return r.fromDataURI(requester, src.DataURI)
	default:
		return r.fromStore(ctx, strings.TrimSpace(src.StoredKey))
	}
}

// StoredPhotos lists a requester's photos in listing order.
func (r *Resolver) StoredPhotos(ctx context.Context, requester string) ([]string, error) {
	if r.photos == nil {
		return nil, resolveErr(domain.SourceStored, "no photo store configured", nil)
	}
	keys, err := r.photos.List(ctx, requester+"_")
	if err != nil {
		return nil, resolveErr(domain.SourceStored, "list stored photos", err)
	}
	return keys, nil
}

// FirstStoredPhoto picks the first photo in listing order. The choice is
// arbitrary; listing order is the only ordering the store offers.
func (r *Resolver) FirstStoredPhoto(ctx context.Context, requester string) (string, error) {
	keys, err := r.StoredPhotos(ctx, requester)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", resolveErr(domain.SourceStored, fmt.Sprintf("no photo supplied and none stored for %q", requester), nil)
	}
	return keys[0], nil
}

// StorePhoto saves an uploaded photo as `<requester>_<unixms>.<ext>` so later
// requests can pick it by key or by auto-selection. Only content that sniffs
// as an image is accepted.
func (r *Resolver) StorePhoto(ctx context.Context, requester string, src domain.PhotoSource) (string, error) {
	requester = strings.TrimSpace(requester)
	if requester == "" || strings.ContainsAny(requester, `/\`) {
		return "", domain.Invalid("requester id is required and must not contain path separators")
	}
	if len(src.Data) == 0 {
		return "", domain.Invalid("uploaded photo is empty")
	}
	sniffed := normalizeType(http.DetectContentType(src.Data))
	if !isImage(sniffed) {
		return "", domain.Invalid("uploaded photo is not an image (%s)", sniffed)
	}
	if r.photos == nil {
		return "", resolveErr(domain.SourceStored, "no photo store configured", nil)
	}
	key := fmt.Sprintf("%s_%d.%s", requester, r.now().UnixMilli(), ExtForMIME(sniffed))
	stored, err := r.photos.Write(ctx, key, src.Data)
	if err != nil {
		return "", resolveErr(domain.SourceStored, fmt.Sprintf("store photo %q", key), err)
	}
	r.logger.Info().Str("requester", requester).Str("key", stored).Int("bytes", len(src.Data)).Msg("photo stored")
	return stored, nil
}

// ResolveStyle reads a catalogued garment or backdrop from the static store.
func (r *Resolver) ResolveStyle(ctx context.Context, role domain.AssetRole, style domain.StyleAsset) (domain.ResolvedAsset, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResolvedAsset{}, err
	}
	if r.static == nil {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceLocal, "no static asset store configured", nil)
	}
	p := strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(style.LocalPath, `\`, "/")), "/")
	if p == "" || !fs.ValidPath(p) {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceLocal, fmt.Sprintf("invalid asset path %q for %s %s", style.LocalPath, style.Kind, style.ID), nil)
	}
	data, err := fs.ReadFile(r.static, p)
	if err != nil {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceLocal, fmt.Sprintf("read %s %s", style.Kind, style.ID), err)
	}
	if len(data) == 0 {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceLocal, fmt.Sprintf("%s %s is empty", style.Kind, style.ID), nil)
	}
	name := path.Base(p)
	return domain.ResolvedAsset{
		Role:     role,
		Data:     data,
		MIMEType: DetectMIME("", name, data),
		Filename: name,
	}, nil
}

func (r *Resolver) fromUpload(requester string, src domain.PhotoSource) (domain.ResolvedAsset, error) {
	if len(src.Data) == 0 {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceUpload, "uploaded photo is empty", nil)
	}
	mimeType := DetectMIME(src.MIMEType, src.Filename, src.Data)
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(src.Filename), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("%s_upload_%d.%s", requester, r.now().UnixMilli(), ExtForMIME(mimeType))
	}
	return domain.ResolvedAsset{Role: domain.RoleSubject, Data: src.Data, MIMEType: mimeType, Filename: name}, nil
}

func (r *Resolver) fromDataURI(requester, uri string) (domain.ResolvedAsset, error) {
	mimeType, data, err := DecodeDataURI(uri)
	if err != nil {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceEmbedded, "decode camera capture", err)
	}
	return domain.ResolvedAsset{
		Role:     domain.RoleSubject,
		Data:     data,
		MIMEType: mimeType,
		Filename: fmt.Sprintf("%s_cam_%d.%s", requester, r.now().UnixMilli(), ExtForMIME(mimeType)),
	}, nil
}

func (r *Resolver) fromRemote(ctx context.Context, requester, raw string) (domain.ResolvedAsset, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceRemote, fmt.Sprintf("photo url %q must be absolute http(s)", raw), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceRemote, "build photo request", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceRemote, "fetch photo", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceRemote, fmt.Sprintf("fetch photo: status %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxRemoteBytes+1))
	if err != nil {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceRemote, "read photo", err)
	}
	if int64(len(data)) > r.maxRemoteBytes {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceRemote, fmt.Sprintf("photo exceeds %d bytes", r.maxRemoteBytes), nil)
	}
	if len(data) == 0 {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceRemote, "photo response is empty", nil)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("%s_url_%d.png", requester, r.now().UnixMilli())
	}
	mimeType := DetectMIME(resp.Header.Get("Content-Type"), name, data)
	r.logger.Debug().
		Str("host", u.Host).
		Int("bytes", len(data)).
		Dur("latency", time.Since(start)).
		Msg("remote photo fetched")
	return domain.ResolvedAsset{Role: domain.RoleSubject, Data: data, MIMEType: mimeType, Filename: name}, nil
}

func (r *Resolver) fromStore(ctx context.Context, key string) (domain.ResolvedAsset, error) {
	if r.photos == nil {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceStored, "no photo store configured", nil)
	}
	data, err := r.photos.Read(ctx, key)
	if err != nil {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceStored, fmt.Sprintf("read stored photo %q", key), err)
	}
	if len(data) == 0 {
		return domain.ResolvedAsset{}, resolveErr(domain.SourceStored, fmt.Sprintf("stored photo %q is empty", key), nil)
	}
	name := path.Base(key)
	return domain.ResolvedAsset{
		Role:     domain.RoleSubject,
		Data:     data,
		MIMEType: DetectMIME("", name, data),
		Filename: name,
	}, nil
}

func resolveErr(src domain.AssetSource, msg string, err error) error {
	kind := domain.KindAssetResolution
	if errors.Is(err, context.Canceled) {
		kind = domain.KindCanceled
	}
	return &domain.Error{Kind: kind, Op: "resolve asset", Source: src, Message: msg, Err: err}
}
