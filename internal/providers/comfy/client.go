package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
	"avatar-server/internal/workflow"
)

const maxErrorBody = 4 << 10

// Options configures the backend client.
type Options struct {
	BaseURL        string
	ClientID       string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to a ComfyUI-compatible workflow server.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client. A client identifier is generated once per
// process unless one is supplied.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = infra.NewHTTPClient(opts.RequestTimeout)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = infra.DefaultBackendAddress
	}
	clientID := strings.TrimSpace(opts.ClientID)
	if clientID == "" {
		clientID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		baseURL:    baseURL,
		clientID:   clientID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ClientID returns the identifier sent with every submission.
func (c *Client) ClientID() string { return c.clientID }

// Address returns the backend base URL.
func (c *Client) Address() string { return c.baseURL }

// UploadImage stores an input image in the backend's namespace.
func (c *Client) UploadImage(ctx context.Context, asset domain.ResolvedAsset, ns domain.Namespace, overwrite bool) (UploadResult, error) {
	const op = "upload image"
	if len(asset.Data) == 0 {
		return UploadResult{}, &domain.Error{Kind: domain.KindAssetResolution, Op: op, Message: fmt.Sprintf("%s image is empty", asset.Role)}
	}
	if ns == "" {
		ns = domain.NamespaceInput
	}
	filename := asset.Filename
	if filename == "" {
		filename = string(asset.Role) + ".png"
	}
	mimeType := asset.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(filename)))
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := part.Write(asset.Data); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.WriteField("type", string(ns)); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.WriteField("overwrite", strconv.FormatBool(overwrite)); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/image", &body)
	if err != nil {
		return UploadResult{}, c.transportErr(op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, c.transportErr(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UploadResult{}, c.statusErr(op, resp)
	}
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResult{}, c.transportErr(op, fmt.Errorf("decode response: %w", err))
	}
	if out.Name == "" {
		return UploadResult{}, c.transportErr(op, errors.New("response missing name"))
	}
	c.logger.Debug().
		Str("role", string(asset.Role)).
		Str("name", out.Name).
		Str("subfolder", out.Subfolder).
		Dur("latency", time.Since(start)).
		Msg("backend upload complete")
	return out, nil
}

// QueuePrompt submits a bound workflow. Node-level validation failures are
// reported as remote validation errors naming the first offending node.
func (c *Client) QueuePrompt(ctx context.Context, graph workflow.Graph) (QueueResult, error) {
	const op = "queue prompt"
	payload, err := json.Marshal(queueRequest{Prompt: graph, ClientID: c.clientID})
	if err != nil {
		return QueueResult{}, fmt.Errorf("%s: encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(payload))
	if err != nil {
		return QueueResult{}, c.transportErr(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QueueResult{}, c.transportErr(op, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return QueueResult{}, c.transportErr(op, fmt.Errorf("read response: %w", err))
	}

	var decoded queueResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if decodeErr == nil {
		if key, nodeErr, ok, _ := firstNodeError(decoded.NodeErrors); ok {
			return QueueResult{}, &domain.Error{
				Kind:    domain.KindRemoteValidation,
				Op:      op,
				Node:    key,
				Message: fmt.Sprintf("node %s (%s): %s", key, nodeErr.ClassType, nodeErr.summary()),
				Addr:    c.baseURL,
			}
		}
		if resp.StatusCode == http.StatusBadRequest && decoded.Error != nil {
			msg := strings.TrimSpace(decoded.Error.Message)
			if d := strings.TrimSpace(decoded.Error.Details); d != "" {
				msg += ": " + d
			}
			return QueueResult{}, &domain.Error{Kind: domain.KindRemoteValidation, Op: op, Message: msg, Addr: c.baseURL}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return QueueResult{}, &domain.Error{
			Kind:    domain.KindTransport,
			Op:      op,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(raw))),
			Addr:    c.baseURL,
		}
	}
	if decodeErr != nil {
		return QueueResult{}, c.transportErr(op, fmt.Errorf("decode response: %w", decodeErr))
	}
	if decoded.PromptID == "" {
		return QueueResult{}, c.transportErr(op, errors.New("response missing prompt_id"))
	}
	c.logger.Info().
		Str("prompt_id", decoded.PromptID).
		Int("number", decoded.Number).
		Dur("latency", time.Since(start)).
		Msg("workflow queued")
	return QueueResult{PromptID: decoded.PromptID, Number: decoded.Number}, nil
}

// History fetches the record for promptID. A nil entry means the backend has
// no record yet.
func (c *Client) History(ctx context.Context, promptID string) (*HistoryEntry, error) {
	const op = "history"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, c.transportErr(op, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportErr(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusErr(op, resp)
	}
	var entries map[string]HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, c.transportErr(op, fmt.Errorf("decode response: %w", err))
	}
	entry, ok := entries[promptID]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// View downloads one artifact and returns its bytes and content type.
func (c *Client) View(ctx context.Context, ref ImageRef) ([]byte, string, error) {
	const op = "view"
	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	typ := ref.Type
	if typ == "" {
		typ = string(domain.NamespaceOutput)
	}
	q.Set("type", typ)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/view?"+q.Encode(), nil)
	if err != nil {
		return nil, "", c.transportErr(op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", c.transportErr(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", c.statusErr(op, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", c.transportErr(op, fmt.Errorf("read body: %w", err))
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Ping checks that the backend answers its system stats endpoint.
func (c *Client) Ping(ctx context.Context) error {
	const op = "ping"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/system_stats", nil)
	if err != nil {
		return c.transportErr(op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportErr(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusErr(op, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) transportErr(op string, err error) error {
	kind := domain.KindTransport
	if errors.Is(err, context.Canceled) {
		kind = domain.KindCanceled
	}
	return &domain.Error{Kind: kind, Op: op, Err: err, Addr: c.baseURL}
}

func (c *Client) statusErr(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.Error{
		Kind:    domain.KindTransport,
		Op:      op,
		Message: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body))),
		Addr:    c.baseURL,
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
