package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"avatar-server/internal/asset"
	"avatar-server/internal/domain"
	"avatar-server/internal/providers/comfy"
	"avatar-server/internal/workflow"
)

const testAddr = "http://comfy.test:8188"

// fakeBackend scripts history responses; the last one repeats.
type fakeBackend struct {
	mu           sync.Mutex
	uploads      []domain.ResolvedAsset
	uploadErr    error
	queued       []workflow.Graph
	queueErr     error
	history      []*comfy.HistoryEntry
	historyErr   error
	historyCalls int
	onHistory    func(call int)
	views        map[string][]byte
	viewed       []comfy.ImageRef
}

func (f *fakeBackend) Address() string { return testAddr }

func (f *fakeBackend) UploadImage(_ context.Context, a domain.ResolvedAsset, ns domain.Namespace, overwrite bool) (comfy.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return comfy.UploadResult{}, f.uploadErr
	}
	f.uploads = append(f.uploads, a)
	res := comfy.UploadResult{Name: a.Filename, Type: string(ns)}
	if a.Role == domain.RoleSubject {
		res.Subfolder = "avatars"
	}
	return res, nil
}

func (f *fakeBackend) QueuePrompt(_ context.Context, g workflow.Graph) (comfy.QueueResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queueErr != nil {
		return comfy.QueueResult{}, f.queueErr
	}
	f.queued = append(f.queued, g)
	return comfy.QueueResult{PromptID: "job-1", Number: 3}, nil
}

func (f *fakeBackend) History(ctx context.Context, id string) (*comfy.HistoryEntry, error) {
	f.mu.Lock()
	f.historyCalls++
	call := f.historyCalls
	hook := f.onHistory
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.New("history query observed cancellation")
	}
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if len(f.history) == 0 {
		return nil, nil
	}
	idx := call - 1
	if idx >= len(f.history) {
		idx = len(f.history) - 1
	}
	return f.history[idx], nil
}

func (f *fakeBackend) View(_ context.Context, ref comfy.ImageRef) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewed = append(f.viewed, ref)
	data, ok := f.views[ref.Filename]
	if !ok {
		return nil, "", &domain.Error{Kind: domain.KindTransport, Op: "view", Message: "status 404", Addr: testAddr}
	}
	return data, "image/png", nil
}

func pending() *comfy.HistoryEntry { return nil }

func running() *comfy.HistoryEntry {
	return &comfy.HistoryEntry{Status: comfy.Status{StatusStr: "running"}}
}

func completed(outputs map[string]comfy.NodeOutput) *comfy.HistoryEntry {
	return &comfy.HistoryEntry{Status: comfy.Status{StatusStr: "success", Completed: true}, Outputs: outputs}
}

func images(names ...string) comfy.NodeOutput {
	var out comfy.NodeOutput
	for _, n := range names {
		out.Images = append(out.Images, comfy.ImageRef{Filename: n, Type: "output"})
	}
	return out
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

var testNow = func() time.Time { return time.UnixMilli(1700000000000) }

func newTestService(t *testing.T, backend *fakeBackend, poll PollConfig) *Service {
	t.Helper()
	tmpl, err := workflow.LoadTemplate("")
	require.NoError(t, err)
	resolver := asset.NewResolver(asset.Options{
		Static: fstest.MapFS{
			"kimono/k1.png":     {Data: []byte("kimono-bytes")},
			"background/b1.png": {Data: []byte("backdrop-bytes")},
		},
		Now: testNow,
	})
	svc, err := NewService(Options{
		Backend:  backend,
		Resolver: resolver,
		Binder:   workflow.NewBinder(tmpl, workflow.DefaultProfile(), nil),
		Poll:     poll,
		Now:      testNow,
		Seed:     func() (uint32, error) { return 424242, nil },
	})
	require.NoError(t, err)
	svc.poller.sleep = noSleep
	return svc
}

func testRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		RequesterID: "alice",
		Photo:       domain.PhotoSource{DataURI: asset.EncodeDataURI("image/jpeg", []byte("face"))},
		Garment:     domain.StyleAsset{ID: "k1", Kind: domain.StyleGarment, LocalPath: "kimono/k1.png", Description: "a pink sakura kimono"},
		Backdrop:    domain.StyleAsset{ID: "b1", Kind: domain.StyleBackdrop, LocalPath: "background/b1.png", Description: "a cherry tree park path"},
		Hint:        "gentle smile",
	}
}
