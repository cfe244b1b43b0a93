package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitra-ai/chitra-api/internal/domain/credit"
	"github.com/chitra-ai/chitra-api/internal/middleware"
	"github.com/chitra-ai/chitra-api/internal/pkg/imagegen"
)

type fakeLedger struct {
	mu        sync.Mutex
	balances  map[uuid.UUID]int
	history   []credit.Adjustment
	adjustErr error
}

func (l *fakeLedger) Balance(_ context.Context, id uuid.UUID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[id]
	if !ok {
		return 0, credit.ErrUserNotFound
	}
	return b, nil
}

func (l *fakeLedger) Adjust(ctx context.Context, adj credit.Adjustment) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.adjustErr != nil {
		return 0, l.adjustErr
	}
	if l.balances[adj.UserID]+adj.Amount < 0 {
		return 0, credit.ErrInsufficientCredits
	}
	l.balances[adj.UserID] += adj.Amount
	l.history = append(l.history, adj)
	return l.balances[adj.UserID], nil
}

type call struct {
	mode          Mode
	prompt, image string
	width, height int
}

type fakeGenerator struct {
	calls  []call
	err    error
	during func()
}

func (g *fakeGenerator) TextToImage(_ context.Context, prompt string, width, height int) (*imagegen.Result, error) {
	g.calls = append(g.calls, call{mode: ModeTextToImage, prompt: prompt, width: width, height: height})
	if g.during != nil {
		g.during()
	}
	if g.err != nil {
		return nil, g.err
	}
	return &imagegen.Result{URL: "https://cdn.example/t2i.jpg", Cost: 0.01}, nil
}

func (g *fakeGenerator) ImageToImage(_ context.Context, prompt, image string) (*imagegen.Result, error) {
	g.calls = append(g.calls, call{mode: ModeImageToImage, prompt: prompt, image: image})
	if g.err != nil {
		return nil, g.err
	}
	return &imagegen.Result{URL: "https://cdn.example/i2i.jpg", Cost: 0.02}, nil
}

func newTestService(balance int) (*Service, *fakeLedger, *fakeGenerator, uuid.UUID) {
	id := uuid.New()
	ledger := &fakeLedger{balances: map[uuid.UUID]int{id: balance}}
	gen := &fakeGenerator{}
	return NewService(gen, ledger, 20), ledger, gen, id
}

func TestGenerateDebitsOnSuccess(t *testing.T) {
	svc, ledger, gen, id := newTestService(10)

	res, err := svc.Generate(context.Background(), id, &GenerateRequest{Prompt: "a cat", AspectRatio: "1:1", Image: "https://img/cat.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/i2i.jpg", res.URL)
	assert.Equal(t, 5, res.CreditsUsed)
	assert.Equal(t, 5, res.RemainingCredits)

	require.Len(t, ledger.history, 1)
	assert.Equal(t, -5, ledger.history[0].Amount)
	assert.Equal(t, credit.ReasonImageGen, ledger.history[0].Reason)
	require.Len(t, gen.calls, 1)
}

func TestGenerateDebitsAfterClientDisconnect(t *testing.T) {
	svc, ledger, gen, id := newTestService(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen.during = cancel

	res, err := svc.Generate(ctx, id, &GenerateRequest{Prompt: "a cat", AspectRatio: "1:1"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.RemainingCredits)
	assert.Equal(t, 7, ledger.balances[id])
	require.Len(t, ledger.history, 1)
}

func TestGenerateInsufficientMakesNoCall(t *testing.T) {
	svc, ledger, gen, id := newTestService(2)

	_, err := svc.Generate(context.Background(), id, &GenerateRequest{Prompt: "a cat", AspectRatio: "1:1", Image: "https://img/cat.png"})

	var short *ShortfallError
	require.ErrorAs(t, err, &short)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, 5, short.Required)
	assert.Equal(t, 2, short.Available)
	assert.Equal(t, 3, short.Shortfall())
	assert.Empty(t, gen.calls)
	assert.Empty(t, ledger.history)
	assert.Equal(t, 2, ledger.balances[id])
}

func TestGenerateFailureDoesNotCharge(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"invalid image", &imagegen.APIError{Status: 400, Code: imagegen.CodeInvalidImage}, ErrInvalidImage},
		{"other api error", &imagegen.APIError{Status: 400, Code: "parameter_invalid"}, ErrGenerationFailed},
		{"timeout", imagegen.ErrUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ledger, gen, id := newTestService(10)
			gen.err = tt.err

			_, err := svc.Generate(context.Background(), id, &GenerateRequest{Prompt: "x", AspectRatio: "1:1"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, ledger.history)
			assert.Equal(t, 10, ledger.balances[id])
		})
	}
}

func TestGenerateReturnsImageWhenDebitRaces(t *testing.T) {
	svc, ledger, _, id := newTestService(10)
	ledger.adjustErr = credit.ErrInsufficientCredits

	res, err := svc.Generate(context.Background(), id, &GenerateRequest{Prompt: "x", AspectRatio: "1:1"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/t2i.jpg", res.URL)
	assert.Equal(t, 10, res.RemainingCredits)
}

func TestPrepare(t *testing.T) {
	sp, _ := StylePrompt("Anime")

	tests := []struct {
		name    string
		req     GenerateRequest
		want    *job
		wantErr error
	}{
		{
			name: "text to image uses ratio dimensions",
			req:  GenerateRequest{Prompt: " a cat ", Style: "Anime", AspectRatio: "16:9"},
			want: &job{mode: ModeTextToImage, prompt: "a cat", width: 1280, height: 720},
		},
		{
			name: "image to image prefixes style prompt",
			req:  GenerateRequest{Prompt: "a cat", Style: "Anime", AspectRatio: "3:4", Image: "data"},
			want: &job{mode: ModeImageToImage, prompt: "SYSTEM: " + sp + "\nUSER: a cat", image: "data", width: 768, height: 1024},
		},
		{
			name: "style without prompt leaves prompt alone",
			req:  GenerateRequest{Prompt: "a cat", Style: "Cartoon", AspectRatio: "1:1", Image: "data"},
			want: &job{mode: ModeImageToImage, prompt: "a cat", image: "data", width: 1024, height: 1024},
		},
		{
			name: "style None is no style",
			req:  GenerateRequest{Prompt: "a cat", Style: "None", AspectRatio: "1:1", Image: "data"},
			want: &job{mode: ModeImageToImage, prompt: "a cat", image: "data", width: 1024, height: 1024},
		},
		{
			name: "image to image with style needs no user prompt",
			req:  GenerateRequest{Style: "Watercolor", AspectRatio: "1:1", Image: "data"},
		},
		{name: "unknown style", req: GenerateRequest{Prompt: "x", Style: "Ghibli", AspectRatio: "1:1"}, wantErr: ErrInvalidStyle},
		{name: "unknown ratio", req: GenerateRequest{Prompt: "x", AspectRatio: "2:1"}, wantErr: ErrInvalidAspectRatio},
		{name: "empty prompt", req: GenerateRequest{Prompt: "  ", AspectRatio: "1:1"}, wantErr: ErrEmptyPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prepare(&tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.want != nil {
				assert.Equal(t, tt.want, got)
			} else {
				assert.True(t, strings.HasPrefix(got.prompt, "SYSTEM: "))
			}
		})
	}
}

func TestGenerateHandler(t *testing.T) {
	svc, _, _, id := newTestService(4)
	h := NewHandler(svc)

	do := func(body interface{}) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(raw))
		req = req.WithContext(middleware.WithUserID(req.Context(), id))
		w := httptest.NewRecorder()
		h.Generate(w, req)
		return w
	}

	w := do(GenerateRequest{Prompt: "a cat", AspectRatio: "1:1"})
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Data GenerateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.Equal(t, 1, ok.Data.RemainingCredits)

	w = do(GenerateRequest{Prompt: "a cat", AspectRatio: "1:1"})
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	var short struct {
		Data ShortfallResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &short))
	assert.Equal(t, ShortfallResponse{Required: 3, Available: 1, Shortfall: 2}, short.Data)

	w = do(map[string]string{"prompt": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(GenerateRequest{Prompt: "x", Style: "Ghibli", AspectRatio: "1:1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateHandlerProviderUnavailable(t *testing.T) {
	svc, _, gen, id := newTestService(10)
	gen.err = errors.Join(imagegen.ErrUnavailable, context.DeadlineExceeded)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"x","aspectRatio":"1:1"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), id))
	w := httptest.NewRecorder()
	NewHandler(svc).Generate(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestConfigHandler(t *testing.T) {
	svc, _, _, _ := newTestService(0)
	w := httptest.NewRecorder()
	NewHandler(svc).Config(w, httptest.NewRequest(http.MethodGet, "/config", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Data ConfigResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out.Data.ImageStyles, 11)
	assert.Len(t, out.Data.AspectRatios, 5)
	assert.Equal(t, 20, out.Data.AllowedAds)
	assert.Equal(t, CostResponse{TextToImage: 3, ImageToImage: 5}, out.Data.Cost)
}
