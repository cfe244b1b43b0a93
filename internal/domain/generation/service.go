package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/domain/credit"
	"github.com/chitra-ai/chitra-api/internal/pkg/imagegen"
	"github.com/chitra-ai/chitra-api/internal/pkg/metrics"
)

const debitTimeout = 10 * time.Second

// Generator is the image provider.
type Generator interface {
	TextToImage(ctx context.Context, prompt string, width, height int) (*imagegen.Result, error)
	ImageToImage(ctx context.Context, prompt, image string) (*imagegen.Result, error)
}

// Ledger reads balances and debits generations.
type Ledger interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	Adjust(ctx context.Context, adj credit.Adjustment) (int, error)
}

type Service struct {
	generator  Generator
	ledger     Ledger
	allowedAds int
}

func NewService(generator Generator, ledger Ledger, allowedAds int) *Service {
	return &Service{generator: generator, ledger: ledger, allowedAds: allowedAds}
}

// Config returns the public generation settings.
func (s *Service) Config() ConfigResponse {
	return ConfigResponse{
		ImageStyles:  Styles,
		AspectRatios: AspectRatios,
		AllowedAds:   s.allowedAds,
		Cost:         CostResponse{TextToImage: TextToImageCost, ImageToImage: ImageToImageCost},
	}
}

// job is a validated request.
type job struct {
	mode   Mode
	prompt string
	image  string
	width  int
	height int
}

func prepare(req *GenerateRequest) (*job, error) {
	j := &job{mode: ModeTextToImage, prompt: strings.TrimSpace(req.Prompt), image: req.Image}
	if req.Image != "" {
		j.mode = ModeImageToImage
	}

	style := strings.TrimSpace(req.Style)
	if style == StyleNone {
		style = ""
	}
	if style != "" && !ValidStyle(style) {
		return nil, ErrInvalidStyle
	}

	if j.mode == ModeImageToImage && style != "" {
		if sp, ok := StylePrompt(style); ok {
			j.prompt = fmt.Sprintf("SYSTEM: %s\nUSER: %s", sp, j.prompt)
		}
	}

	ratio, ok := FindAspectRatio(AspectRatios, req.AspectRatio)
	if !ok {
		return nil, ErrInvalidAspectRatio
	}
	w, h, err := ratio.Dimensions()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAspectRatio, err)
	}
	j.width, j.height = w, h

	if j.prompt == "" {
		return nil, ErrEmptyPrompt
	}
	return j, nil
}

// Generate validates req, checks the balance, calls the provider and debits
// the caller only when an image came back.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req *GenerateRequest) (*GenerateResponse, error) {
	j, err := prepare(req)
	if err != nil {
		return nil, err
	}
	cost := j.mode.Cost()

	available, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, credit.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if available < cost {
		return nil, &ShortfallError{Required: cost, Available: available}
	}

	logger := log.With().Str("user_id", userID.String()).Str("mode", string(j.mode)).Logger()

	start := time.Now()
	var res *imagegen.Result
	if j.mode == ModeImageToImage {
		res, err = s.generator.ImageToImage(ctx, j.prompt, j.image)
	} else {
		res, err = s.generator.TextToImage(ctx, j.prompt, j.width, j.height)
	}
	if err != nil {
		metrics.RecordGeneration(string(j.mode), "failed", time.Since(start))
		return nil, mapProviderError(err, logger)
	}
	metrics.RecordGeneration(string(j.mode), "completed", time.Since(start))

	// The debit must land even if the client went away during the call.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), debitTimeout)
	defer cancel()

	remaining, err := s.ledger.Adjust(dctx, credit.Adjustment{UserID: userID, Amount: -cost, Reason: credit.ReasonImageGen})
	if err != nil {
		// The image exists already; hand it out and leave the balance as is.
		logger.Error().Err(err).Int("cost", cost).Msg("Debit after generation failed")
		remaining = available
	}

	logger.Info().Float64("provider_cost", res.Cost).Int("credits_used", cost).Msg("Image generated")

	return &GenerateResponse{URL: res.URL, CreditsUsed: cost, RemainingCredits: remaining}, nil
}

func mapProviderError(err error, logger zerolog.Logger) error {
	var apiErr *imagegen.APIError
	switch {
	case errors.Is(err, imagegen.ErrUnavailable):
		logger.Warn().Err(err).Msg("Image provider unavailable")
		return ErrUnavailable
	case errors.As(err, &apiErr) && apiErr.Code == imagegen.CodeInvalidImage:
		logger.Info().Str("code", apiErr.Code).Msg("Provider rejected source image")
		return ErrInvalidImage
	default:
		logger.Warn().Err(err).Msg("Image generation failed")
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
}
