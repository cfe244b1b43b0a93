package headshot

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/domain/credit"
	"github.com/chitra-ai/chitra-api/internal/domain/generation"
	"github.com/chitra-ai/chitra-api/internal/pkg/gemini"
	"github.com/chitra-ai/chitra-api/internal/pkg/imaging"
	"github.com/chitra-ai/chitra-api/internal/pkg/metrics"
	"github.com/chitra-ai/chitra-api/internal/pkg/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 50
	cleanupBatchSize    = 500

	// bookkeepingTimeout bounds the writes after the model call. They run
	// detached from the request so a client disconnect cannot strand a record.
	bookkeepingTimeout = 10 * time.Second
	uploadTimeout      = 30 * time.Second

	msgSourceUnreachable = "Failed to process image. Please ensure the image URL is accessible."
	msgNoImage           = "Gemini did not return any generated images"
	msgUnavailable       = "Headshot service is temporarily unavailable"
	msgAbandoned         = "Generation did not finish. Please try again."
)

// Ledger reads balances and debits headshots.
type Ledger interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	Adjust(ctx context.Context, adj credit.Adjustment) (int, error)
}

// ImageModel produces the headshot.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string, jpeg []byte) (*gemini.Image, error)
}

// Normalizer prepares source photos.
type Normalizer interface {
	Normalize(data []byte) (*imaging.Normalized, error)
}

// Deps are the collaborators of Service. Storage may be nil.
type Deps struct {
	Repo       Repository
	Ledger     Ledger
	Model      ImageModel
	Fetcher    Fetcher
	Normalizer Normalizer
	Storage    storage.Storage
	Bucket     string
}

type Service struct {
	repo       Repository
	ledger     Ledger
	model      ImageModel
	fetcher    Fetcher
	normalizer Normalizer
	storage    storage.Storage
	bucket     string
	now        func() time.Time
}

func NewService(d Deps) *Service {
	return &Service{
		repo:       d.Repo,
		ledger:     d.Ledger,
		model:      d.Model,
		fetcher:    d.Fetcher,
		normalizer: d.Normalizer,
		storage:    d.Storage,
		bucket:     d.Bucket,
		now:        time.Now,
	}
}

// Config returns the public styles, optionally filtered.
func (s *Service) Config(category string, premium *bool) ConfigResponse {
	styles := FilterStyles(category, premium)
	out := make([]StyleResponse, 0, len(styles))
	for _, st := range styles {
		out = append(out, StyleResponse{
			ID:          st.ID,
			Name:        st.Name,
			Description: st.Description,
			Category:    st.Category,
			CreditCost:  GenerationCost,
			IsPremium:   st.IsPremium,
		})
	}

	premiumCount := 0
	for _, st := range Styles {
		if st.IsPremium {
			premiumCount++
		}
	}

	return ConfigResponse{
		Styles:       out,
		Categories:   Categories,
		AspectRatios: AspectRatios,
		Costs:        CostsResponse{HeadshotGeneration: GenerationCost},
		Statistics: StatisticsResponse{
			TotalStyles:   len(Styles),
			PremiumStyles: premiumCount,
			BasicStyles:   len(Styles) - premiumCount,
		},
	}
}

// Generate runs one headshot end to end. Credits are only taken once the
// record is completed; a failure is recorded on the generation and returned
// as *FailedError.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req *GenerateRequest) (*GenerateResponse, error) {
	if !ValidImageURL(req.ImageURL) {
		return nil, ErrInvalidImageURL
	}
	style, ok := StyleByID(req.Style)
	if !ok {
		return nil, ErrInvalidStyle
	}
	if _, ok := generation.FindAspectRatio(AspectRatios, req.AspectRatio); !ok {
		return nil, ErrInvalidAspectRatio
	}

	available, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, credit.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if available < GenerationCost {
		return nil, &generation.ShortfallError{Required: GenerationCost, Available: available}
	}

	g := &Generation{
		UserID:      userID,
		Style:       style.ID,
		Status:      StatusProcessing,
		AspectRatio: req.AspectRatio,
		Quality:     QualityHigh,
		BatchSize:   1,
		CreditsUsed: GenerationCost,
	}
	// Data URLs are not storage objects; nothing to clean up later.
	if !isDataURL(req.ImageURL) {
		g.OriginalImageURL = sql.NullString{String: req.ImageURL, Valid: true}
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	logger := log.With().Str("user_id", userID.String()).Int64("generation_id", g.ID).Str("style", style.ID).Logger()
	logger.Info().Msg("Headshot generation started")

	start := s.now()
	url, err := s.produce(ctx, g, style, req.ImageURL)
	elapsed := s.now().Sub(start)
	seconds := int(math.Floor(elapsed.Seconds()))

	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	if err != nil {
		metrics.RecordGeneration("headshot", "failed", elapsed)
		msg, cause := failureMessage(err)
		logger.Warn().Err(err).Msg("Headshot generation failed")
		if markErr := s.repo.MarkFailed(bctx, g.ID, msg, seconds); markErr != nil {
			logger.Error().Err(markErr).Msg("Failed to record headshot failure")
		}
		return nil, &FailedError{GenerationID: g.ID, Message: msg, Err: fmt.Errorf("%w: %v", cause, err)}
	}
	metrics.RecordGeneration("headshot", "completed", elapsed)

	if err := s.repo.MarkCompleted(bctx, g.ID, URLs{url}, seconds); err != nil {
		// The image exists; keep going so the user still gets it.
		logger.Error().Err(err).Msg("Failed to record headshot completion")
	}

	remaining, err := s.ledger.Adjust(bctx, credit.Adjustment{UserID: userID, Amount: -GenerationCost, Reason: credit.ReasonHeadshotGen})
	if err != nil {
		logger.Error().Err(err).Int("cost", GenerationCost).Msg("Debit after headshot failed")
		remaining = available
	}

	logger.Info().Int("processing_time", seconds).Int("credits_used", GenerationCost).Msg("Headshot generated")

	return &GenerateResponse{
		GenerationID:     g.ID,
		URL:              url,
		CreditsUsed:      GenerationCost,
		RemainingCredits: remaining,
		ProcessingTime:   seconds,
		Style:            style.Name,
	}, nil
}

// produce fetches, normalises, generates and stores; it returns the result url.
func (s *Service) produce(ctx context.Context, g *Generation, style Style, src string) (string, error) {
	raw, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return "", err
	}
	norm, err := s.normalizer.Normalize(raw)
	if err != nil {
		return "", err
	}

	img, err := s.model.GenerateImage(ctx, BuildPrompt(style, g.Quality), norm.Data)
	if err != nil {
		return "", err
	}

	if s.storage == nil {
		return img.DataURL(), nil
	}
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uploadTimeout)
	defer cancel()
	key := fmt.Sprintf("headshots/%s/%d%s", g.UserID, g.ID, extension(img.MimeType))
	if err := s.storage.Put(putCtx, key, bytes.NewReader(img.Data), img.MimeType); err != nil {
		log.Warn().Err(err).Int64("generation_id", g.ID).Msg("Result upload failed, returning inline image")
		return img.DataURL(), nil
	}
	return s.storage.GetURL(key), nil
}

// failureMessage picks the text stored on the record and shown to the user.
func failureMessage(err error) (string, error) {
	var apiErr *gemini.APIError
	switch {
	case errors.Is(err, gemini.ErrUnavailable):
		return msgUnavailable, ErrUnavailable
	case errors.Is(err, errSourceUnreachable):
		return msgSourceUnreachable, ErrGenerationFailed
	case errors.Is(err, imaging.ErrTooSmall):
		return "Image resolution is too small", ErrGenerationFailed
	case errors.Is(err, imaging.ErrUnsupported):
		return "Unsupported image format", ErrGenerationFailed
	case errors.Is(err, gemini.ErrNoImage):
		return msgNoImage, ErrGenerationFailed
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message, ErrGenerationFailed
	default:
		return "Failed to generate headshot", ErrGenerationFailed
	}
}

func isDataURL(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// History lists the caller's generations newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, filter *HistoryFilter, p Pagination) (*HistoryResponse, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultHistoryLimit
	}
	if p.Limit > maxHistoryLimit {
		p.Limit = maxHistoryLimit
	}

	gens, total, err := s.repo.List(ctx, userID, filter, p)
	if err != nil {
		return nil, err
	}

	items := make([]GenerationResponse, 0, len(gens))
	for _, g := range gens {
		items = append(items, GenerationResponseFrom(g))
	}

	totalPages := (total + p.Limit - 1) / p.Limit
	return &HistoryResponse{
		Generations: items,
		Pagination: PaginationResponse{
			CurrentPage: p.Page,
			TotalPages:  totalPages,
			TotalItems:  total,
			PerPage:     p.Limit,
			HasNext:     p.Page < totalPages,
			HasPrevious: p.Page > 1,
		},
		Filters: filtersResponse(filter),
	}, nil
}

func filtersResponse(f *HistoryFilter) FiltersResponse {
	out := FiltersResponse{FavoritesOnly: f.FavoritesOnly}
	if f.Style != "" {
		v := f.Style
		out.Style = &v
	}
	if f.Status != "" {
		v := string(f.Status)
		out.Status = &v
	}
	if f.DateFrom != nil {
		v := f.DateFrom.Format(time.RFC3339)
		out.DateFrom = &v
	}
	if f.DateTo != nil {
		v := f.DateTo.Format(time.RFC3339)
		out.DateTo = &v
	}
	return out
}

// Batch applies action to generations owned by the caller. Any id the
// caller does not own aborts the whole batch.
func (s *Service) Batch(ctx context.Context, userID uuid.UUID, req *BatchRequest) (*BatchResponse, error) {
	if !req.Action.Valid() {
		return nil, ErrInvalidAction
	}

	ids := dedupe(req.GenerationIDs)
	owned, err := s.repo.OwnedIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if invalid := missing(ids, owned); len(invalid) > 0 {
		return nil, &InvalidIDsError{IDs: invalid}
	}

	var affected []int64
	switch req.Action {
	case ActionFavorite:
		affected, err = s.repo.SetFavorite(ctx, userID, ids, true)
	case ActionUnfavorite:
		affected, err = s.repo.SetFavorite(ctx, userID, ids, false)
	case ActionDelete:
		affected, err = s.repo.SoftDelete(ctx, userID, ids)
	}
	if err != nil {
		return nil, err
	}
	if affected == nil {
		affected = []int64{}
	}

	log.Info().Str("user_id", userID.String()).Str("action", string(req.Action)).Int("affected", len(affected)).Msg("Headshot batch operation")

	return &BatchResponse{Action: req.Action, AffectedCount: len(affected), AffectedIDs: affected}, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missing(want, have []int64) []int64 {
	set := make(map[int64]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}
	var out []int64
	for _, id := range want {
		if _, ok := set[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Status returns a single generation of the caller.
func (s *Service) Status(ctx context.Context, userID uuid.UUID, id int64) (*StatusResponse, error) {
	g, err := s.repo.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	resp := StatusResponseFrom(g)
	return &resp, nil
}

// CleanupOriginals fails generations stuck in progress for longer than
// maxAge, then deletes source images of finished generations older than
// maxAge and clears their url.
func (s *Service) CleanupOriginals(ctx context.Context, maxAge time.Duration) (*CleanupResult, error) {
	now := s.now()
	before := now.Add(-maxAge)

	abandoned, err := s.repo.FailAbandoned(ctx, before, msgAbandoned)
	if err != nil {
		return nil, err
	}
	if abandoned > 0 {
		log.Warn().Int64("generations", abandoned).Msg("Abandoned headshot generations marked failed")
	}

	stale, err := s.repo.ListStaleOriginals(ctx, before, cleanupBatchSize)
	if err != nil {
		return nil, err
	}

	res := &CleanupResult{Processed: len(stale), Abandoned: int(abandoned), Timestamp: now.UTC()}
	for _, st := range stale {
		err := s.deleteOriginal(ctx, st)
		if errors.Is(err, storage.ErrNotObjectURL) {
			// Not ours to delete; forget the url so it is not retried.
			if err := s.repo.ClearOriginal(ctx, st.ID); err != nil {
				res.Failed++
				continue
			}
			res.Skipped++
			continue
		}
		if err != nil {
			res.Failed++
			log.Warn().Err(err).Int64("generation_id", st.ID).Msg("Failed to delete original image")
			continue
		}
		res.Deleted++
	}

	log.Info().Int("processed", res.Processed).Int("deleted", res.Deleted).Int("failed", res.Failed).Msg("Original image cleanup completed")
	return res, nil
}

func (s *Service) deleteOriginal(ctx context.Context, st *StaleOriginal) error {
	if s.storage == nil {
		return errors.New("storage not configured")
	}
	key, err := storage.KeyFromURL(st.OriginalImageURL, s.bucket)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return err
	}
	return s.repo.ClearOriginal(ctx, st.ID)
}
