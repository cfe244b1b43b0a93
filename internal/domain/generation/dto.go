package generation

// GenerateRequest is the POST /generate body. Image switches to image-to-image.
type GenerateRequest struct {
	Prompt      string `json:"prompt" validate:"max=4000"`
	Style       string `json:"style"`
	AspectRatio string `json:"aspectRatio" validate:"required"`
	Image       string `json:"image"`
}

// GenerateResponse is a successful generation.
type GenerateResponse struct {
	URL              string `json:"url"`
	CreditsUsed      int    `json:"creditsUsed"`
	RemainingCredits int    `json:"remainingCredits"`
}

// ShortfallResponse accompanies a 402.
type ShortfallResponse struct {
	Required  int `json:"required"`
	Available int `json:"available"`
	Shortfall int `json:"shortfall"`
}

// ShortfallResponseFrom builds the 402 payload.
func ShortfallResponseFrom(e *ShortfallError) ShortfallResponse {
	return ShortfallResponse{Required: e.Required, Available: e.Available, Shortfall: e.Shortfall()}
}

type CostResponse struct {
	TextToImage  int `json:"textToImage"`
	ImageToImage int `json:"imageToImage"`
}

// ConfigResponse is GET /config.
type ConfigResponse struct {
	ImageStyles  []string      `json:"imageStyles"`
	AspectRatios []AspectRatio `json:"aspectRatios"`
	AllowedAds   int           `json:"allowedAds"`
	Cost         CostResponse  `json:"cost"`
}
