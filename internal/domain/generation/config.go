package generation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	TextToImageCost  = 3
	ImageToImageCost = 5

	// StyleNone is sent by clients that want no style applied.
	StyleNone = "None"
)

// Mode selects the provider endpoint.
type Mode string

const (
	ModeTextToImage  Mode = "text-to-image"
	ModeImageToImage Mode = "image-to-image"
)

// Cost returns the credit price of a generation.
func (m Mode) Cost() int {
	if m == ModeImageToImage {
		return ImageToImageCost
	}
	return TextToImageCost
}

// Styles is the public list in display order.
var Styles = []string{
	StyleNone,
	"Cartoon",
	"Anime",
	"Realistic",
	"Cyberpunk",
	"Pixel Art",
	"Watercolor",
	"3D Render",
	"Line Art",
	"Low Poly",
	"Oil Painting",
}

// stylePrompts are prepended to image-to-image prompts. Cartoon has none.
var stylePrompts = map[string]string{
	"Anime":        "Create an image in the vibrant and dynamic style of Japanese anime. Emphasize bold outlines, expressive eyes, and potentially stylized proportions. The color palette can range from bright and energetic to more muted depending on the desired mood. Aim for a visual aesthetic similar to popular anime series. Apply this style to the provided input photo.",
	"Realistic":    "Generate an image with a high degree of photorealism. The image should accurately depict details, textures, lighting, and shadows to appear as if it were captured by a camera. Strive for a natural and believable representation of the subject matter. Apply this style to the provided input photo, aiming for a highly realistic interpretation.",
	"Cyberpunk":    "Create an image in the futuristic and dystopian aesthetic of cyberpunk. Incorporate elements like neon lights, advanced technology, sprawling urban landscapes, and potentially gritty or high-contrast lighting. Use a color palette often dominated by neons, dark blues, and purples. Apply this style to the provided input photo, transforming it into a cyberpunk scene.",
	"Pixel Art":    "Generate an image composed of visible pixels, characteristic of pixel art. Keep the resolution relatively low to emphasize the pixelated look. The style can vary from retro video game aesthetics to more modern interpretations of pixel art. Apply this style to the provided input photo, simplifying it into a pixel grid.",
	"Watercolor":   "Create an image that emulates the look of a watercolor painting. Focus on soft, translucent washes of color, visible brushstrokes, and potentially bleeding or blending effects. The overall impression should be fluid and somewhat impressionistic. Apply this style to the provided input photo, giving it a watercolor effect.",
	"3D Render":    "Generate an image that appears to be a realistic or stylized 3D render. The image should have defined forms, calculated lighting and shadows, and potentially textures applied to surfaces. The level of detail and realism can vary depending on the desired effect. Apply this style to the provided input photo, interpreting it as a 3D model.",
	"Line Art":     "Create an image primarily using lines, without significant shading or color fills (unless specifically requested as line art with color). Emphasize clean, crisp lines to define shapes and forms. The style can range from simple sketches to more detailed illustrations. Apply this style to the provided input photo, converting it into a line drawing.",
	"Low Poly":     "Generate an image composed of simple geometric shapes (polygons), with visible facets and sharp edges. This style minimizes the number of polygons used, resulting in a stylized, often abstract appearance. Use flat shading or simple gradients. Apply this style to the provided input photo, simplifying its forms into a low-polygon representation.",
	"Oil Painting": "Create an image that mimics the texture and appearance of an oil painting. Emphasize visible brushstrokes, rich colors, and potentially impasto effects (thick application of paint). The lighting and blending of colors should resemble traditional oil painting techniques. Apply this style to the provided input photo, giving it the look of an oil painting.",
}

// ValidStyle reports whether style is in Styles.
func ValidStyle(style string) bool {
	for _, s := range Styles {
		if s == style {
			return true
		}
	}
	return false
}

// StylePrompt returns the style instruction, if the style has one.
func StylePrompt(style string) (string, bool) {
	p, ok := stylePrompts[style]
	return p, ok
}

// AspectRatio is a supported output shape; Resolution is WIDTHxHEIGHT.
type AspectRatio struct {
	Ratio       string `json:"ratio"`
	Resolution  string `json:"resolution"`
	Description string `json:"description,omitempty"`
}

// Dimensions parses Resolution.
func (a AspectRatio) Dimensions() (width, height int, err error) {
	w, h, ok := strings.Cut(a.Resolution, "x")
	if !ok {
		return 0, 0, fmt.Errorf("malformed resolution %q", a.Resolution)
	}
	if width, err = strconv.Atoi(w); err != nil {
		return 0, 0, fmt.Errorf("malformed resolution %q: %w", a.Resolution, err)
	}
	if height, err = strconv.Atoi(h); err != nil {
		return 0, 0, fmt.Errorf("malformed resolution %q: %w", a.Resolution, err)
	}
	return width, height, nil
}

var AspectRatios = []AspectRatio{
	{Ratio: "1:1", Resolution: "1024x1024"},
	{Ratio: "3:4", Resolution: "768x1024"},
	{Ratio: "4:3", Resolution: "1024x768"},
	{Ratio: "16:9", Resolution: "1280x720"},
	{Ratio: "9:16", Resolution: "720x1280"},
}

// FindAspectRatio looks ratio up in list.
func FindAspectRatio(list []AspectRatio, ratio string) (AspectRatio, bool) {
	for _, a := range list {
		if a.Ratio == ratio {
			return a, true
		}
	}
	return AspectRatio{}, false
}
