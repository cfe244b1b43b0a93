package headshot

import "strings"

// Style is a headshot look.
type Style struct {
	ID             string
	Name           string
	Description    string
	Category       string
	IsPremium      bool
	PromptTemplate string
	NegativePrompt string
}

// Category groups styles for display.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var Categories = []Category{
	{ID: "business", Name: "Business", Description: "Professional business and corporate headshots"},
	{ID: "creative", Name: "Creative", Description: "Artistic and creative professional portraits"},
	{ID: "entertainment", Name: "Entertainment", Description: "Actor, model, and entertainment industry headshots"},
	{ID: "lifestyle", Name: "Lifestyle", Description: "Natural and relatable lifestyle portraits"},
	{ID: "specialized", Name: "Specialized", Description: "Industry-specific professional portraits"},
	{ID: "premium", Name: "Premium", Description: "High-end luxury and editorial portraits"},
}

var Styles = []Style{
	{
		ID:             "corporate",
		Name:           "Corporate",
		Description:    "Professional business headshots with formal attire",
		Category:       "business",
		PromptTemplate: "Generate a realistic corporate headshot of the uploaded person. Preserve identity exactly: keep the same face shape, natural hair, eye color, and skin tone as in the original photo. No alterations to facial features. Clothing: replace with professional business attire, a tailored dark blazer or suit jacket over a light collared shirt. Ensure it looks natural, fitted, and realistic. Background: neutral, minimal, professional (soft light gray, white, or gradient), with no distractions. Lighting: studio-quality, soft and even across the face, with no harsh shadows. Expression: confident, approachable, natural smile. Final result: sharp focus, high-resolution, realistic skin texture, must look like an authentic professional photo, not AI-stylized.",
		NegativePrompt: "casual clothes, messy hair, poor lighting, cluttered background, AI-stylized, cartoonish, unrealistic",
	},
	{
		ID:             "actor",
		Name:           "Actor",
		Description:    "Entertainment industry headshots for auditions",
		Category:       "entertainment",
		IsPremium:      true,
		PromptTemplate: "Generate a realistic actor headshot of the uploaded person. Preserve identity exactly: maintain the same face shape, hair style, eye color, and skin tone from the original photo with no changes to facial features. Clothing: replace with simple, neutral wardrobe, a plain fitted T-shirt or casual shirt in solid colors (black, white, or gray). Avoid logos, patterns, or accessories. Background: plain and clean (light gray, white, or soft gradient). Casting directors should focus entirely on the person. Lighting: natural or studio-quality soft light that shows true skin tone and detail. Balanced, with no heavy shadows or filters. Expression: neutral to slight smile, authentic, approachable, and versatile. No exaggerated posing. Style: high-resolution, sharp detail, realistic skin texture. Must look like a natural professional photo for auditions, not overly edited or stylized.",
		NegativePrompt: "business attire, corporate background, stiff pose, poor lighting, logos, patterns, accessories, heavy shadows, filters, exaggerated posing, overly edited, stylized",
	},
	{
		ID:             "model",
		Name:           "Model",
		Description:    "Fashion and commercial modeling portraits",
		Category:       "entertainment",
		IsPremium:      true,
		PromptTemplate: "Generate a realistic modeling headshot of the uploaded person. Identity preservation is critical: keep the exact same face shape, hair style, eye color, and skin tone as the original photo. No changes to facial features. Clothing: replace with fashionable, well-fitted attire suitable for a modeling portfolio, such as a stylish top, blazer, or casual-chic outfit depending on the composition. Keep colors neutral or trendy, avoid logos or busy patterns. Background: simple or minimalistic studio backdrop (white, gray, or soft gradient) to emphasize the subject. Lighting: soft, professional studio lighting with subtle highlights and shadows to accentuate facial features naturally. Expression: confident, engaging, with subtle attitude or personality; a slight smile or intense gaze is acceptable. Style: high-resolution, sharp focus, realistic skin texture, magazine-quality finish. Must look like a professional model portfolio photo, not AI-stylized or cartoonish.",
		NegativePrompt: "logos, busy patterns, distracting background, harsh lighting, amateur quality, AI-stylized, cartoonish, unrealistic",
	},
	{
		ID:             "executive",
		Name:           "Executive",
		Description:    "High-level executive portraits with commanding presence",
		Category:       "premium",
		IsPremium:      true,
		PromptTemplate: "Create a realistic executive portrait of the uploaded person. Identity preservation is critical: keep the exact same face shape, hair style, eye color, and skin tone as the original photo. No modifications to facial features. Clothing: replace with high-level executive attire, a dark tailored suit jacket, crisp white collared shirt, and optional tie. Outfit should look refined, fitted, and natural. Background: professional yet sophisticated, a clean neutral tone (light gray, deep blue, or gradient) or a subtle blurred office setting. Must not distract from the subject. Lighting: dramatic but professional, soft directional light that highlights the face and conveys authority. Expression: confident, composed, approachable but strong (slight smile or serious executive expression). Style: high-resolution, sharp detail, realistic skin texture, professional magazine-quality look. The result should convey leadership, credibility, and authority.",
		NegativePrompt: "casual attire, amateur photography, poor composition, distracting background, harsh lighting, unprofessional quality",
	},
	{
		ID:             "creative",
		Name:           "Creative",
		Description:    "Artistic and expressive creative professional portraits",
		Category:       "creative",
		PromptTemplate: "Generate a realistic creative headshot of the uploaded person. Preserve identity exactly: maintain the same face shape, natural hair, eye color, and skin tone as in the original photo. No modifications to facial features. Clothing: replace with stylish, modern, and slightly artistic attire, such as a trendy jacket, colorful shirt, or casual-chic outfit. Ensure the clothes look fitted, natural, and realistic. Background: vibrant, modern, or abstract, with soft pastel tones, blurred street art, or light geometric patterns. Should feel innovative but not overpowering. Lighting: artistic yet professional, natural daylight or softly diffused colored light with creative accents. Avoid harsh shadows. Expression: expressive, approachable, confident, with a spark of personality. Final result: high-resolution, sharp detail, realistic skin texture, creative and modern look while remaining authentic.",
		NegativePrompt: "conservative business attire, plain background, boring composition, harsh shadows, overpowering background, unrealistic",
	},
	{
		ID:             "lifestyle",
		Name:           "Lifestyle",
		Description:    "Natural and relatable lifestyle portraits",
		Category:       "lifestyle",
		PromptTemplate: "Generate a realistic lifestyle headshot of the uploaded person. Preserve identity exactly: keep the same facial structure, hairstyle, eye color, and skin tone as in the original photo. No changes to features. Clothing: casual yet polished, a well-fitted shirt, light sweater, or relaxed blazer. Neutral or warm tones, avoiding logos and heavy patterns. Background: natural and relatable, such as an outdoor cafe, park, modern city street, or softly blurred home interior. Must look authentic. Lighting: natural daylight or warm golden-hour style. Balanced and flattering, no artificial-looking effects. Expression: relaxed, approachable, authentic smile or natural candid look. Final result: high-resolution, realistic, lifestyle-inspired photo suitable for social media, personal branding, or casual professional use.",
		NegativePrompt: "logos, heavy patterns, artificial lighting, stiff posing, overly formal attire, unrealistic background",
	},
	{
		ID:             "editorial",
		Name:           "Editorial",
		Description:    "Magazine-quality editorial portraits",
		Category:       "premium",
		IsPremium:      true,
		PromptTemplate: "Generate a realistic editorial-style headshot of the uploaded person. Preserve identity exactly: keep the same face shape, hairstyle, eye color, and skin tone as in the original photo. No alterations to facial features. Clothing: high-fashion or striking editorial wardrobe, such as a stylish blazer, bold top, or modern tailored piece. Clean lines and statement looks preferred. Background: studio or minimalist backdrop with bold contrasts (white, black, deep tones, or textured gradient). Should feel magazine-like. Lighting: dramatic editorial lighting, directional, with subtle shadows and highlights to sculpt the face. Expression: strong, confident, with subtle intensity or character. No exaggerated smiles. Final result: sharp detail, high-resolution, magazine-quality aesthetic, sophisticated and professional.",
		NegativePrompt: "amateur photography, poor composition, basic lighting, unprofessional styling, exaggerated smiles, low quality",
	},
	{
		ID:             "cinematic",
		Name:           "Cinematic",
		Description:    "Dramatic cinematic lighting and composition",
		Category:       "premium",
		IsPremium:      true,
		PromptTemplate: "Generate a realistic cinematic-style headshot of the uploaded person. Preserve identity exactly: maintain the original face shape, hair, eye color, and skin tone without altering features. Clothing: simple but stylish, a fitted jacket, dark-toned shirt, or neutral wardrobe that fits cinematic drama. Background: cinematic setting with depth, such as blurred city lights at night, softly lit indoors, or natural outdoor with atmospheric tones. Lighting: dramatic and moody, directional light with cinematic color grading (warm tones, teal and orange, or soft shadows). Expression: natural but powerful, thoughtful and confident, with cinematic presence. Final result: high-resolution, film-quality image with depth, texture, and authentic cinematic feel.",
		NegativePrompt: "flat lighting, amateur composition, poor contrast, unprofessional quality, bright harsh lighting, unrealistic colors",
	},
	{
		ID:             "environmental",
		Name:           "Environmental",
		Description:    "Real-world contextual professional portraits",
		Category:       "specialized",
		PromptTemplate: "Generate a realistic environmental headshot of the uploaded person. Preserve identity exactly: keep the same face shape, natural hair, eye color, and skin tone from the original photo. No modifications to facial features. Clothing: professional or casual attire that fits the chosen environment, office wear for workplace, casual smart for outdoor, or field-appropriate clothing. Background: real-world contextual environment, such as a blurred office interior, university hallway, outdoor urban street, or natural green landscape. Must support but not distract. Lighting: natural or soft professional lighting to match the environment, daylight for outdoors and balanced studio light for indoors. Expression: approachable, authentic, naturally engaged. Final result: high-resolution, sharp detail, realistic environmental context while keeping focus on the subject.",
		NegativePrompt: "distracting background, inappropriate clothing for environment, harsh artificial lighting, poor focus on subject, unrealistic setting",
	},
}

// StyleByID finds a style.
func StyleByID(id string) (Style, bool) {
	for _, s := range Styles {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// FilterStyles applies the config query filters. An empty category matches
// all; premium is nil when not filtered.
func FilterStyles(category string, premium *bool) []Style {
	out := make([]Style, 0, len(Styles))
	for _, s := range Styles {
		if category != "" && s.Category != category {
			continue
		}
		if premium != nil && s.IsPremium != *premium {
			continue
		}
		out = append(out, s)
	}
	return out
}

var qualityModifiers = map[Quality]string{
	QualityStandard: "professional photography, photorealistic, real photograph",
	QualityHigh:     "high-quality professional photography, photorealistic, real photograph, DSLR quality, sharp focus, natural lighting",
	QualityUltra:    "ultra high-quality professional photography, photorealistic, real photograph taken with professional DSLR camera, sharp focus, studio lighting, commercial grade, natural skin texture, authentic photography",
}

// BuildPrompt renders the model instruction for a style.
func BuildPrompt(style Style, quality Quality) string {
	mod, ok := qualityModifiers[quality]
	if !ok {
		mod = qualityModifiers[QualityHigh]
	}

	var b strings.Builder
	b.WriteString("Transform this photo into a professional headshot: ")
	b.WriteString(style.PromptTemplate)
	b.WriteString(", ")
	b.WriteString(mod)
	b.WriteString(", professional headshot portrait, real photograph, authentic photography, natural skin pores and texture, photorealistic human, centered composition")
	b.WriteString("\n\nCRITICAL: Preserve the EXACT facial features, hair color, eye color, skin tone, and facial structure from the original photo. ONLY change the clothing and background. The person must remain completely identical.")
	return b.String()
}
