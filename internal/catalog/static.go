package catalog

import (
	"context"

	"avatar-server/internal/domain"
)

var staticGarments = []domain.StyleAsset{
	{ID: "k1", DisplayName: "Classic Sakura", LocalPath: "kimono/k1.png", Description: "a traditional pink kimono with a cherry blossom pattern", AIHint: "pink sakura kimono"},
	{ID: "k2", DisplayName: "Elegant Wave", LocalPath: "kimono/k2.png", Description: "a deep blue kimono with an artistic wave pattern", AIHint: "blue wave kimono"},
	{ID: "k3", DisplayName: "Golden Crane", LocalPath: "kimono/k3.png", Description: "a luxurious gold and white kimono with crane motifs", AIHint: "gold crane kimono"},
	{ID: "k4", DisplayName: "Spring Bamboo", LocalPath: "kimono/k4.png", Description: "a light green kimono with delicate bamboo leaves", AIHint: "green bamboo kimono"},
	{ID: "k5", DisplayName: "Magical Star Wish", LocalPath: "kimono/k5.png", Description: "a magical girl style kimono decorated with sparkling stars and ribbons", AIHint: "magical girl star kimono"},
	{ID: "k6", DisplayName: "Cyber Samurai Crimson", LocalPath: "kimono/k6.png", Description: "a samurai style kimono with futuristic lines and neon light effects", AIHint: "cyberpunk samurai kimono"},
	{ID: "k7", DisplayName: "Night Butterfly", LocalPath: "kimono/k7.png", Description: "a deep purple kimono with mysterious butterfly patterns", AIHint: "dark butterfly kimono"},
}

var staticBackdrops = []domain.StyleAsset{
	{ID: "b1", DisplayName: "Sakura Park Path", LocalPath: "background/b1.png", Description: "a quiet park path lined with blooming cherry trees", AIHint: "sakura park path"},
	{ID: "b2", DisplayName: "Mountain Temple", LocalPath: "background/b2.png", Description: "a traditional temple overlooking misty mountains", AIHint: "mountain temple view"},
	{ID: "b3", DisplayName: "Lantern Festival Street", LocalPath: "background/b3.png", Description: "a lively night festival street hung with glowing lanterns", AIHint: "night festival lanterns"},
	{ID: "b4", DisplayName: "Zen Garden Bridge", LocalPath: "background/b4.png", Description: "a calm zen garden with a wooden bridge over a koi pond", AIHint: "zen garden bridge"},
	{ID: "b5", DisplayName: "Floating Isles", LocalPath: "background/b5.png", Description: "fantasy islands floating in the sky with waterfalls pouring down", AIHint: "fantasy floating island"},
	{ID: "b6", DisplayName: "Torii Under the Stars", LocalPath: "background/b6.png", Description: "a mysterious red torii gate beneath a brilliant starry sky", AIHint: "starry sky torii gate"},
	{ID: "b7", DisplayName: "Steampunk City", LocalPath: "background/b7.png", Description: "a retro-futuristic city full of gears, pipes and airships", AIHint: "steampunk city"},
}

// Static is the built-in catalog of seven garments and seven backdrops.
type Static struct{}

func NewStatic() *Static { return &Static{} }

func (Static) List(ctx context.Context, kind domain.StyleKind) ([]domain.StyleAsset, error) {
	return StaticItems(kind), nil
}

// StaticItems returns a copy of the built-in styles of kind with Kind set.
func StaticItems(kind domain.StyleKind) []domain.StyleAsset {
	var src []domain.StyleAsset
	switch kind {
	case domain.StyleGarment:
		src = staticGarments
	case domain.StyleBackdrop:
		src = staticBackdrops
	}
	out := make([]domain.StyleAsset, len(src))
	for i, item := range src {
		item.Kind = kind
		out[i] = item
	}
	return out
}
