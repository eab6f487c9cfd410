package services

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

const avatarSize = 512

type AvatarService interface {
	// EnsureColor assigns a palette colour when the user has none or an
	// unknown one. It reports whether the user was changed.
	EnsureColor(user *types.User) bool
	GenerateUserAvatar(user *types.User) (bytes.Buffer, error)
	Palette() []string
}

type avatarService struct {
	log *logger.Logger

	bgColors   []color.NRGBA
	colorByHex map[string]color.NRGBA
	colorHexes []string

	fontFace font.Face
}

var defaultAvatarColors = []string{
	"#2563EB", "#16A34A", "#CA8A04", "#EA580C",
	"#DC2626", "#9333EA", "#4F46E5", "#059669",
}

// NewAvatarService loads the palette from AVATAR_COLORS_JSON_PATH and the
// face from AVATAR_FONT when set, falling back to built-in defaults.
func NewAvatarService(log *logger.Logger) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	var bgColors []color.NRGBA
	if path := strings.TrimSpace(os.Getenv("AVATAR_COLORS_JSON_PATH")); path != "" {
		serviceLog.Info("Loading avatar colors...", "path", path)
		loaded, err := loadColorsFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not load avatar colors: %w", err)
		}
		bgColors = loaded
	} else {
		parsed, err := parseColorList(defaultAvatarColors)
		if err != nil {
			return nil, err
		}
		bgColors = parsed
	}
	if len(bgColors) == 0 {
		return nil, fmt.Errorf("avatar colors list is empty")
	}

	colorByHex := make(map[string]color.NRGBA, len(bgColors))
	colorHexes := make([]string, 0, len(bgColors))
	for _, c := range bgColors {
		h := nrgbaToHex(c)
		colorByHex[h] = c
		colorHexes = append(colorHexes, h)
	}

	var (
		face font.Face
		err  error
	)
	if fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT")); fontPath != "" {
		serviceLog.Info("Loading avatar font", "font", fontPath)
		face, err = loadFontFace(fontPath, 206)
	} else {
		face, err = parseFontFace(gobold.TTF, 206)
	}
	if err != nil {
		return nil, fmt.Errorf("could not load avatar font: %w", err)
	}

	return &avatarService{
		log:        serviceLog,
		bgColors:   bgColors,
		colorByHex: colorByHex,
		colorHexes: colorHexes,
		fontFace:   face,
	}, nil
}

func (as *avatarService) Palette() []string {
	return append([]string(nil), as.colorHexes...)
}

func (as *avatarService) EnsureColor(user *types.User) bool {
	if user == nil {
		return false
	}
	if n := normalizeHex(user.AvatarColor); n != "" {
		if _, ok := as.colorByHex[n]; ok {
			changed := n != user.AvatarColor
			user.AvatarColor = n
			return changed
		}
	}
	user.AvatarColor = as.colorHexes[stableIndex(user.ID.String(), len(as.colorHexes))]
	return true
}

func (as *avatarService) GenerateUserAvatar(user *types.User) (bytes.Buffer, error) {
	var buf bytes.Buffer
	if user == nil {
		return buf, fmt.Errorf("user required")
	}
	as.EnsureColor(user)

	dc := gg.NewContext(avatarSize, avatarSize)

	dc.DrawCircle(float64(avatarSize)/2, float64(avatarSize)/2, float64(avatarSize)/2)
	dc.Clip()

	dc.SetColor(as.colorByHex[user.AvatarColor])
	dc.DrawRectangle(0, 0, float64(avatarSize), float64(avatarSize))
	dc.Fill()

	initials := computeInitials(user.FirstName, user.LastName)
	dc.SetFontFace(as.fontFace)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(initials, float64(avatarSize)/2, float64(avatarSize)/2, 0.5, 0.35)

	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

// -------------------- Color helpers --------------------

func stableIndex(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	s = strings.ToUpper(s)
	if len(s) != 7 {
		return ""
	}
	if _, _, _, err := parseHexRGB(s); err != nil {
		return ""
	}
	return s
}

func parseHexRGB(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("expected 6 hex chars")
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid hex")
	}
	return raw[0], raw[1], raw[2], nil
}

func nrgbaToHex(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func parseColorList(hexes []string) ([]color.NRGBA, error) {
	out := make([]color.NRGBA, 0, len(hexes))
	for _, h := range hexes {
		r, g, b, err := parseHexRGB(h)
		if err != nil {
			return nil, fmt.Errorf("color %q: %w", h, err)
		}
		out = append(out, color.NRGBA{R: r, G: g, B: b, A: 255})
	}
	return out, nil
}

// -------------------- Misc helpers --------------------

func computeInitials(first, last string) string {
	initial := func(s string) string {
		for _, r := range strings.TrimSpace(s) {
			return strings.ToUpper(string(r))
		}
		return "?"
	}
	return initial(first) + initial(last)
}

func loadColorsFromFile(jsonPath string) ([]color.NRGBA, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read colors file: %w", err)
	}
	var hexes []string
	if err := json.Unmarshal(data, &hexes); err != nil {
		return nil, fmt.Errorf("parse colors file: %w", err)
	}
	return parseColorList(hexes)
}

func loadFontFace(path string, points float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFontFace(data, points)
}

func parseFontFace(ttf []byte, points float64) (font.Face, error) {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}
