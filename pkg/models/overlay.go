package models

// Position is an overlay anchor expressed in percent of the frame
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextStyle holds text overlay styling
type TextStyle struct {
	FontFamily        string  `json:"font_family"`
	FontSize          int     `json:"font_size"`
	FontWeight        string  `json:"font_weight"`
	Color             string  `json:"color"`
	BackgroundColor   string  `json:"background_color,omitempty"`
	BackgroundPadding int     `json:"background_padding,omitempty"`
	TextAlign         string  `json:"text_align"`
	Opacity           float64 `json:"opacity"`
}

// DefaultTextStyle returns the style applied to new text overlays
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontFamily: "Inter",
		FontSize:   32,
		FontWeight: "normal",
		Color:      "#FFFFFF",
		TextAlign:  "center",
		Opacity:    1,
	}
}

// TextOverlay is a time-ranged text element drawn over the composed video
type TextOverlay struct {
	ID        string    `json:"id"`
	StartTime float64   `json:"start_time"`
	Duration  float64   `json:"duration"`
	Text      string    `json:"text"`
	Position  Position  `json:"position"`
	Style     TextStyle `json:"style"`
}

// CaptionStyle holds caption styling shared by a caption track
type CaptionStyle struct {
	FontFamily      string `json:"font_family"`
	FontSize        int    `json:"font_size"`
	Color           string `json:"color"`
	BackgroundColor string `json:"background_color,omitempty"`
	Position        string `json:"position"` // top, center, bottom
}

// DefaultCaptionStyle returns the global caption style of a new project
func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		FontFamily:      "Inter",
		FontSize:        24,
		Color:           "#FFFFFF",
		BackgroundColor: "#000000",
		Position:        "bottom",
	}
}

// CaptionSegment is a time-ranged caption
type CaptionSegment struct {
	ID        string        `json:"id"`
	StartTime float64       `json:"start_time"`
	EndTime   float64       `json:"end_time"`
	Text      string        `json:"text"`
	Style     *CaptionStyle `json:"style,omitempty"`
}
