package types

import "time"

const (
	FormatRGB565 = "RGB565"
	FormatJPEG   = "JPEG"
)

// RawFrame is a single uploaded camera frame. Width and Height come from
// request metadata, never from the payload itself.
type RawFrame struct {
	ID         string    `json:"id"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Format     string    `json:"format"`
	Order      string    `json:"order,omitempty"`
	Data       []byte    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
	Source     string    `json:"source"`
}

type RawMessage struct {
	Type  string
	Frame RawFrame
	Meta  map[string]any
}

// Recognition is what the classifier reports about a frame.
type Recognition struct {
	IsFood      bool    `json:"is_food"`
	Name        string  `json:"name,omitempty"`
	Category    string  `json:"category,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
	ExpiryDate  string  `json:"expiry_date,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	Description string  `json:"description,omitempty"`
	Error       string  `json:"error,omitempty"`
	RawResponse string  `json:"raw_response,omitempty"`
}

type Result struct {
	FrameID     string       `json:"frame_id"`
	Source      string       `json:"source"`
	Format      string       `json:"format"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	ByteOrder   string       `json:"byte_order,omitempty"`
	Pixels      int          `json:"pixels"`
	Fallback    bool         `json:"fallback"`
	SavedPath   string       `json:"saved_path,omitempty"`
	Recognition *Recognition `json:"recognition,omitempty"`
	Error       string       `json:"error,omitempty"`
	ProcessedAt time.Time    `json:"processed_at"`
}
