package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"fridgecam-go/internal/types"
)

// Classifier recognizes an ingredient in a JPEG image.
type Classifier interface {
	Classify(ctx context.Context, jpeg []byte) (types.Recognition, error)
}

var ErrMissingBaseURL = errors.New("missing classifier url")

type HTTPClassifier struct {
	URL    string
	Client *http.Client
}

func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClassifier{
		URL:    strings.TrimRight(url, "/"),
		Client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, jpeg []byte) (types.Recognition, error) {
	if c.URL == "" {
		return types.Recognition{}, ErrMissingBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(jpeg))
	if err != nil {
		return types.Recognition{}, err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	resp, err := c.Client.Do(req)
	if err != nil {
		return types.Recognition{}, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.Recognition{}, fmt.Errorf("classifier read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.Recognition{}, fmt.Errorf("classifier returned http_%d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return ParseResponse(string(body)), nil
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseResponse pulls the first JSON object out of a free-text model reply.
// Unparsable replies become a non-food recognition carrying the raw text.
func ParseResponse(text string) types.Recognition {
	candidate := jsonObject.FindString(text)
	if candidate == "" {
		candidate = text
	}
	var wire struct {
		IsFood      bool     `json:"is_food"`
		Name        *string  `json:"name"`
		Category    *string  `json:"category"`
		Quantity    *float64 `json:"quantity"`
		ExpiryDate  *string  `json:"expiry_date"`
		Brand       *string  `json:"brand"`
		Description string   `json:"description"`
	}
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		return types.Recognition{
			Error:       "failed to parse classifier response",
			RawResponse: text,
		}
	}
	if !wire.IsFood {
		desc := wire.Description
		if desc == "" {
			desc = "Not a food item"
		}
		return types.Recognition{Description: desc, RawResponse: text}
	}
	rec := types.Recognition{
		IsFood:     true,
		Name:       deref(wire.Name),
		Category:   deref(wire.Category),
		Quantity:   1,
		ExpiryDate: deref(wire.ExpiryDate),
		Brand:      deref(wire.Brand),
	}
	if wire.Quantity != nil && *wire.Quantity > 0 {
		rec.Quantity = *wire.Quantity
	}
	if rec.ExpiryDate == "null" {
		rec.ExpiryDate = ""
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MockClassifier answers from a fixed set of recognitions, chosen by a hash
// of the image so the same bytes always give the same answer.
type MockClassifier struct{}

var mockResponses = []types.Recognition{
	{IsFood: true, Name: "Apple", Category: "Fresh Produce", Quantity: 1, ExpiryDate: "2024-04-10"},
	{IsFood: true, Name: "Milk", Category: "Dairy and Eggs", Quantity: 1, ExpiryDate: "2024-03-25", Brand: "Organic Valley"},
	{IsFood: true, Name: "Bread", Category: "Grains/Baked Goods", Quantity: 1, ExpiryDate: "2024-03-22", Brand: "Wonder"},
}

func (MockClassifier) Classify(_ context.Context, jpeg []byte) (types.Recognition, error) {
	h := fnv.New32a()
	_, _ = h.Write(jpeg)
	return mockResponses[h.Sum32()%uint32(len(mockResponses))], nil
}
