package extract

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// Tier is an Azure Computer Vision pricing tier.
type Tier string

const (
	TierFree     Tier = "F0"
	TierStandard Tier = "S1"
	TierUnknown  Tier = "unknown"
)

// TierLimits bounds a single Read request.
type TierLimits struct {
	MaxPages int
	MaxBytes int64
}

const mb = 1024 * 1024

var tierLimits = map[Tier]TierLimits{
	TierFree:     {MaxPages: 2, MaxBytes: 4 * mb},
	TierStandard: {MaxPages: 2000, MaxBytes: 500 * mb},
	// Unknown tiers get the free page limit and the paid size limit.
	TierUnknown: {MaxPages: 2, MaxBytes: 500 * mb},
}

// ParseTier maps a configured tier name, defaulting to TierUnknown.
func ParseTier(s string) Tier {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "F0":
		return TierFree
	case "S1":
		return TierStandard
	}
	return TierUnknown
}

// Limits returns the request limits for the tier.
func (t Tier) Limits() TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierUnknown]
}

// NeedsSplitting reports whether a document must be sent in page chunks.
func NeedsSplitting(size int64, pages int, tier Tier) bool {
	switch tier {
	case TierFree:
		return pages > 2 || size > 4*mb
	case TierStandard:
		return false
	}
	return pages > 2
}

// pageRanges splits 1..pages into "a-b" chunks of at most size pages.
func pageRanges(pages, size int) []string {
	if size <= 0 {
		size = 1
	}
	var out []string
	for start := 1; start <= pages; start += size {
		end := start + size - 1
		if end > pages {
			end = pages
		}
		if start == end {
			out = append(out, fmt.Sprintf("%d", start))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", start, end))
		}
	}
	return out
}

// AzureReadConfig configures AzureReadOCR.
type AzureReadConfig struct {
	Endpoint     string
	Key          string
	Tier         Tier
	PollInterval time.Duration
	MaxPolls     int
	Timeout      time.Duration
}

// AzureReadOCR recognizes text with the Computer Vision Read v3.2 API.
type AzureReadOCR struct {
	client *resty.Client
	cfg    AzureReadConfig
}

// NewAzureReadOCR builds the backend. Endpoint and key are required.
func NewAzureReadOCR(cfg AzureReadConfig) (*AzureReadOCR, error) {
	if cfg.Endpoint == "" || cfg.Key == "" {
		return nil, fmt.Errorf("azure read: endpoint and key are required")
	}
	if cfg.Tier == "" {
		cfg.Tier = TierUnknown
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetHeader("Ocp-Apim-Subscription-Key", cfg.Key).
		SetTimeout(cfg.Timeout)
	client.JSONMarshal = json.Marshal
	client.JSONUnmarshal = json.Unmarshal

	return &AzureReadOCR{client: client, cfg: cfg}, nil
}

func (a *AzureReadOCR) Name() string { return "azure-read" }

type readOperation struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []struct {
			Page  int `json:"page"`
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
}

// Recognize implements OCR.
func (a *AzureReadOCR) Recognize(ctx context.Context, doc Document) (string, error) {
	limits := a.cfg.Tier.Limits()
	if int64(len(doc.Data)) > limits.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes, tier %s allows %d", ErrDocumentTooLarge, len(doc.Data), a.cfg.Tier, limits.MaxBytes)
	}

	ranges := []string{""}
	if doc.Pages > 0 && NeedsSplitting(int64(len(doc.Data)), doc.Pages, a.cfg.Tier) {
		ranges = pageRanges(doc.Pages, limits.MaxPages)
		log.Printf("[OCR] azure-read: %s split into %d page ranges (tier %s)", doc.Filename, len(ranges), a.cfg.Tier)
	}

	var sb strings.Builder
	for _, pages := range ranges {
		text, err := a.read(ctx, doc.Data, pages)
		if err != nil {
			if pages != "" {
				return "", fmt.Errorf("pages %s: %w", pages, err)
			}
			return "", err
		}
		sb.WriteString(text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (a *AzureReadOCR) read(ctx context.Context, data []byte, pages string) (string, error) {
	req := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data)
	if pages != "" {
		req.SetQueryParam("pages", pages)
	}

	resp, err := req.Post("/vision/v3.2/read/analyze")
	if err != nil {
		return "", fmt.Errorf("azure read: submit: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("azure read: submit returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	location := resp.Header().Get("Operation-Location")
	if location == "" {
		return "", fmt.Errorf("azure read: no operation location returned")
	}

	for attempt := 0; attempt < a.cfg.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.cfg.PollInterval):
		}

		var op readOperation
		resp, err := a.client.R().SetContext(ctx).SetResult(&op).Get(location)
		if err != nil {
			return "", fmt.Errorf("azure read: poll: %w", err)
		}
		if resp.IsError() {
			return "", fmt.Errorf("azure read: poll returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
		}

		switch op.Status {
		case "succeeded":
			var sb strings.Builder
			for _, page := range op.AnalyzeResult.ReadResults {
				for _, line := range page.Lines {
					sb.WriteString(line.Text)
					sb.WriteByte('\n')
				}
			}
			return sb.String(), nil
		case "failed":
			return "", fmt.Errorf("azure read: analysis failed")
		}
	}
	return "", fmt.Errorf("azure read: timed out after %d polls", a.cfg.MaxPolls)
}
