package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"time"
)

const deepgramURL = "https://api.deepgram.com/v1/listen"

type DeepgramConfig struct {
	APIKey   string
	BaseURL  string // пусто — api.deepgram.com
	Model    string
	Language string
}

// DeepgramClient — альтернативный Transcriber вместо Whisper.
type DeepgramClient struct {
	cfg    DeepgramConfig
	client *http.Client
}

func NewDeepgramClient(cfg DeepgramConfig) *DeepgramClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = deepgramURL
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &DeepgramClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *DeepgramClient) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	q := url.Values{}
	q.Set("model", c.cfg.Model)
	q.Set("smart_format", "true")
	if c.cfg.Language != "" {
		q.Set("language", c.cfg.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"?"+q.Encode(), audio)
	if err != nil {
		return "", err
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "audio/wav"
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepgram error: status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode deepgram: %w", err)
	}

	if len(parsed.Results.Channels) == 0 ||
		len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("empty transcript")
	}

	return parsed.Results.Channels[0].Alternatives[0].Transcript, nil
}
