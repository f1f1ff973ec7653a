package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CertificateEmail asks the delivery function to synthesize a PDF and mail it.
// Either HTML (pre-rendered markup) or TemplateURL must be set.
type CertificateEmail struct {
	Recipient         string `json:"recipient"`
	ParticipantName   string `json:"participant_name"`
	ProgramName       string `json:"program_name"`
	CertificateNumber string `json:"certificate_number"`
	CertificateType   string `json:"certificate_type"`
	HTML              string `json:"html,omitempty"`
	TemplateURL       string `json:"template_url,omitempty"`
}

// QREmail asks the QR function to generate a code image and mail it.
type QREmail struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Code  string `json:"code"`
}

// GenerateRequest renders a certificate image server-side.
type GenerateRequest struct {
	TemplateURL     string `json:"template_url"`
	ParticipantName string `json:"participant_name"`
	ProgramName     string `json:"program_name"`
}

// GenerateResult carries the rendered document URL.
type GenerateResult struct {
	URL string `json:"url"`
}

// Client calls the three serverless email/PDF functions.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set, calls succeed without hitting the
// network, which keeps dev environments mail-free.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // PDF synthesis can take a while
		},
	}
}

// SendCertificate delivers a rendered certificate by email.
func (c *Client) SendCertificate(ctx context.Context, req CertificateEmail) error {
	if c.Skip {
		return nil
	}
	if req.Recipient == "" {
		return fmt.Errorf("recipient required")
	}
	if req.HTML == "" && req.TemplateURL == "" {
		return fmt.Errorf("html or template url required")
	}
	return c.post(ctx, "/send-certificate", req, nil)
}

// SendQR delivers a participant's scan code by email.
func (c *Client) SendQR(ctx context.Context, req QREmail) error {
	if c.Skip {
		return nil
	}
	if req.Email == "" || req.Code == "" {
		return fmt.Errorf("email and code required")
	}
	return c.post(ctx, "/send-qr", req, nil)
}

// GenerateImage renders a certificate document and returns its URL.
func (c *Client) GenerateImage(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if c.Skip {
		return &GenerateResult{URL: "https://example.invalid/certificate.png"}, nil
	}
	var out GenerateResult
	if err := c.post(ctx, "/generate-certificate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks if the function host is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("mailer unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mailer unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("mailer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailer error %s: %s", resp.Status, string(snippet))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
