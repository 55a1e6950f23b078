package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coldreach/autoreply/pkg/types"
	"github.com/rs/zerolog/log"
)

const gmailAPIBase = "https://gmail.googleapis.com/gmail/v1"

// GmailProvider implements MailProvider against the Gmail REST API.
// Self-sent messages are excluded server-side via the -from:me query.
type GmailProvider struct {
	httpClient  *http.Client
	apiBase     string
	selfAddress string
	fetchLimit  int
}

// NewGmailProvider creates a Gmail adapter for the linked account
func NewGmailProvider(selfAddress string, fetchLimit int) *GmailProvider {
	if fetchLimit <= 0 {
		fetchLimit = 10
	}
	return &GmailProvider{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiBase:     gmailAPIBase,
		selfAddress: selfAddress,
		fetchLimit:  fetchLimit,
	}
}

func (g *GmailProvider) Name() types.ProviderName {
	return types.ProviderGmail
}

func (g *GmailProvider) SelfAddress() string {
	return g.selfAddress
}

// ListCandidates fetches the latest messages excluding our own, then
// filters to those received strictly after horizon
func (g *GmailProvider) ListCandidates(ctx context.Context, creds *types.Credentials, horizon time.Time) ([]types.MessageCandidate, error) {
	path := fmt.Sprintf("/users/me/messages?maxResults=%d&q=%s", g.fetchLimit, url.QueryEscape("-from:me"))

	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := g.get(ctx, creds, path, &list); err != nil {
		return nil, types.NewProviderError(types.ProviderGmail, types.ProviderErrFetch, "list messages", err)
	}

	var candidates []types.MessageCandidate
	for _, msg := range list.Messages {
		var meta struct {
			ID           string `json:"id"`
			InternalDate string `json:"internalDate"`
		}
		if err := g.get(ctx, creds, fmt.Sprintf("/users/me/messages/%s?format=minimal", msg.ID), &meta); err != nil {
			return nil, types.NewProviderError(types.ProviderGmail, types.ProviderErrFetch, "fetch message timestamp", err)
		}

		receivedAt, err := parseInternalDate(meta.InternalDate)
		if err != nil {
			log.Warn().Str("message_id", msg.ID).Str("internal_date", meta.InternalDate).Msg("gmail: unparseable internalDate, skipping")
			continue
		}

		if receivedAt.After(horizon) {
			candidates = append(candidates, types.MessageCandidate{
				ID:         msg.ID,
				Provider:   types.ProviderGmail,
				ReceivedAt: receivedAt,
			})
		}
	}

	return candidates, nil
}

// FetchDetail retrieves the sender and body content for one message
func (g *GmailProvider) FetchDetail(ctx context.Context, creds *types.Credentials, id string) (*types.MessageDetail, error) {
	var msg map[string]any
	if err := g.get(ctx, creds, fmt.Sprintf("/users/me/messages/%s?format=full", id), &msg); err != nil {
		return nil, types.NewProviderError(types.ProviderGmail, types.ProviderErrFetch, "fetch message detail", err)
	}

	detail := &types.MessageDetail{ID: id}

	if internalDate, ok := msg["internalDate"].(string); ok {
		if receivedAt, err := parseInternalDate(internalDate); err == nil {
			detail.ReceivedAt = receivedAt
		}
	}

	payload, _ := msg["payload"].(map[string]any)
	detail.Sender = headerValue(payload, "From")
	if detail.Sender == "" {
		detail.Sender = "[Unknown Sender]"
	}

	// Prefer the plain-text MIME part; fall back to the snippet
	detail.Content = extractMimePart(payload, "text/plain")
	if detail.Content == "" {
		detail.Content, _ = msg["snippet"].(string)
	}

	return detail, nil
}

// SendReply dispatches a reply via users.messages.send. Sending to the
// linked account's own address is a silent no-op.
func (g *GmailProvider) SendReply(ctx context.Context, creds *types.Credentials, recipient, text string) error {
	if isSelf(recipient, g.selfAddress) {
		log.Info().Str("recipient", recipient).Msg("gmail: not replying to own address")
		return nil
	}

	raw := fmt.Sprintf("To: %s\r\nSubject: Re: Your Email\r\n\r\n%s", recipient, text)
	body := map[string]string{
		"raw": base64.RawURLEncoding.EncodeToString([]byte(raw)),
	}

	if err := g.post(ctx, creds, "/users/me/messages/send", body); err != nil {
		kind := types.ProviderErrSend
		if isGmailRateLimit(err) {
			kind = types.ProviderErrRateLimited
		}
		return types.NewProviderError(types.ProviderGmail, kind, "send reply", err)
	}

	log.Info().Str("recipient", recipient).Msg("gmail: reply sent")
	return nil
}

func (g *GmailProvider) get(ctx context.Context, creds *types.Credentials, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", g.apiBase+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, creds, result)
}

func (g *GmailProvider) post(ctx context.Context, creds *types.Credentials, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, creds, nil)
}

func (g *GmailProvider) do(req *http.Request, creds *types.Credentials, result any) error {
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &apiError{status: resp.StatusCode, body: string(body)}
	}

	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// apiError carries the HTTP status and body for error translation
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.status, e.body)
}

func isGmailRateLimit(err error) bool {
	ae, ok := err.(*apiError)
	if !ok {
		return false
	}
	return ae.status == http.StatusTooManyRequests ||
		strings.Contains(ae.body, "rateLimitExceeded") ||
		strings.Contains(ae.body, "userRateLimitExceeded")
}

func parseInternalDate(internalDate string) (time.Time, error) {
	millis, err := strconv.ParseInt(internalDate, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}

// headerValue finds a header by name in a Gmail message payload
func headerValue(payload map[string]any, name string) string {
	headers, _ := payload["headers"].([]any)
	for _, h := range headers {
		header, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if n, _ := header["name"].(string); strings.EqualFold(n, name) {
			value, _ := header["value"].(string)
			return value
		}
	}
	return ""
}

// extractMimePart walks the MIME tree depth-first and returns the decoded
// body of the first part matching mimeType
func extractMimePart(payload map[string]any, mimeType string) string {
	if payload == nil {
		return ""
	}

	if mt, _ := payload["mimeType"].(string); mt == mimeType {
		if body, ok := payload["body"].(map[string]any); ok {
			if data, _ := body["data"].(string); data != "" {
				if decoded, err := decodeBase64URL(data); err == nil {
					return decoded
				}
			}
		}
	}

	parts, _ := payload["parts"].([]any)
	for _, p := range parts {
		if part, ok := p.(map[string]any); ok {
			if text := extractMimePart(part, mimeType); text != "" {
				return text
			}
		}
	}
	return ""
}

// decodeBase64URL handles both padded and unpadded URL-safe base64 as
// produced by the Gmail API
func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return "", err
		}
	}
	return string(decoded), nil
}
