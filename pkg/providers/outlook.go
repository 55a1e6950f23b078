package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coldreach/autoreply/pkg/types"
	"github.com/rs/zerolog/log"
)

const graphAPIBase = "https://graph.microsoft.com/v1.0"

// Graph has no "not from me" query filter, so self-sent messages and the
// eligibility horizon are both filtered client-side after listing.
const outlookListFields = "id,from,receivedDateTime"

// OutlookProvider implements MailProvider against the Microsoft Graph API
type OutlookProvider struct {
	httpClient  *http.Client
	apiBase     string
	selfAddress string
	fetchLimit  int
}

// NewOutlookProvider creates an Outlook adapter for the linked account
func NewOutlookProvider(selfAddress string, fetchLimit int) *OutlookProvider {
	if fetchLimit <= 0 {
		fetchLimit = 10
	}
	return &OutlookProvider{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		apiBase:     graphAPIBase,
		selfAddress: selfAddress,
		fetchLimit:  fetchLimit,
	}
}

func (o *OutlookProvider) Name() types.ProviderName {
	return types.ProviderOutlook
}

func (o *OutlookProvider) SelfAddress() string {
	return o.selfAddress
}

type graphMessage struct {
	ID               string `json:"id"`
	ReceivedDateTime string `json:"receivedDateTime"`
	BodyPreview      string `json:"bodyPreview"`
	Body             struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	From struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
}

// ListCandidates fetches the latest messages and filters out our own and
// anything received at or before horizon
func (o *OutlookProvider) ListCandidates(ctx context.Context, creds *types.Credentials, horizon time.Time) ([]types.MessageCandidate, error) {
	params := url.Values{}
	params.Set("$top", fmt.Sprintf("%d", o.fetchLimit))
	params.Set("$orderby", "receivedDateTime desc")
	params.Set("$select", outlookListFields)

	var resp struct {
		Value []graphMessage `json:"value"`
	}
	if err := o.get(ctx, creds, "/me/messages?"+params.Encode(), &resp); err != nil {
		return nil, types.NewProviderError(types.ProviderOutlook, types.ProviderErrFetch, "list messages", err)
	}

	var candidates []types.MessageCandidate
	for _, msg := range resp.Value {
		receivedAt, err := time.Parse(time.RFC3339, msg.ReceivedDateTime)
		if err != nil {
			log.Warn().Str("message_id", msg.ID).Str("received", msg.ReceivedDateTime).Msg("outlook: unparseable receivedDateTime, skipping")
			continue
		}
		if !receivedAt.After(horizon) {
			continue
		}
		if isSelf(msg.From.EmailAddress.Address, o.selfAddress) {
			continue
		}

		candidates = append(candidates, types.MessageCandidate{
			ID:         msg.ID,
			Provider:   types.ProviderOutlook,
			ReceivedAt: receivedAt,
		})
	}

	return candidates, nil
}

// FetchDetail retrieves the sender and body content for one message
func (o *OutlookProvider) FetchDetail(ctx context.Context, creds *types.Credentials, id string) (*types.MessageDetail, error) {
	var msg graphMessage
	if err := o.get(ctx, creds, "/me/messages/"+url.PathEscape(id), &msg); err != nil {
		return nil, types.NewProviderError(types.ProviderOutlook, types.ProviderErrFetch, "fetch message detail", err)
	}

	detail := &types.MessageDetail{
		ID:      id,
		Sender:  msg.From.EmailAddress.Address,
		Content: msg.Body.Content,
	}
	if detail.Content == "" {
		detail.Content = msg.BodyPreview
	}
	if receivedAt, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
		detail.ReceivedAt = receivedAt
	}

	return detail, nil
}

// SendReply dispatches a reply via /me/sendMail. Sending to the linked
// account's own address is a silent no-op. A daily send-limit error from
// Graph surfaces as a rate-limited failure.
func (o *OutlookProvider) SendReply(ctx context.Context, creds *types.Credentials, recipient, text string) error {
	if isSelf(recipient, o.selfAddress) {
		log.Info().Str("recipient", recipient).Msg("outlook: not replying to own address")
		return nil
	}

	body := map[string]any{
		"message": map[string]any{
			"subject": "Re: Your Email",
			"body": map[string]any{
				"contentType": "Text",
				"content":     text,
			},
			"toRecipients": []map[string]any{
				{"emailAddress": map[string]any{"address": recipient}},
			},
		},
	}

	if err := o.post(ctx, creds, "/me/sendMail", body); err != nil {
		kind := types.ProviderErrSend
		if isOutlookRateLimit(err) {
			kind = types.ProviderErrRateLimited
		}
		return types.NewProviderError(types.ProviderOutlook, kind, "send reply", err)
	}

	log.Info().Str("recipient", recipient).Msg("outlook: reply sent")
	return nil
}

func (o *OutlookProvider) get(ctx context.Context, creds *types.Credentials, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", o.apiBase+path, nil)
	if err != nil {
		return err
	}
	return o.do(req, creds, result)
}

func (o *OutlookProvider) post(ctx context.Context, creds *types.Credentials, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return o.do(req, creds, nil)
}

func (o *OutlookProvider) do(req *http.Request, creds *types.Credentials, result any) error {
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
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

func isOutlookRateLimit(err error) bool {
	ae, ok := err.(*apiError)
	if !ok {
		return false
	}
	return ae.status == http.StatusTooManyRequests ||
		strings.Contains(ae.body, "ErrorExceededMessageLimit")
}
