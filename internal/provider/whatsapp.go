package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultGraphTimeout = 15 * time.Second
	maxMediaBytes       = 64 << 20
)

type textSendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type textSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type mediaLookupResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// GraphClient talks to the WhatsApp Business Graph API: outbound text via
// the phone-number messages endpoint, media via the two-step id-to-URL
// lookup followed by an authenticated download.
type GraphClient struct {
	client        *resty.Client
	baseURL       string
	token         string
	phoneNumberID string
}

var (
	_ TextSender   = (*GraphClient)(nil)
	_ MediaFetcher = (*GraphClient)(nil)
)

func NewGraphClient(baseURL, token, phoneNumberID string) (*GraphClient, error) {
	client := resty.New()
	client.SetTimeout(defaultGraphTimeout)
	client.SetRetryCount(0)

	return NewGraphClientWithClient(baseURL, token, phoneNumberID, client)
}

func NewGraphClientWithClient(baseURL, token, phoneNumberID string, client *resty.Client) (*GraphClient, error) {
	trimmedBase := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedBase == "" {
		return nil, fmt.Errorf("graph base url is required")
	}
	if _, err := url.ParseRequestURI(trimmedBase); err != nil {
		return nil, fmt.Errorf("invalid graph base url: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("graph api token is required")
	}
	if strings.TrimSpace(phoneNumberID) == "" {
		return nil, fmt.Errorf("phone number id is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGraphTimeout)
	}
	client.SetRetryCount(0)

	return &GraphClient{
		client:        client,
		baseURL:       trimmedBase,
		token:         strings.TrimSpace(token),
		phoneNumberID: strings.TrimSpace(phoneNumberID),
	}, nil
}

func (g *GraphClient) SendText(ctx context.Context, to string, body string) (*SendResponse, error) {
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("message body is required")
	}

	reqBody := textSendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	}

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(g.token).
		SetBody(reqBody).
		Post(fmt.Sprintf("%s/%s/messages", g.baseURL, g.phoneNumberID))
	if err != nil {
		return nil, &ProviderError{
			Message:   "text send request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if err := checkGraphStatus(response); err != nil {
		return nil, err
	}

	var parsed textSendResponse
	if err := json.Unmarshal(response.Body(), &parsed); err == nil && len(parsed.Messages) > 0 {
		return &SendResponse{MessageID: parsed.Messages[0].ID}, nil
	}
	return &SendResponse{}, nil
}

// FetchMedia resolves the media id to a short-lived download URL, then
// fetches the bytes with the same bearer credential.
func (g *GraphClient) FetchMedia(ctx context.Context, mediaID string) (*MediaContent, error) {
	if strings.TrimSpace(mediaID) == "" {
		return nil, fmt.Errorf("media id is required")
	}

	lookup, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(g.token).
		Get(fmt.Sprintf("%s/%s", g.baseURL, url.PathEscape(mediaID)))
	if err != nil {
		return nil, &ProviderError{
			Message:   "media lookup request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if err := checkGraphStatus(lookup); err != nil {
		return nil, err
	}

	var meta mediaLookupResponse
	if err := json.Unmarshal(lookup.Body(), &meta); err != nil {
		return nil, &ProviderError{Message: "media lookup returned malformed body", Cause: err}
	}
	if strings.TrimSpace(meta.URL) == "" {
		return nil, &ProviderError{Message: "media lookup returned no download url"}
	}

	download, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(g.token).
		Get(meta.URL)
	if err != nil {
		return nil, &ProviderError{
			Message:   "media download request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if err := checkGraphStatus(download); err != nil {
		return nil, err
	}

	data := download.Body()
	if len(data) == 0 {
		return nil, &ProviderError{Message: "media download returned empty body", Transient: true}
	}
	if len(data) > maxMediaBytes {
		return nil, &ProviderError{Message: fmt.Sprintf("media exceeds %d bytes", maxMediaBytes)}
	}

	mimeType := meta.MimeType
	if ct := strings.TrimSpace(download.Header().Get("Content-Type")); ct != "" {
		mimeType = ct
	}

	return &MediaContent{Data: data, MimeType: mimeType}, nil
}

func checkGraphStatus(response *resty.Response) error {
	if response == nil {
		return &ProviderError{Message: "provider returned empty response", Transient: true}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(response.String())
	return &ProviderError{
		StatusCode: statusCode,
		Message:    graphErrorMessage(statusCode, body),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func graphErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
