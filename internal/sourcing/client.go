package sourcing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/metrics"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const rfxComponents = "RFX_SETTINGS;SUPPLIERS;BUYER_ATTACHMENTS;SELLER_ATTACHMENTS"

// Client is the gateway to the remote sourcing platform
type Client interface {
	CreateRfx(ctx context.Context, rfx Rfx) (*CreateUpdateRfxResponse, error)
	UpdateRfx(ctx context.Context, update *RfxUpdate) (*CreateUpdateRfxResponse, error)
	GetRfx(ctx context.Context, rfxID string) (*Rfx, error)
	UploadAttachment(ctx context.Context, update *RfxUpdate, fileName string, content io.Reader) error
	GetAttachment(ctx context.Context, fileID int64, fileName string) (*AttachmentPayload, error)
	PublishRfx(ctx context.Context, req PublishRfx) error
	// FindBuyerUser returns nil when the email has no remote buyer account
	FindBuyerUser(ctx context.Context, email string) (*BuyerUser, error)
}

type client struct {
	baseURL    string
	endpoints  config.EndpointsConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a sourcing platform client from configuration
func NewClient(cfg config.SourcingConfig) Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	base := &http.Client{
		Timeout:   timeout,
		Transport: newrelic.NewRoundTripper(transport),
	}

	httpClient := base
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
		httpClient.Timeout = timeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		endpoints:  cfg.Endpoints,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// CreateRfx creates a remote record from the configured template
func (c *client) CreateRfx(ctx context.Context, rfx Rfx) (*CreateUpdateRfxResponse, error) {
	return c.createUpdate(ctx, CreateUpdateRfx{OperationCode: OperationCreateFromTemplate, Rfx: rfx})
}

// UpdateRfx sends a staged partial update
func (c *client) UpdateRfx(ctx context.Context, update *RfxUpdate) (*CreateUpdateRfxResponse, error) {
	return c.createUpdate(ctx, update.Request())
}

func (c *client) createUpdate(ctx context.Context, body CreateUpdateRfx) (*CreateUpdateRfxResponse, error) {
	var resp CreateUpdateRfxResponse
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.Rfx, nil, body, &resp); err != nil {
		return nil, err
	}
	if err := checkReturn(body.OperationCode, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRfx fetches the full remote record
func (c *client) GetRfx(ctx context.Context, rfxID string) (*Rfx, error) {
	query := url.Values{"comps": {rfxComponents}}
	var rfx Rfx
	path := c.endpoints.Rfx + "/" + url.PathEscape(rfxID)
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &rfx); err != nil {
		return nil, err
	}
	return &rfx, nil
}

// UploadAttachment streams a file and its metadata envelope as multipart form data
func (c *client) UploadAttachment(ctx context.Context, update *RfxUpdate, fileName string, content io.Reader) error {
	envelope, err := json.Marshal(update.Request())
	if err != nil {
		return apperrors.Internal(err, "failed to marshal upload envelope")
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)
	go func() {
		err := writeUploadForm(form, envelope, fileName, content)
		pw.CloseWithError(err)
	}()

	var resp CreateUpdateRfxResponse
	err = c.do(ctx, http.MethodPost, c.endpoints.Rfx+"/attachments", nil, pr, form.FormDataContentType(), func(r *http.Response) error {
		return json.NewDecoder(r.Body).Decode(&resp)
	})
	if err != nil {
		return err
	}
	return checkReturn("upload", &resp)
}

func writeUploadForm(form *multipart.Writer, envelope []byte, fileName string, content io.Reader) error {
	if err := form.WriteField("data", string(envelope)); err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return form.Close()
}

// GetAttachment downloads a single attachment
func (c *client) GetAttachment(ctx context.Context, fileID int64, fileName string) (*AttachmentPayload, error) {
	query := url.Values{
		"fileId":   {strconv.FormatInt(fileID, 10)},
		"fileName": {fileName},
	}
	payload := &AttachmentPayload{FileName: fileName}
	err := c.do(ctx, http.MethodGet, c.endpoints.Rfx+"/attachment", query, nil, "", func(r *http.Response) error {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		payload.Data = data
		payload.ContentType = r.Header.Get("Content-Type")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// PublishRfx publishes the remote record
func (c *client) PublishRfx(ctx context.Context, req PublishRfx) error {
	var resp CreateUpdateRfxResponse
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.Publish, nil, req, &resp); err != nil {
		return err
	}
	return checkReturn("publish", &resp)
}

type subUsersResponse struct {
	ReturnCode    int    `json:"returnCode"`
	ReturnMessage string `json:"returnMessage"`
	CompanyID     string `json:"bravoId"`
	SubUsers      struct {
		SubUser []struct {
			UserID string `json:"userId"`
			Email  string `json:"email"`
		} `json:"subUser"`
	} `json:"subUsers"`
}

// FindBuyerUser looks the caller up among the buyer company's users
func (c *client) FindBuyerUser(ctx context.Context, email string) (*BuyerUser, error) {
	var resp subUsersResponse
	query := url.Values{"email": {email}}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoints.BuyerProfile, query, nil, &resp); err != nil {
		return nil, err
	}
	for _, u := range resp.SubUsers.SubUser {
		if strings.EqualFold(u.Email, email) {
			return &BuyerUser{UserID: u.UserID, CompanyID: resp.CompanyID, Email: u.Email}, nil
		}
	}
	return nil, nil
}

func (c *client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Internal(err, "failed to marshal remote request")
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, reader, contentType, func(r *http.Response) error {
		if out == nil {
			return nil
		}
		return json.NewDecoder(r.Body).Decode(out)
	})
}

func (c *client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, decode func(*http.Response) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.External(err, "remote platform call %s %s not attempted", method, path)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return apperrors.Internal(err, "failed to create remote request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GetMetricsCollector().RecordRemoteCall("sourcing", false, time.Since(start))
		return apperrors.External(err, "remote platform call %s %s failed", method, path)
	}
	defer resp.Body.Close()
	metrics.GetMetricsCollector().RecordRemoteCall("sourcing", resp.StatusCode < 300, time.Since(start))

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Remote platform call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apperrors.External(nil, "remote platform returned %d for %s %s: %s",
			resp.StatusCode, method, path, strings.TrimSpace(string(msg)))
	}

	if err := decode(resp); err != nil {
		return apperrors.External(err, "failed to decode remote platform response for %s %s", method, path)
	}
	return nil
}

func checkReturn(operation string, resp *CreateUpdateRfxResponse) error {
	if resp.ReturnCode != 0 || resp.ReturnMessage != ReturnMessageOK {
		return apperrors.External(nil, "remote platform rejected %s: returnCode=%d returnMessage=%s",
			operation, resp.ReturnCode, resp.ReturnMessage)
	}
	return nil
}
