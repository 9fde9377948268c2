package etl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/BartekS5/tap-netsuite/pkg/logger"
	"github.com/BartekS5/tap-netsuite/pkg/models"
)

// DefaultEndpoints maps stream ids to SuiteTalk REST record types.
var DefaultEndpoints = map[string]string{
	"Customer":   "customer",
	"SalesOrder": "salesOrder",
}

const (
	defaultPageSize = 1000
	defaultTimeout  = 30 * time.Second
)

// NetSuiteConfig holds what the live source needs to reach the API.
type NetSuiteConfig struct {
	AccountID      string
	BaseURL        string // overrides the URL derived from AccountID
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
	PageSize       int
	Timeout        time.Duration
}

// BaseURLForAccount derives the REST record endpoint root for an account.
// Hostnames use lower case and dashes (1234567_SB1 -> 1234567-sb1).
func BaseURLForAccount(accountID string) string {
	host := strings.ToLower(strings.ReplaceAll(accountID, "_", "-"))
	return fmt.Sprintf("https://%s.suitetalk.api.netsuite.com/services/rest/record/v1/", host)
}

// NetSuiteSource fetches records from the SuiteTalk REST API with
// token-based (OAuth 1.0a, HMAC-SHA256) request signing.
type NetSuiteSource struct {
	baseURL   string
	client    *http.Client
	endpoints map[string]string
	pageSize  int
	log       *logger.Logger
}

func NewNetSuiteSource(ctx context.Context, cfg NetSuiteConfig, log *logger.Logger) *NetSuiteSource {
	base := cfg.BaseURL
	if base == "" {
		base = BaseURLForAccount(cfg.AccountID)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	oauthCfg := oauth1.Config{
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
		Realm:          strings.ToUpper(cfg.AccountID),
		Signer:         &oauth1.HMAC256Signer{ConsumerSecret: cfg.ConsumerSecret},
	}
	client := oauthCfg.Client(ctx, oauth1.NewToken(cfg.Token, cfg.TokenSecret))
	client.Timeout = cfg.Timeout
	if client.Timeout <= 0 {
		client.Timeout = defaultTimeout
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &NetSuiteSource{
		baseURL:   base,
		client:    client,
		endpoints: DefaultEndpoints,
		pageSize:  pageSize,
		log:       log,
	}
}

type listResponse struct {
	Items   []models.Record `json:"items"`
	HasMore bool            `json:"hasMore"`
	Offset  int             `json:"offset"`
	Count   int             `json:"count"`
}

// Fetch returns every record of the stream, following offset pagination
// until the API reports no more pages.
func (n *NetSuiteSource) Fetch(ctx context.Context, streamID string) ([]models.Record, error) {
	endpoint, ok := n.endpoints[streamID]
	if !ok {
		return nil, &SourceFetchError{Stream: streamID, Err: fmt.Errorf("no endpoint for stream")}
	}

	var records []models.Record
	offset := 0
	for {
		page, err := n.fetchPage(ctx, endpoint, offset)
		if err != nil {
			return nil, &SourceFetchError{Stream: streamID, Err: err}
		}
		records = append(records, page.Items...)
		n.log.Debugf("Fetched %d %s records at offset %d", len(page.Items), endpoint, offset)

		if !page.HasMore || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}
	return records, nil
}

func (n *NetSuiteSource) fetchPage(ctx context.Context, endpoint string, offset int) (*listResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(n.pageSize))
	q.Set("offset", strconv.Itoa(offset))
	target := n.baseURL + endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var page listResponse
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &page, nil
}
