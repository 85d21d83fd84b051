// client.go contains the http side of scraping, it knows nothing about the
// structure of the pages it fetches.

package precons

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"precon-scraper/internal/components/assert"
	"precon-scraper/internal/components/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch = "client.fetch"
)

// ErrFetchStatus is returned when the server responds with a non-2xx status.
var ErrFetchStatus = errors.New("unexpected response status")

type ClientOptions struct {
	// BaseUrl restricts redirects to its host, it is usually the listing url.
	BaseUrl string
	// Timeout is applied to every request, 0 means 30 seconds.
	Timeout time.Duration
	// Retries is the amount of times a request that timed out or got a 5xx
	// response is retried.
	Retries int
	// RequestsPerSecond limits the request rate over the whole client, 0
	// means 2.
	RequestsPerSecond float64
	// DisableCloudflareBypass keeps the default http transport, tests use this
	// to talk to plain httptest servers.
	DisableCloudflareBypass bool
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("precons_scraper", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}

	httpClient := resty.New()
	if !opts.DisableCloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	httpClient.SetRetryCount(opts.Retries)
	httpClient.SetRetryWaitTime(time.Second)
	httpClient.SetRetryMaxWaitTime(time.Second * 10)
	httpClient.AddRetryCondition(shouldRetry)

	// max burst >= rate just means that no requests will be dropped
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		BaseUrl: baseUrl,
		Http:    httpClient,
		tel:     tel,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// only timeouts and server errors are worth trying again, anything else will
// fail the same way the next time.
func shouldRetry(res *resty.Response, err error) bool {
	if err != nil {
		return isTimeout(err)
	}
	return res != nil && res.StatusCode() >= 500
}

// Fetch returns the raw body of the page at link.
func (c *Client) Fetch(ctx context.Context, link string) ([]byte, error) {
	c.tel.ReportDebug(report_client_fetch, link)

	res, err := c.Http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", link, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch %s: %w: %s", link, ErrFetchStatus, res.Status())
	}
	return res.Body(), nil
}

// FetchDocument fetches and parses the page at link.
func (c *Client) FetchDocument(ctx context.Context, link string) (*goquery.Document, error) {
	body, err := c.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		c.tel.ReportBroken(
			report_client_fetch,
			fmt.Errorf("parse: %w", err),
			link,
		)
		return nil, fmt.Errorf("parse %s: %w", link, err)
	}
	return doc, nil
}
