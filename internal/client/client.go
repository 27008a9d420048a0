// internal/client/client.go
//
// HTTP client for the decisioning services. Each method maps to one remote
// call; none of them retry. Failures come back as AuthError, FetchError or
// SubmissionError so the workflows can tell them apart.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/kingrea/mortgage-portal/internal/config"
	"github.com/kingrea/mortgage-portal/internal/portal"
)

const maxResponseBytes int64 = 4 << 20

// Logger receives one trace line per request.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Endpoints holds the base URL of each collaborator.
type Endpoints struct {
	BorrowerHelper    string
	UnderwriterHelper string
	Letters           string
}

// EndpointsFromConfig reads the base URLs out of cfg.
func EndpointsFromConfig(cfg *config.Config) Endpoints {
	if cfg == nil {
		return Endpoints{
			BorrowerHelper:    config.DefaultBorrowerHelperURL,
			UnderwriterHelper: config.DefaultUnderwriterHelperURL,
			Letters:           config.DefaultLettersURL,
		}
	}
	return Endpoints{
		BorrowerHelper:    cfg.File.Services.BorrowerHelper,
		UnderwriterHelper: cfg.File.Services.UnderwriterHelper,
		Letters:           cfg.File.Services.Letters,
	}
}

// SingleEndpoint points every collaborator at the same base URL, which is
// how the stub backend is addressed.
func SingleEndpoint(base string) Endpoints {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	return Endpoints{BorrowerHelper: base, UnderwriterHelper: base, Letters: base}
}

// Client talks to the decisioning services.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	logger    Logger
	requestID func() string
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger overrides the default no-op trace logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestIDs allows tests to control X-Request-ID values.
func WithRequestIDs(next func() string) Option {
	return func(c *Client) {
		if next != nil {
			c.requestID = next
		}
	}
}

// New builds a client. timeout bounds each request end to end.
func New(endpoints Endpoints, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	c := &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
		logger:    nopLogger{},
		requestID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Authenticate exchanges credentials for an identity.
func (c *Client) Authenticate(ctx context.Context, creds portal.Credentials) (portal.Identity, error) {
	var identity portal.Identity
	body, err := json.Marshal(creds)
	if err != nil {
		return identity, &AuthError{Err: err}
	}
	endpoint := c.endpoints.UnderwriterHelper + "/underwriter-helper-service/login"
	if err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), "application/json", &identity); err != nil {
		return portal.Identity{}, &AuthError{Err: err}
	}
	return identity, nil
}

// ListBorrowers returns every application in backend order.
func (c *Client) ListBorrowers(ctx context.Context) ([]portal.BorrowerRecord, error) {
	var records []portal.BorrowerRecord
	endpoint := c.endpoints.BorrowerHelper + "/borrower-helper-service/borrowers"
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &records); err != nil {
		return nil, &FetchError{Op: "list borrowers", Err: err}
	}
	if records == nil {
		records = []portal.BorrowerRecord{}
	}
	return records, nil
}

// GetBorrower returns a single borrower's own record.
func (c *Client) GetBorrower(ctx context.Context, id portal.ID) (portal.BorrowerRecord, error) {
	var record portal.BorrowerRecord
	if id.Empty() {
		return record, &FetchError{Op: "get borrower", Err: errors.New("borrower id is required")}
	}
	endpoint := c.endpoints.BorrowerHelper + "/borrower-helper-service/borrower/" + url.PathEscape(id.String())
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &record); err != nil {
		return portal.BorrowerRecord{}, &FetchError{Op: "get borrower", Err: err}
	}
	return record, nil
}

// SubmitEligibility uploads doc as multipart field "file". The response body
// is ignored; callers re-fetch the borrower record instead.
func (c *Client) SubmitEligibility(ctx context.Context, email string, doc portal.Document) error {
	const op = "submit eligibility document"
	email = strings.TrimSpace(email)
	if email == "" {
		return &SubmissionError{Op: op, Err: errors.New("borrower email is required")}
	}
	body, contentType, err := multipartDocument(doc)
	if err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	endpoint := c.endpoints.BorrowerHelper + "/borrower-helper-service/borrower/" + url.PathEscape(email) + "/check-eligibility"
	if err := c.do(ctx, http.MethodPost, endpoint, body, contentType, nil); err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	return nil
}

// GetExplanation fetches the explanation report for a borrower.
func (c *Client) GetExplanation(ctx context.Context, borrowerID portal.ID) (*portal.ExplanationReport, error) {
	if borrowerID.Empty() {
		return nil, &FetchError{Op: "get explanation", Err: errors.New("borrower id is required")}
	}
	var report portal.ExplanationReport
	endpoint := c.endpoints.UnderwriterHelper + "/underwriter-helper-service/application-explanation/borrower/" + url.PathEscape(borrowerID.String())
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &report); err != nil {
		return nil, &FetchError{Op: "get explanation", Err: err}
	}
	return &report, nil
}

// SubmitDecision posts a manual override. Overrides without an explicit
// approved/rejected status never leave the process.
func (c *Client) SubmitDecision(ctx context.Context, override portal.DecisionOverride) error {
	const op = "submit manual decision"
	if err := override.Validate(); err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	body, err := json.Marshal(override)
	if err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	endpoint := c.endpoints.UnderwriterHelper + "/underwriter-helper-service/manual-decision-update"
	if err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), "application/json", nil); err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	return nil
}

// GenerateLetter asks the letter service for a fresh letter.
func (c *Client) GenerateLetter(ctx context.Context, borrowerID portal.ID) (portal.Letter, error) {
	const op = "generate letter"
	var letter portal.Letter
	if borrowerID.Empty() {
		return letter, &SubmissionError{Op: op, Err: errors.New("borrower id is required")}
	}
	endpoint := c.endpoints.Letters + "/underwriter/generate_letter/" + url.PathEscape(borrowerID.String())
	if err := c.do(ctx, http.MethodPost, endpoint, nil, "", &letter); err != nil {
		return portal.Letter{}, &SubmissionError{Op: op, Err: err}
	}
	if letter.ID.Empty() {
		return portal.Letter{}, &SubmissionError{Op: op, Err: errors.New("response is missing letter_id")}
	}
	return letter, nil
}

// UpdateLetter persists the letter text keyed by letter id.
func (c *Client) UpdateLetter(ctx context.Context, letter portal.Letter) error {
	const op = "update letter"
	if letter.ID.Empty() {
		return &SubmissionError{Op: op, Err: errors.New("letter id is required")}
	}
	body, err := json.Marshal(map[string]string{"letter_text": NormalizeLetterText(letter.Text)})
	if err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	endpoint := c.endpoints.Letters + "/underwriter/update_letter/" + url.PathEscape(letter.ID.String())
	if err := c.do(ctx, http.MethodPut, endpoint, bytes.NewReader(body), "application/json", nil); err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	return nil
}

// NormalizeLetterText folds edited text to NFC so visually identical letters
// persist identically.
func NormalizeLetterText(text string) string {
	return norm.NFC.String(text)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	requestID := c.requestID()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("%s %s id=%s error=%v", method, endpoint, requestID, err)
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.logger.Printf("%s %s id=%s status=%d elapsed=%s", method, endpoint, requestID, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Detail: detailFrom(data)}
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func multipartDocument(doc portal.Document) (io.Reader, string, error) {
	if strings.TrimSpace(doc.Path) == "" {
		return nil, "", errors.New("no document attached")
	}
	file, err := os.Open(doc.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open document: %w", err)
	}
	defer file.Close()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", doc.Name())
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("read document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
