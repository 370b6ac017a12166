package memorandum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/config"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/go-resty/resty/v2"
)

// PageSize is the page size used when a list is fetched in full.
const PageSize = memorandum.MaxPageLimit

// Client implements memorandum.Store over the REST API. Reads are retried on
// network faults and 5xx responses; mutations are sent exactly once.
type Client struct {
	reads  *resty.Client
	writes *resty.Client

	minJustificationLength int
	maxAttachments         int
}

var _ memorandum.Store = (*Client)(nil)

func NewClient(cfg config.ClientConfig, memo config.MemorandumConfig) *Client {
	c := &Client{
		reads:                  newRestyClient(cfg, cfg.RetryCount),
		writes:                 newRestyClient(cfg, 0),
		minJustificationLength: memo.MinJustificationLength,
		maxAttachments:         memo.MaxAttachmentsPerSubmit,
	}
	if c.minJustificationLength <= 0 {
		c.minJustificationLength = memorandum.DefaultMinJustificationLength
	}
	if c.maxAttachments <= 0 {
		c.maxAttachments = memorandum.DefaultMaxAttachments
	}
	return c
}

func newRestyClient(cfg config.ClientConfig, retries int) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/api/v1").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	if retries > 0 {
		c.SetRetryCount(retries).
			SetRetryWaitTime(100 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
			})
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
}

func (c *Client) execute(ctx context.Context, rc *resty.Client, cl call) (*resty.Response, error) {
	req := rc.R().SetContext(ctx)
	if cl.query != nil {
		req.SetQueryParamsFromValues(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		return nil, &memorandum.TransientError{Op: cl.op, Err: err}
	}
	if resp.IsError() {
		return nil, decodeError(cl.op, resp)
	}
	return resp, nil
}

// do runs cl and decodes the envelope's data into dst.
func (c *Client) do(ctx context.Context, rc *resty.Client, cl call, dst interface{}) error {
	resp, err := c.execute(ctx, rc, cl)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return &memorandum.TransientError{Op: cl.op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if dst == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return &memorandum.TransientError{Op: cl.op, Err: fmt.Errorf("failed to decode %s data: %w", cl.op, err)}
	}
	return nil
}

func memorandumPath(id string, suffix ...string) string {
	return "/memoranda/" + url.PathEscape(id) + strings.Join(suffix, "")
}

func (c *Client) mutation(ctx context.Context, op, path string, body interface{}) (memorandum.Memorandum, error) {
	var resp memorandum.MemorandumResponse
	if err := c.do(ctx, c.writes, call{op: op, method: http.MethodPost, path: path, body: body}, &resp); err != nil {
		return memorandum.Memorandum{}, err
	}
	return resp.ToMemorandum()
}

// ListForEmployee implements memorandum.Store. An empty employeeID lists the
// caller's own memoranda.
func (c *Client) ListForEmployee(ctx context.Context, employeeID string, filter memorandum.EmployeeFilter) ([]memorandum.Memorandum, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	path := "/memoranda/my"
	if employeeID != "" {
		path = "/employees/" + url.PathEscape(employeeID) + "/memoranda"
	}
	query := url.Values{}
	setQuery(query, "status", filter.Status)
	setQuery(query, "type", filter.Type)

	return c.listAll(ctx, "list employee memoranda", path, query)
}

// ListForAdmin implements memorandum.Store. It pages until the whole result
// is fetched.
func (c *Client) ListForAdmin(ctx context.Context, filter memorandum.AdminFilter) ([]memorandum.Memorandum, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	setQuery(query, "area_id", filter.AreaID)
	setQuery(query, "cargo_id", filter.CargoID)
	setQuery(query, "employee_id", filter.EmployeeID)
	setQuery(query, "status", filter.Status)
	setQuery(query, "type", filter.Type)
	setQuery(query, "start_date", filter.StartDate)
	setQuery(query, "end_date", filter.EndDate)

	return c.listAll(ctx, "list memoranda", "/memoranda", query)
}

func (c *Client) listAll(ctx context.Context, op, path string, query url.Values) ([]memorandum.Memorandum, error) {
	query.Set("limit", strconv.Itoa(PageSize))

	out := []memorandum.Memorandum{}
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))

		var list memorandum.ListMemorandumResponse
		if err := c.do(ctx, c.reads, call{op: op, method: http.MethodGet, path: path, query: query}, &list); err != nil {
			return nil, err
		}
		for _, r := range list.Memoranda {
			m, err := r.ToMemorandum()
			if err != nil {
				return nil, &memorandum.TransientError{Op: op, Err: err}
			}
			out = append(out, m)
		}

		if page >= list.TotalPages || len(list.Memoranda) == 0 {
			return out, nil
		}
	}
}

// Get implements memorandum.Store.
func (c *Client) Get(ctx context.Context, id string) (memorandum.Memorandum, error) {
	var resp memorandum.MemorandumResponse
	if err := c.do(ctx, c.reads, call{op: "get memorandum", method: http.MethodGet, path: memorandumPath(id)}, &resp); err != nil {
		return memorandum.Memorandum{}, err
	}
	return resp.ToMemorandum()
}

// History implements memorandum.Store.
func (c *Client) History(ctx context.Context, id string) ([]memorandum.TransitionEvent, error) {
	var resp []memorandum.EventResponse
	if err := c.do(ctx, c.reads, call{op: "memorandum history", method: http.MethodGet, path: memorandumPath(id, "/history")}, &resp); err != nil {
		return nil, err
	}

	events := make([]memorandum.TransitionEvent, 0, len(resp))
	for _, r := range resp {
		e, err := r.ToEvent(id)
		if err != nil {
			return nil, &memorandum.TransientError{Op: "memorandum history", Err: err}
		}
		events = append(events, e)
	}
	return events, nil
}

// SubmitEmployeeJustification implements memorandum.Store.
func (c *Client) SubmitEmployeeJustification(ctx context.Context, id string, req memorandum.SubmitJustificationRequest) (memorandum.Memorandum, error) {
	if err := req.Validate(c.minJustificationLength, c.maxAttachments); err != nil {
		return memorandum.Memorandum{}, err
	}
	req.Justification = strings.TrimSpace(req.Justification)
	return c.mutation(ctx, "submit justification", memorandumPath(id, "/justification"), req)
}

// SubmitAdminReview implements memorandum.Store.
func (c *Client) SubmitAdminReview(ctx context.Context, id string, req memorandum.SubmitReviewRequest) (memorandum.Memorandum, error) {
	if err := req.Validate(); err != nil {
		return memorandum.Memorandum{}, err
	}
	return c.mutation(ctx, "submit review", memorandumPath(id, "/review"), req)
}

// JustifyOnBehalf implements memorandum.Store.
func (c *Client) JustifyOnBehalf(ctx context.Context, id string, req memorandum.JustifyOnBehalfRequest) (memorandum.Memorandum, error) {
	if err := req.Validate(c.minJustificationLength, c.maxAttachments); err != nil {
		return memorandum.Memorandum{}, err
	}
	return c.mutation(ctx, "justify on behalf", memorandumPath(id, "/justify-on-behalf"), req)
}

// Close implements memorandum.Store.
func (c *Client) Close(ctx context.Context, id string, req memorandum.CloseRequest) (memorandum.Memorandum, error) {
	if err := req.Validate(); err != nil {
		return memorandum.Memorandum{}, err
	}
	return c.mutation(ctx, "close memorandum", memorandumPath(id, "/close"), req)
}

// GenerateDocument implements memorandum.Store.
func (c *Client) GenerateDocument(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.execute(ctx, c.reads, call{op: "generate document", method: http.MethodGet, path: memorandumPath(id, "/document")})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func setQuery(q url.Values, key string, v *string) {
	if v != nil && *v != "" {
		q.Set(key, *v)
	}
}
