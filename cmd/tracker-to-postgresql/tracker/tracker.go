package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	defaultPageSize  = 100
	defaultPageDelay = 200 * time.Millisecond

	// Fixed custom-field ids on the tracker side. A project query always
	// carries the service-line filter; product and team are optional.
	serviceLineFieldID = 21
	productFieldID     = 19
	teamFieldID        = 23

	// Epics are a dedicated tracker type on the remote side.
	epicTrackerID = 6
)

// Config is the explicit configuration for the tracker client. It is
// assembled from the environment once in main and injected here; the client
// never reads process-wide state.
type Config struct {
	BaseURL   string
	APIKey    string
	PageSize  int
	PageDelay time.Duration
}

// Validate fails fast on missing credentials so that no network call is
// ever issued with an incomplete configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("tracker base URL is not configured")
	}
	if c.APIKey == "" {
		return errors.New("tracker API key is not configured")
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.PageDelay <= 0 {
		c.PageDelay = defaultPageDelay
	}
	return nil
}

// Client performs read-only, paginated retrieval against the tracker HTTP
// API. It has no side effects on the remote service.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}, nil
}

// RawReference is a nested {id, name} object on a tracker record.
type RawReference struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CustomField is the tracker's generic extensibility mechanism: an
// id-or-label addressed attribute whose value is loosely typed.
type CustomField struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// RawProject is one project as returned by GET /projects.json.
type RawProject struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Identifier   string        `json:"identifier"`
	Parent       *RawReference `json:"parent,omitempty"`
	Status       int           `json:"status"`
	CreatedOn    string        `json:"created_on"`
	CustomFields []CustomField `json:"custom_fields"`
}

// RawWorkItem is one issue as returned by GET /issues.json.
type RawWorkItem struct {
	ID             int64         `json:"id"`
	Subject        string        `json:"subject"`
	Status         RawReference  `json:"status"`
	EstimatedHours float64       `json:"total_estimated_hours"`
	SpentHours     float64       `json:"total_spent_hours"`
	Project        RawReference  `json:"project"`
	CustomFields   []CustomField `json:"custom_fields"`
}

type projectsEnvelope struct {
	Projects   []RawProject `json:"projects"`
	TotalCount int          `json:"total_count"`
}

type issuesEnvelope struct {
	Issues     []RawWorkItem `json:"issues"`
	TotalCount int           `json:"total_count"`
}

// ProjectQuery narrows a project fetch. The service-line filter is always
// applied on top of it.
type ProjectQuery struct {
	Product *string
	Team    *string
}

func (q ProjectQuery) values() url.Values {
	v := url.Values{}
	v.Set(fmt.Sprintf("cf_%d", serviceLineFieldID), "1")
	if q.Product != nil {
		v.Set(fmt.Sprintf("cf_%d", productFieldID), *q.Product)
	}
	if q.Team != nil {
		v.Set(fmt.Sprintf("cf_%d", teamFieldID), *q.Team)
	}
	return v
}

// FetchProjectsPage retrieves one page of projects and the remote total
// count. The API key travels as a query parameter on this resource.
func (c *Client) FetchProjectsPage(ctx context.Context, query ProjectQuery, limit int, offset int) ([]RawProject, int, error) {
	v := query.values()
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	v.Set("key", c.cfg.APIKey)

	body, err := c.get(ctx, "/projects.json", v, false)
	if err != nil {
		return nil, 0, err
	}
	var envelope projectsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("failed to decode projects page: %w", err)
	}
	return envelope.Projects, envelope.TotalCount, nil
}

// FetchAllProjects pages through the full project collection. maxTotal > 0
// caps the number of records retrieved (bounded test-mode runs); 0 means
// unbounded.
func (c *Client) FetchAllProjects(ctx context.Context, query ProjectQuery, maxTotal int) ([]RawProject, error) {
	var all []RawProject
	offset := 0
	for {
		page, total, err := c.FetchProjectsPage(ctx, query, c.cfg.PageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if maxTotal > 0 && len(all) >= maxTotal {
			all = all[:maxTotal]
			zap.S().Debugf("Project fetch stopped at configured cap of %d records", maxTotal)
			break
		}
		if len(page) == 0 || offset+c.cfg.PageSize >= total {
			break
		}
		offset += len(page)
		// Pause between pages to stay under the tracker's implicit rate
		// limit. The final page is not followed by a pause.
		time.Sleep(c.cfg.PageDelay)
	}
	return all, nil
}

// FetchWorkItemsPage retrieves one page of a project's epics. The API key
// travels as a request header on this resource; status_id=* includes
// closed items.
func (c *Client) FetchWorkItemsPage(ctx context.Context, projectID int64, limit int, offset int) ([]RawWorkItem, int, error) {
	v := url.Values{}
	v.Set("project_id", strconv.FormatInt(projectID, 10))
	v.Set("tracker_id", strconv.Itoa(epicTrackerID))
	v.Set("status_id", "*")
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))

	body, err := c.get(ctx, "/issues.json", v, true)
	if err != nil {
		return nil, 0, err
	}
	var envelope issuesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("failed to decode issues page: %w", err)
	}
	return envelope.Issues, envelope.TotalCount, nil
}

// FetchAllWorkItems pages through every epic of one project.
func (c *Client) FetchAllWorkItems(ctx context.Context, projectID int64) ([]RawWorkItem, error) {
	var all []RawWorkItem
	offset := 0
	for {
		page, total, err := c.FetchWorkItemsPage(ctx, projectID, c.cfg.PageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || offset+c.cfg.PageSize >= total {
			break
		}
		offset += len(page)
		time.Sleep(c.cfg.PageDelay)
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, headerAuth bool) ([]byte, error) {
	requestURL := fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	if headerAuth {
		req.Header.Set("X-Redmine-API-Key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tracker request to %s failed: %w", path, err)
	}
	defer func(body io.ReadCloser) {
		if errC := body.Close(); errC != nil {
			zap.S().Warnf("Failed to close response body: %s", errC)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("tracker returned HTTP %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}
