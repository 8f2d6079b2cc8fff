package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, baseURL string) *Client {
	c, err := NewClient(Config{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		PageSize:  2,
		PageDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestConfigValidation(t *testing.T) {
	helper.InitTestLogging()

	_, err := NewClient(Config{APIKey: "key"})
	assert.ErrorContains(t, err, "base URL")

	_, err = NewClient(Config{BaseURL: "http://tracker.local"})
	assert.ErrorContains(t, err, "API key")

	c, err := NewClient(Config{BaseURL: "http://tracker.local", APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, c.cfg.PageSize)
	assert.Equal(t, defaultPageDelay, c.cfg.PageDelay)
}

func TestFetchAllProjectsPaginates(t *testing.T) {
	helper.InitTestLogging()

	var requestedOffsets []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "1", r.URL.Query().Get("cf_21"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		requestedOffsets = append(requestedOffsets, offset)

		page := projectsEnvelope{TotalCount: 5}
		for i := offset; i < offset+2 && i < 5; i++ {
			page.Projects = append(page.Projects, RawProject{
				ID:   int64(i + 1),
				Name: fmt.Sprintf("Project %d", i+1),
			})
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	projects, err := c.FetchAllProjects(context.Background(), ProjectQuery{}, 0)
	require.NoError(t, err)
	assert.Len(t, projects, 5)
	assert.Equal(t, []int{0, 2, 4}, requestedOffsets)
	assert.Equal(t, int64(5), projects[4].ID)
}

func TestFetchAllProjectsHonorsCap(t *testing.T) {
	helper.InitTestLogging()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := projectsEnvelope{TotalCount: 100}
		for i := offset; i < offset+2; i++ {
			page.Projects = append(page.Projects, RawProject{ID: int64(i + 1)})
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	projects, err := c.FetchAllProjects(context.Background(), ProjectQuery{}, 3)
	require.NoError(t, err)
	assert.Len(t, projects, 3)
}

func TestFetchAllProjectsForwardsFilters(t *testing.T) {
	helper.InitTestLogging()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Abbaco", r.URL.Query().Get("cf_19"))
		assert.Equal(t, "Norte", r.URL.Query().Get("cf_23"))
		_ = json.NewEncoder(w).Encode(projectsEnvelope{TotalCount: 0})
	}))
	defer srv.Close()

	product := "Abbaco"
	team := "Norte"
	c := testClient(t, srv.URL)
	_, err := c.FetchAllProjects(context.Background(), ProjectQuery{Product: &product, Team: &team}, 0)
	require.NoError(t, err)
}

func TestFetchAbortsOnHTTPError(t *testing.T) {
	helper.InitTestLogging()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.FetchAllProjects(context.Background(), ProjectQuery{}, 0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "403")
}

func TestFetchWorkItemsUsesHeaderAuth(t *testing.T) {
	helper.InitTestLogging()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/issues.json", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Redmine-API-Key"))
		assert.Equal(t, "100", r.URL.Query().Get("project_id"))
		assert.Equal(t, "*", r.URL.Query().Get("status_id"))

		_ = json.NewEncoder(w).Encode(issuesEnvelope{
			TotalCount: 1,
			Issues: []RawWorkItem{{
				ID:      42,
				Subject: "Fase 1",
				Status:  RawReference{Name: "In Progress"},
				Project: RawReference{ID: 100, Name: "Abbaco"},
			}},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	items, err := c.FetchAllWorkItems(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(42), items[0].ID)
	assert.Equal(t, "In Progress", items[0].Status.Name)
}
