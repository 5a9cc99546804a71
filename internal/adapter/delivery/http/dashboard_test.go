package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

func (suite *HandlersTestSuite) TestDashboard() {
	suite.Run("no links", func() {
		suite.useCaseMock.
			On("ListLinks", mock.Anything).
			Once().
			Return([]*entity.Link{}, nil)

		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			HasContentType("text/html").
			Body().
			Contains("Create a new link").
			Contains("No links created yet.")
	})

	suite.Run("lists links", func() {
		suite.useCaseMock.
			On("ListLinks", mock.Anything).
			Once().
			Return([]*entity.Link{suite.link}, nil)

		body := suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			Body()

		body.Contains("/abc123")
		body.Contains(`data-copy="` + suite.server.URL + `/abc123"`)
		body.Contains(`data-delete="abc123"`)
		body.Contains(`href="/code/abc123"`)
		body.Contains("https://example.com")
		body.NotContains("No links created yet.")
	})

	suite.Run("escapes destination", func() {
		link := &entity.Link{
			ID:          uuid.New(),
			ShortCode:   "xss123",
			OriginalURL: `https://example.com/?q=<script>alert(1)</script>`,
			CreatedAt:   time.Now(),
		}

		suite.useCaseMock.
			On("ListLinks", mock.Anything).
			Once().
			Return([]*entity.Link{link}, nil)

		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			Body().
			NotContains("<script>alert(1)</script>").
			Contains("&lt;script&gt;")
	})

	suite.Run("server error", func() {
		suite.useCaseMock.
			On("ListLinks", mock.Anything).
			Once().
			Return(nil, suite.errUnknown)

		suite.e.GET("/").
			Expect().
			Status(http.StatusInternalServerError)
	})
}

func (suite *HandlersTestSuite) TestStatsPage() {
	suite.Run("link not found", func() {
		suite.useCaseMock.
			On("GetLink", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrLinkNotFound)

		suite.e.GET("/code/abc123").
			Expect().
			Status(http.StatusNotFound).
			HasContentType("text/html").
			Body().Contains("404 - Not Found")
	})

	suite.Run("server error", func() {
		suite.useCaseMock.
			On("GetLink", mock.Anything, "abc123").
			Once().
			Return(nil, suite.errUnknown)

		suite.e.GET("/code/abc123").
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		suite.useCaseMock.
			On("GetLink", mock.Anything, "abc123").
			Once().
			Return(suite.link, nil)

		suite.e.GET("/code/abc123").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("Link statistics").
			Contains("<strong>5</strong>").
			Contains(`href="https://example.com"`).
			Contains(suite.server.URL + "/abc123")
	})

	suite.Run("never clicked", func() {
		link := *suite.link
		link.LinkStats = entity.LinkStats{}

		suite.useCaseMock.
			On("GetLink", mock.Anything, "abc123").
			Once().
			Return(&link, nil)

		suite.e.GET("/code/abc123").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("<strong>0</strong>").
			Contains("<strong>Never</strong>")
	})
}

func TestNewLinkView(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	lastClicked := now.Add(-5 * time.Minute)

	view := newLinkView("https://sho.rt", &entity.Link{
		ShortCode:   "abc123",
		OriginalURL: "https://example.com",
		LinkStats: entity.LinkStats{
			Clicks:      2,
			LastClicked: &lastClicked,
		},
		CreatedAt: now.Add(-48 * time.Hour),
	}, now)

	assert.Equal(t, "https://sho.rt/abc123", view.ShortURL)
	assert.Equal(t, int64(2), view.Clicks)
	assert.Equal(t, "5 minutes ago", view.LastClicked)
	assert.Equal(t, "2 days ago", view.Created)
}

func TestRequestBaseURL(t *testing.T) {
	t.Run("plain http", func(t *testing.T) {
		r, _ := http.NewRequest(http.MethodGet, "http://sho.rt/", nil)

		assert.Equal(t, "http://sho.rt", requestBaseURL(r))
	})

	t.Run("behind tls proxy", func(t *testing.T) {
		r, _ := http.NewRequest(http.MethodGet, "http://sho.rt/", nil)
		r.Header.Set("X-Forwarded-Proto", "https")

		assert.Equal(t, "https://sho.rt", requestBaseURL(r))
	})
}
