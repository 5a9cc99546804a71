package http

import (
	"net/http"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

func (suite *HandlersTestSuite) TestMetrics() {
	suite.Run("labels requests by route pattern", func() {
		suite.useCaseMock.
			On("ResolveShortCode", mock.Anything, mock.Anything).
			Twice().
			Return(nil, entity.ErrLinkNotFound)

		suite.e.GET("/api/ping").Expect().Status(http.StatusOK)
		suite.e.GET("/first1").Expect().Status(http.StatusNotFound)
		suite.e.GET("/second").Expect().Status(http.StatusNotFound)

		suite.e.GET("/metrics").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains(`http_requests_total{method="GET",route="/api/ping",status="200"} 1`).
			Contains(`http_requests_total{method="GET",route="/{shortCode}",status="404"} 2`).
			Contains("http_request_duration_seconds_bucket").
			NotContains(`route="/first1"`)
	})
}
