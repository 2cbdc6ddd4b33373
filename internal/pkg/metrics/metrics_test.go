package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(vaccinationsRecorded)
	RecordVaccination()
	assert.Equal(t, before+1, testutil.ToFloat64(vaccinationsRecorded))

	beforeCap := testutil.ToFloat64(recordRejections.WithLabelValues(ReasonCapacity))
	RejectRecord(ReasonCapacity)
	assert.Equal(t, beforeCap+1, testutil.ToFloat64(recordRejections.WithLabelValues(ReasonCapacity)))

	beforeErr := testutil.ToFloat64(eventsPublished.WithLabelValues("error"))
	EventPublished(errors.New("nats down"))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(eventsPublished.WithLabelValues("error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/ping", "204")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "vaxportal_http_requests_total"))
}
