package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"eduadmin_go/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthReport(t *testing.T) {
	t.Run("api reachable without db is degraded", func(t *testing.T) {
		api := newFakeAPI()
		report := NewHealthService("", "", api, nil, nil).GetHealthReport(context.Background())

		assert.Equal(t, overallStatusDegraded, report.Status)
		assert.Equal(t, defaultServiceName, report.Service)
		require.Len(t, report.Dependencies, 3)
		assert.Equal(t, "institute_api", report.Dependencies[0].Name)
		assert.Equal(t, dependencyStatusUp, report.Dependencies[0].Status)
		assert.Equal(t, dependencyStatusDisabled, report.Dependencies[1].Status)
		assert.Equal(t, dependencyStatusDisabled, report.Dependencies[2].Status)
	})

	t.Run("unreachable api is critical", func(t *testing.T) {
		api := newFakeAPI()
		api.getErr[apiHealthPath] = &utils.TransportError{Op: "GET /health", Err: errors.New("connection refused")}
		svc := NewHealthService("dash", "2.0.0", api, nil, nil)

		report := svc.GetHealthReport(context.Background())
		assert.Equal(t, overallStatusCritical, report.Status)
		assert.Equal(t, dependencyStatusDown, report.Dependencies[0].Status)
		assert.Contains(t, report.Dependencies[0].Error, "connection refused")
		assert.Equal(t, 503, svc.HTTPStatusForOverall(report.Status))
	})

	t.Run("missing client is critical", func(t *testing.T) {
		report := NewHealthService("", "", nil, nil, nil).GetHealthReport(context.Background())
		assert.Equal(t, overallStatusCritical, report.Status)
	})
}

func TestCombineStatus(t *testing.T) {
	assert.Equal(t, overallStatusDegraded, combineStatus(overallStatusOK, overallStatusDegraded))
	assert.Equal(t, overallStatusCritical, combineStatus(overallStatusCritical, overallStatusOK))
	assert.Equal(t, overallStatusOK, combineStatus(overallStatusOK, "weird"))
}

func TestHumanizeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Minute, "1h 30m"},
		{26*time.Hour + 5*time.Second, "1d 2h 5s"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, humanizeDuration(tc.in))
	}
}
