package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestTimeQueryParsesRFC3339(t *testing.T) {
	c := queryContext(t, "from=2026-08-20T09:30:00Z")

	got := timeQuery(c, "from")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC), got.UTC())
}

func TestTimeQueryBareDateIsMidnight(t *testing.T) {
	c := queryContext(t, "from=2026-08-20")

	got := timeQuery(c, "from")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), got.UTC())
}

func TestUpperTimeQueryBareDateCoversWholeDay(t *testing.T) {
	c := queryContext(t, "to=2026-08-20")

	got := upperTimeQuery(c, "to")
	require.NotNil(t, got)

	// A run created any time during the named day satisfies created_at <= to.
	midDay := time.Date(2026, 8, 20, 14, 45, 0, 0, time.UTC)
	assert.False(t, midDay.After(*got))
	nextDay := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	assert.True(t, nextDay.After(*got))
}

func TestUpperTimeQueryKeepsExplicitTimestamp(t *testing.T) {
	c := queryContext(t, "to=2026-08-20T09:30:00Z")

	got := upperTimeQuery(c, "to")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC), got.UTC())
}

func TestTimeQueryAbsentOrMalformed(t *testing.T) {
	assert.Nil(t, timeQuery(queryContext(t, ""), "from"))
	assert.Nil(t, timeQuery(queryContext(t, "from=yesterday"), "from"))
	assert.Nil(t, upperTimeQuery(queryContext(t, "to=20-08-2026"), "to"))
}
