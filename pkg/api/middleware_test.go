package api

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kompromat/kompromat/pkg/log"
	"github.com/stretchr/testify/assert"
)

func TestRecovererWritesGenericError(t *testing.T) {
	h := recoverer(log.WithComponent("test"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Encountered unexpected server error"}`, w.Body.String())
}

func TestClientLimiterPerClient(t *testing.T) {
	l := newClientLimiter(0.001, 1)

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))
}

func TestClientLimiterConcurrentFirstRequestsShareBucket(t *testing.T) {
	const burst = 5
	l := newClientLimiter(0.001, burst)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if l.allow("a") {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, burst, allowed.Load())
}

func TestWriteVaultErrorHidesInternals(t *testing.T) {
	w := httptest.NewRecorder()
	writeVaultError(w, log.WithComponent("test"), assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}
