package websocket

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/stretchr/testify/require"
)

func TestHandlerWithLogsIncCounter(t *testing.T) {
	h := HandlerWithLogs(&ViewerHandler{}, time.Second).(*handlerWithLogs)
	defer h.Close()

	h.incCounter("frame")
	require.Equal(t, 1, h.counter["frame"])
}

func TestHandlerWithLogsLogSummary(t *testing.T) {
	testClientID := "test-viewer"
	h := HandlerWithLogs(&ViewerHandler{clientID: testClientID}, time.Second).(*handlerWithLogs)
	defer h.Close()

	h.incCounter("frame")
	h.incCounter("frame")
	h.incCounter("stats")

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	h.logSummary()
	require.Empty(t, h.counter)

	logString := b.String()
	clientIDTag := fmt.Sprintf(`"%s":"%s"`, logs.ClientIDTag, testClientID)
	require.Contains(t, logString, `"frame":2`)
	require.Contains(t, logString, `"stats":1`)
	require.Contains(t, logString, clientIDTag)
	require.Contains(t, logString, "inbound message summary")
}

func TestHandlerWithLogsSkipsEmptySummary(t *testing.T) {
	h := HandlerWithLogs(&ViewerHandler{}, time.Second).(*handlerWithLogs)
	defer h.Close()

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	h.logSummary()
	require.Empty(t, b.String())
}

func TestHandlerWithLogsStartSummaryWorker(t *testing.T) {
	var wg sync.WaitGroup
	var once sync.Once

	var mutex sync.Mutex
	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		fmt.Fprint(&b, e)
		once.Do(wg.Done)
	})

	wg.Add(1)
	h := HandlerWithLogs(&ViewerHandler{}, time.Millisecond).(*handlerWithLogs)
	defer h.Close()

	// No summary is logged until a counter is incremented.
	h.incCounter("ping")

	wg.Wait()

	mutex.Lock()
	defer mutex.Unlock()
	require.Contains(t, b.String(), `"ping":1`)
}
