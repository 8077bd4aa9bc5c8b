package chat

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"pm-bot/backend/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type fakeRouter struct {
	mu    sync.Mutex
	texts []string
}

func (r *fakeRouter) Route(_ context.Context, text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return "routed: " + text
}

type postedMessage struct {
	channel string
	text    string
	thread  string
}

type fakePoster struct {
	mu    sync.Mutex
	posts []postedMessage
	err   error
}

func (p *fakePoster) PostMessageContext(_ context.Context, channel string, options ...slack.MsgOption) (string, string, error) {
	_, values, err := slack.UnsafeApplyMsgOptions("xoxb-test", channel, "https://slack.com/api/", options...)
	if err != nil {
		return "", "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, postedMessage{channel: channel, text: values.Get("text"), thread: values.Get("thread_ts")})
	return channel, "1700000000.000100", p.err
}

func (p *fakePoster) messages() []postedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]postedMessage(nil), p.posts...)
}

func setupHandler(t *testing.T, secret string) (*gin.Engine, *SlackHandler, *fakeRouter, *fakePoster) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := &fakeRouter{}
	poster := &fakePoster{}
	handler := NewSlackHandler(SlackConfig{SigningSecret: secret, Router: router, Poster: poster})

	engine := gin.New()
	engine.POST("/slack/events", handler.HandleEvents)
	return engine, handler, router, poster
}

func signedRequest(t *testing.T, body []byte, secret string) *http.Request {
	t.Helper()

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", ts, body)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func callbackBody(eventID string, inner map[string]interface{}) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"token":      "ignored",
		"team_id":    "T1",
		"api_app_id": "A1",
		"type":       "event_callback",
		"event_id":   eventID,
		"event_time": 1700000000,
		"event":      inner,
	})
	return body
}

func mention(text string) map[string]interface{} {
	return map[string]interface{}{
		"type":     "app_mention",
		"user":     "U1",
		"text":     text,
		"ts":       "1700000000.000001",
		"channel":  "C1",
		"event_ts": "1700000000.000001",
	}
}

func TestHandleEvents_URLVerification(t *testing.T) {
	engine, _, _, _ := setupHandler(t, testSecret)

	body := []byte(`{"token":"x","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, signedRequest(t, body, testSecret))

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", resp["challenge"])
}

func TestHandleEvents_BadSignature(t *testing.T) {
	engine, _, router, _ := setupHandler(t, testSecret)

	body := callbackBody("Ev1", mention("<@UBOT> status project 1"))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, signedRequest(t, body, "wrong-secret"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, router.texts)
}

func TestHandleEvents_MissingSignatureHeaders(t *testing.T) {
	engine, _, _, _ := setupHandler(t, testSecret)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleEvents_AppMentionReplies(t *testing.T) {
	engine, handler, router, poster := setupHandler(t, testSecret)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, signedRequest(t, callbackBody("Ev1", mention("<@UBOT> status project 1")), testSecret))
	require.Equal(t, http.StatusOK, w.Code)

	handler.Wait()

	assert.Equal(t, []string{"status project 1"}, router.texts)
	posts := poster.messages()
	require.Len(t, posts, 1)
	assert.Equal(t, "C1", posts[0].channel)
	assert.Equal(t, "routed: status project 1", posts[0].text)
	assert.Equal(t, "1700000000.000001", posts[0].thread)
}

func TestHandleEvents_DuplicateEventProcessedOnce(t *testing.T) {
	engine, handler, router, _ := setupHandler(t, testSecret)
	body := callbackBody("EvDup", mention("<@UBOT> mark task 1 done"))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, signedRequest(t, body, testSecret))
		require.Equal(t, http.StatusOK, w.Code)
	}
	handler.Wait()

	assert.Len(t, router.texts, 1)
}

func TestHandleEvents_StatusMessageHint(t *testing.T) {
	engine, handler, router, poster := setupHandler(t, "")

	inner := map[string]interface{}{
		"type":    "message",
		"user":    "U2",
		"text":    "what's the Status of things?",
		"ts":      "1700000000.000002",
		"channel": "C2",
	}
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(callbackBody("Ev2", inner)))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	handler.Wait()

	assert.Empty(t, router.texts)
	posts := poster.messages()
	require.Len(t, posts, 1)
	assert.Equal(t, StatusHint, posts[0].text)
}

func TestHandleEvents_IgnoresBotMessages(t *testing.T) {
	engine, handler, _, poster := setupHandler(t, "")

	inner := map[string]interface{}{
		"type":    "message",
		"bot_id":  "B1",
		"text":    "status update",
		"ts":      "1700000000.000003",
		"channel": "C2",
	}
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(callbackBody("Ev3", inner)))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	handler.Wait()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, poster.messages())
}

func TestHandleEvents_InvalidJSON(t *testing.T) {
	engine, _, _, _ := setupHandler(t, "")

	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader([]byte(`not json`)))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type failingDeduper struct{}

func (failingDeduper) Seen(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestHandleEvents_DedupFailureStillProcesses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := &fakeRouter{}
	handler := NewSlackHandler(SlackConfig{Router: router, Poster: &fakePoster{}, Deduper: failingDeduper{}})
	engine := gin.New()
	engine.POST("/slack/events", handler.HandleEvents)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(callbackBody("Ev4", mention("hi"))))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	handler.Wait()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"hi"}, router.texts)
}

func TestStripMentions(t *testing.T) {
	assert.Equal(t, "status project 1", stripMentions("<@U123> status project 1"))
	assert.Equal(t, "hi there", stripMentions("hi <@U1|bot> there"))
	assert.Equal(t, "unterminated <@U1", stripMentions("unterminated <@U1"))
}

func TestCacheDeduper_ExpiredEventsAreSwept(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mem := cache.NewMemoryOnlyCache(cache.NewMemoryCacheWithClock(clock))
	mem.StartJanitor(time.Minute)
	defer mem.Close()

	dedup := NewCacheDeduper(mem)
	ctx := context.Background()
	for i := 0; i < 500; i++ {
		seen, err := dedup.Seen(ctx, fmt.Sprintf("Ev%d", i))
		require.NoError(t, err)
		require.False(t, seen)
	}
	require.Equal(t, 500, mem.L1().Len())

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	clock.Advance(eventTTL + time.Minute)
	assert.Eventually(t, func() bool { return mem.L1().Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}
