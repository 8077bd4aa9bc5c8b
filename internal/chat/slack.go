// Package chat serves the Slack Events API endpoint.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"pm-bot/backend/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"
)

const (
	StatusHint = "Try: 'status project <id>' or 'status task <id>'"

	maxBodyBytes   = 1 << 20
	eventTTL       = 10 * time.Minute
	processTimeout = 30 * time.Second
)

type Router interface {
	Route(ctx context.Context, text string) string
}

// Poster is the subset of *slack.Client used to reply.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Deduper reports whether an event id has been handled before. Slack
// retries deliveries it considers slow.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

type CacheDeduper struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewCacheDeduper(c cache.Cache) *CacheDeduper {
	return &CacheDeduper{cache: c, ttl: eventTTL}
}

func (d *CacheDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	stored, err := d.cache.SetNX(ctx, "slack:event:"+eventID, true, d.ttl)
	if err != nil {
		return false, err
	}
	return !stored, nil
}

type SlackHandler struct {
	signingSecret string
	router        Router
	poster        Poster
	dedup         Deduper
	logger        *zap.Logger

	baseCtx context.Context
	wg      sync.WaitGroup
}

type SlackConfig struct {
	// SigningSecret enables request signature checks when set.
	SigningSecret string
	Router        Router
	// Poster may be nil, in which case replies are only logged.
	Poster  Poster
	Deduper Deduper
	Logger  *zap.Logger
	// BaseContext bounds asynchronous event processing.
	BaseContext context.Context
}

func NewSlackHandler(config SlackConfig) *SlackHandler {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.BaseContext == nil {
		config.BaseContext = context.Background()
	}
	if config.Deduper == nil {
		config.Deduper = NewCacheDeduper(cache.NewMemoryOnlyCache(cache.NewMemoryCache()))
	}

	logger := config.Logger.Named("slack")
	if config.SigningSecret == "" {
		logger.Warn("slack signing secret not configured; request signatures are not verified")
	}

	return &SlackHandler{
		signingSecret: config.SigningSecret,
		router:        config.Router,
		poster:        config.Poster,
		dedup:         config.Deduper,
		logger:        logger,
		baseCtx:       config.BaseContext,
	}
}

// HandleEvents acknowledges Slack immediately and processes callbacks in the
// background.
func (h *SlackHandler) HandleEvents(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if h.signingSecret != "" {
		if err := h.verify(c.Request.Header, body); err != nil {
			h.logger.Warn("slack signature rejected", zap.String("remote_addr", c.ClientIP()), zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		// Unsupported inner event types still get an ack so Slack stops retrying.
		if event.Type == slackevents.CallbackEvent {
			h.logger.Debug("ignoring slack event", zap.Error(err))
			c.Status(http.StatusOK)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload", "details": err.Error()})
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"challenge": challenge.Challenge})

	case slackevents.CallbackEvent:
		if h.duplicate(c.Request.Context(), event) {
			c.Status(http.StatusOK)
			return
		}

		c.Status(http.StatusOK)

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			ctx, cancel := context.WithTimeout(h.baseCtx, processTimeout)
			defer cancel()
			h.dispatch(ctx, event.InnerEvent)
		}()

	default:
		c.Status(http.StatusOK)
	}
}

// Wait blocks until every in-flight event has been processed.
func (h *SlackHandler) Wait() {
	h.wg.Wait()
}

func (h *SlackHandler) verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}

func (h *SlackHandler) duplicate(ctx context.Context, event slackevents.EventsAPIEvent) bool {
	callback, ok := event.Data.(*slackevents.EventsAPICallbackEvent)
	if !ok || callback.EventID == "" {
		return false
	}

	seen, err := h.dedup.Seen(ctx, callback.EventID)
	if err != nil {
		// Processing twice beats dropping the event.
		h.logger.Warn("slack event dedup failed", zap.String("event_id", callback.EventID), zap.Error(err))
		return false
	}
	if seen {
		h.logger.Debug("duplicate slack event", zap.String("event_id", callback.EventID))
	}
	return seen
}

func (h *SlackHandler) dispatch(ctx context.Context, inner slackevents.EventsAPIInnerEvent) {
	switch ev := inner.Data.(type) {
	case *slackevents.AppMentionEvent:
		if ev.BotID != "" {
			return
		}
		reply := h.router.Route(ctx, stripMentions(ev.Text))
		h.reply(ctx, ev.Channel, threadTS(ev.ThreadTimeStamp, ev.TimeStamp), reply)

	case *slackevents.MessageEvent:
		// Mentions arrive again as app_mention; answer them once.
		if ev.BotID != "" || ev.SubType != "" || strings.Contains(ev.Text, "<@") {
			return
		}
		if strings.Contains(strings.ToLower(ev.Text), "status") {
			h.reply(ctx, ev.Channel, threadTS(ev.ThreadTimeStamp, ev.TimeStamp), StatusHint)
		}
	}
}

func (h *SlackHandler) reply(ctx context.Context, channel, thread, text string) {
	if h.poster == nil {
		h.logger.Info("slack reply (no bot token)", zap.String("channel", channel), zap.String("text", text))
		return
	}

	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if thread != "" {
		opts = append(opts, slack.MsgOptionTS(thread))
	}

	if _, _, err := h.poster.PostMessageContext(ctx, channel, opts...); err != nil {
		h.logger.Error("failed to post slack reply", zap.String("channel", channel), zap.Error(fmt.Errorf("post message: %w", err)))
	}
}

// threadTS replies inside an existing thread or starts one on the message.
func threadTS(thread, ts string) string {
	if thread != "" {
		return thread
	}
	return ts
}

// stripMentions removes <@U123> and <@U123|name> tokens.
func stripMentions(text string) string {
	for {
		start := strings.Index(text, "<@")
		if start < 0 {
			break
		}
		end := strings.Index(text[start:], ">")
		if end < 0 {
			break
		}
		text = text[:start] + " " + text[start+end+1:]
	}
	return strings.Join(strings.Fields(text), " ")
}
