package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"news_hub/internal/aggregator"
	"news_hub/internal/logger"
	"news_hub/internal/metrics"

	"github.com/samber/lo"
)

type Group string

const (
	GroupNews   Group = "news"
	GroupSystem Group = "system"
)

type action struct {
	name  string
	group Group
}

// Все действия протокола и их группы.
var actionTable = []action{
	{"get_latest_news", GroupNews},
	{"hot_news", GroupNews},
	{"search_news", GroupNews},
	{"get_feed_content", GroupNews},
	{"get_article_details", GroupNews},
	{"list_available_feeds", GroupSystem},
	{"health_check", GroupSystem},
}

// AllActions возвращает имена всех известных действий.
func AllActions() []string {
	return lo.Map(actionTable, func(a action, _ int) string { return a.name })
}

type handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Limits - ограничения, которые сервер применяет к запросам.
type Limits struct {
	DefaultArticleLimit int
	MaxArticlesPerFeed  int
	MaxSearchResults    int
}

// PublicConfig - часть конфигурации, которая отдаётся клиентам.
type PublicConfig struct {
	CacheEnabled        bool `json:"cache_enabled"`
	CacheDuration       int  `json:"cache_duration"`
	MaxArticlesPerFeed  int  `json:"max_articles_per_feed"`
	DefaultArticleLimit int  `json:"default_article_limit"`
	MaxSearchResults    int  `json:"max_search_results"`
	MaxFeedsPerRequest  int  `json:"max_feeds_per_request"`
}

type Options struct {
	ServerName string
	Version    string
	// Enabled - включённые действия. Пустой список - все.
	Enabled []string
	Limits  Limits
	Config  PublicConfig
	Now     func() time.Time
}

// Dispatcher направляет конверты обработчикам. Состояния между запросами нет.
type Dispatcher struct {
	engine   *aggregator.Engine
	handlers map[string]handler
	groups   map[string]Group
	enabled  []string
	opts     Options
}

func New(engine *aggregator.Engine, opts Options) *Dispatcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Limits.DefaultArticleLimit < 1 {
		opts.Limits.DefaultArticleLimit = 5
	}
	if opts.Limits.MaxArticlesPerFeed < 1 {
		opts.Limits.MaxArticlesPerFeed = 20
	}
	if opts.Limits.MaxSearchResults < 1 {
		opts.Limits.MaxSearchResults = 50
	}

	d := &Dispatcher{
		engine:   engine,
		handlers: make(map[string]handler),
		groups:   make(map[string]Group),
		opts:     opts,
	}

	all := map[string]handler{
		"get_latest_news":      d.latestNews,
		"hot_news":             d.latestNews,
		"search_news":          d.searchNews,
		"get_feed_content":     d.feedContent,
		"get_article_details":  d.articleDetails,
		"list_available_feeds": d.listFeeds,
		"health_check":         d.healthCheck,
	}

	wanted := lo.SliceToMap(opts.Enabled, func(name string) (string, bool) { return name, true })
	for _, name := range opts.Enabled {
		if _, ok := all[name]; !ok {
			logger.Log.WithField("action", name).Warn("Unknown action in enabled list, ignoring")
		}
	}

	for _, a := range actionTable {
		if len(wanted) > 0 && !wanted[a.name] {
			continue
		}
		d.handlers[a.name] = all[a.name]
		d.groups[a.name] = a.group
		d.enabled = append(d.enabled, a.name)
	}
	sort.Strings(d.enabled)

	logger.Log.WithField("actions", d.enabled).Info("Dispatcher ready")
	return d
}

// Enabled - отсортированный список включённых действий.
func (d *Dispatcher) Enabled() []string {
	return append([]string(nil), d.enabled...)
}

// Group возвращает группу действия.
func (d *Dispatcher) Group(action string) (Group, bool) {
	g, ok := d.groups[action]
	return g, ok
}

// DispatchBytes разбирает конверт и обрабатывает его. Для неразобранного
// конверта id и action берутся из тела, если это вообще JSON-объект,
// иначе id пустой.
func (d *Dispatcher) DispatchBytes(ctx context.Context, data []byte) Envelope {
	req, err := Decode(data)
	if err != nil {
		id, action := Salvage(data)
		logger.Log.WithError(err).WithField("request_id", id).Warn("Malformed envelope")
		return d.errorEnvelope(Envelope{ID: id, Action: action}, newRequestError("invalid envelope", map[string]any{"details": err.Error()}))
	}
	return d.Dispatch(ctx, req)
}

// Dispatch обрабатывает запрос. Любая ошибка, включая панику обработчика,
// возвращается как конверт типа error с тем же id.
func (d *Dispatcher) Dispatch(ctx context.Context, req Envelope) (resp Envelope) {
	log := logger.Log.WithFields(logger.Fields{
		"request_id": req.ID,
		"action":     req.Action,
	})
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Errorf("Handler panicked: %s", debug.Stack())
			resp = d.errorEnvelope(req, fmt.Errorf("internal error: %v", r))
		}
		d.record(req.Action, resp.Type)
		log.WithFields(logger.Fields{
			"type":     resp.Type,
			"duration": time.Since(started).String(),
		}).Info("Request handled")
	}()

	if req.Type != "" && req.Type != TypeRequest {
		return d.errorEnvelope(req, newRequestError(
			fmt.Sprintf("unsupported message type: %s", req.Type), nil))
	}

	h, ok := d.handlers[req.Action]
	if !ok {
		return d.errorEnvelope(req, newRequestError(
			fmt.Sprintf("unknown action: %s", req.Action),
			map[string]any{"available_actions": d.Enabled()},
		))
	}

	result, err := h(ctx, req.Payload)
	if err != nil {
		log.WithError(err).Warn("Request failed")
		return d.errorEnvelope(req, err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return d.errorEnvelope(req, fmt.Errorf("encode response: %w", err))
	}
	return Envelope{
		ID:      req.ID,
		Type:    TypeResponse,
		Action:  req.Action,
		Payload: payload,
		TS:      d.opts.Now().UTC(),
	}
}

func (d *Dispatcher) errorEnvelope(req Envelope, err error) Envelope {
	payload, mErr := json.Marshal(errorPayload(err))
	if mErr != nil {
		payload, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return Envelope{
		ID:      req.ID,
		Type:    TypeError,
		Action:  req.Action,
		Payload: payload,
		TS:      d.opts.Now().UTC(),
	}
}

func (d *Dispatcher) record(action string, typ MessageType) {
	if _, ok := d.handlers[action]; !ok {
		action = "unknown"
	}
	metrics.Requests.WithLabelValues(action, string(typ)).Inc()
}

func (d *Dispatcher) timestamp() string {
	return d.opts.Now().UTC().Format(time.RFC3339)
}

// clamp приводит limit к диапазону 1..ceiling. Отсутствующий или <= 0
// заменяется значением по умолчанию.
func clamp(limit *int, def, ceiling int) int {
	def = min(def, ceiling)
	if limit == nil || *limit <= 0 {
		return def
	}
	return min(*limit, ceiling)
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newRequestError("invalid payload", map[string]any{"details": err.Error()})
	}
	return nil
}
