package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabi_chat_turns_total",
			Help: "Total number of chat turns by outcome (text, tool, error)",
		},
		[]string{"outcome"},
	)

	ChatTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabi_chat_turn_duration_seconds",
			Help:    "Duration of a chat turn including model and tool calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	ToolDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabi_tool_dispatch_total",
			Help: "Total number of tool dispatches by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	ToolDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tabi_tool_dispatch_duration_seconds",
			Help: "Duration of tool dispatch in seconds",
		},
		[]string{"tool"},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabi_provider_failures_total",
			Help: "Upstream search failures absorbed into empty results",
		},
		[]string{"domain"},
	)

	ProviderCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabi_provider_cache_hits_total",
			Help: "Search results served from cache",
		},
		[]string{"domain"},
	)

	WidgetsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabi_widgets_parsed_total",
			Help: "Widget blocks successfully extracted by the parser",
		},
		[]string{"kind"},
	)

	WidgetParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabi_widget_parse_failures_total",
			Help: "Widget blocks skipped because their payload was malformed",
		},
		[]string{"kind"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabi_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "status"},
	)

	AdapterMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabi_adapter_messages_total",
			Help: "Chat platform messages by adapter and outcome",
		},
		[]string{"adapter", "outcome"},
	)

	ConversationsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabi_conversations_pruned_total",
			Help: "Conversations removed by the retention job",
		},
	)
)
