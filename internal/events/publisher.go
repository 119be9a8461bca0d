package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/echolag-barista/server/internal/agent/analysis"
	"github.com/echolag-barista/server/internal/agent/graph"
	logx "github.com/echolag-barista/server/pkg/logger"
)

const (
	// SubjectTurnCompleted carries a graph.TurnEvent for every conversation turn.
	SubjectTurnCompleted = "echolag.turn.completed"
	// SubjectSessionAnalyzed carries an analysis.AnalysisEvent for every report served.
	SubjectSessionAnalyzed = "echolag.session.analyzed"
)

type Config struct {
	URL   string `envconfig:"NATS_URL"`
	Token string `envconfig:"NATS_TOKEN"`
}

// Enabled reports whether a NATS URL was configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher sends turn and analysis events to NATS. Failures are logged and
// never reach the request path.
type Publisher struct {
	conn conn
}

var (
	_ graph.TurnPublisher = (*Publisher)(nil)
	_ analysis.Publisher  = (*Publisher)(nil)
)

func NewPublisher(cfg Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("echolag-barista"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logx.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logx.Info().Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc}, nil
}

func (p *Publisher) PublishTurn(_ context.Context, evt graph.TurnEvent) {
	p.publish(SubjectTurnCompleted, evt)
}

func (p *Publisher) PublishAnalysis(_ context.Context, evt analysis.AnalysisEvent) {
	p.publish(SubjectSessionAnalyzed, evt)
}

func (p *Publisher) publish(subject string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		logx.Error().Err(err).Str("subject", subject).Msg("marshal event payload")
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		logx.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}

// Close flushes pending events and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
