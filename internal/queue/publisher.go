package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/cafe-ordering/internal/metrics"
    "github.com/iliyamo/cafe-ordering/internal/realtime"
)

// Publisher keeps one connection and channel open and publishes events to
// the topic exchange from a background goroutine. It implements
// realtime.Notifier; Notify never blocks on the broker.
type Publisher struct {
    conn    *amqp.Connection
    ch      *amqp.Channel
    pending chan realtime.Event
    done    chan struct{}
    log     *slog.Logger
    metrics *metrics.Metrics
}

// NewPublisher dials url and declares Exchange.
func NewPublisher(url string, log *slog.Logger, m *metrics.Metrics) (*Publisher, error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, fmt.Errorf("dial rabbitmq: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("open channel: %w", err)
    }
    if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("declare exchange: %w", err)
    }
    p := &Publisher{
        conn:    conn,
        ch:      ch,
        pending: make(chan realtime.Event, 256),
        done:    make(chan struct{}),
        log:     log,
        metrics: m,
    }
    go p.run()
    return p, nil
}

// Notify queues ev. When the queue is full the event is not mirrored.
func (p *Publisher) Notify(ev realtime.Event) {
    select {
    case p.pending <- ev:
    default:
        p.failed(ev, fmt.Errorf("publish queue full"))
    }
}

func (p *Publisher) run() {
    defer close(p.done)
    for ev := range p.pending {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        err := p.publish(ctx, ev)
        cancel()
        if err != nil {
            p.failed(ev, err)
        }
    }
}

func (p *Publisher) publish(ctx context.Context, ev realtime.Event) error {
    body, err := json.Marshal(NewEnvelope(ev, time.Now()))
    if err != nil {
        return err
    }
    return p.ch.PublishWithContext(ctx, Exchange, RoutingKey(ev.Name), false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
}

func (p *Publisher) failed(ev realtime.Event, err error) {
    if p.metrics != nil {
        p.metrics.BrokerPublishErrors.Inc()
    }
    p.log.Warn("rabbitmq: publish failed", slog.String("event", ev.Name), slog.String("error", err.Error()))
}

// Close drains queued events and closes the channel and connection.
func (p *Publisher) Close() error {
    close(p.pending)
    <-p.done
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        return p.conn.Close()
    }
    return nil
}
