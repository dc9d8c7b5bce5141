package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AuditFile is the file inside the audit directory the consumer appends to.
const AuditFile = "orders.log"

// AuditConsumer binds AuditQueue to every cafe event and appends one line
// per message to <dir>/orders.log.
type AuditConsumer struct {
    URL string
    Dir string
    Log *slog.Logger
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled. Messages that cannot be handled are rejected without
// requeue so a bad payload cannot spin the loop.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("audit-consumer: dial failed", slog.String("error", err.Error()), slog.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("audit-consumer: consume loop ended, reconnecting", slog.String("error", err.Error()))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("audit-consumer: set QoS failed", slog.String("error", err.Error()))
    }
    if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }
    q, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    for _, key := range []string{"order.*", "table.*"} {
        if err := ch.QueueBind(q.Name, key, Exchange, false, nil); err != nil {
            return fmt.Errorf("bind %s: %w", key, err)
        }
    }

    msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    for d := range msgs {
        if err := AppendAudit(c.Dir, d.Body); err != nil {
            c.Log.Error("audit-consumer: handle message failed", slog.String("error", err.Error()))
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// AppendAudit decodes one envelope and appends its audit line to dir.
func AppendAudit(dir string, body []byte) error {
    var env struct {
        ID         string          `json:"id"`
        Event      string          `json:"event"`
        Data       json.RawMessage `json:"data"`
        OccurredAt string          `json:"occurred_at"`
    }
    if err := json.Unmarshal(body, &env); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if env.Event == "" {
        return errors.New("envelope without event")
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, AuditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(auditLine(env.OccurredAt, env.Event, env.ID, env.Data)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func auditLine(at, event, id string, data json.RawMessage) string {
    var fields struct {
        ID        string  `json:"_id"`
        OrderID   string  `json:"orderId"`
        TableID   string  `json:"tableId"`
        TableName string  `json:"tableName"`
        Status    string  `json:"status"`
        OrderType string  `json:"orderType"`
        Amount    float64 `json:"amount"`
    }
    _ = json.Unmarshal(data, &fields)

    switch event {
    case "newOrder":
        return fmt.Sprintf("[%s] %s | id=%s | order_id=%s | type=%s | amount=%.2f | status=%s\n",
            at, event, id, fields.ID, fields.OrderType, fields.Amount, fields.Status)
    case "orderStatusUpdate":
        return fmt.Sprintf("[%s] %s | id=%s | order_id=%s | status=%s\n", at, event, id, fields.OrderID, fields.Status)
    case "tableUpdated":
        return fmt.Sprintf("[%s] %s | id=%s | table_id=%s | table=%q | status=%s | order_id=%s\n",
            at, event, id, fields.TableID, fields.TableName, fields.Status, fields.OrderID)
    }
    return fmt.Sprintf("[%s] %s | id=%s | data=%s\n", at, event, id, data)
}
