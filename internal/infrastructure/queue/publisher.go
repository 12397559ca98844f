package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const orderConfirmedQueue = "order.confirmed"

// OrderConfirmedEvent は予約確定時に発行されるメッセージ
// メール配信などの下流コンシューマーがDBを参照せずに処理できる情報を含む
type OrderConfirmedEvent struct {
	SessionID   string         `json:"session_id"`
	Quantities  map[string]int `json:"quantities"` // ticket_type_id -> quantity
	TotalCount  int            `json:"total_count"`
	ConfirmedAt time.Time      `json:"confirmed_at"`
}

// Publisher は確定イベントをメッセージブローカーに発行する
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher はRabbitMQに接続し、耐久キューを宣言する
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("ブローカー接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("チャネル作成に失敗: %w", err)
	}
	if _, err := ch.QueueDeclare(orderConfirmedQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("キュー宣言に失敗: %w", err)
	}
	return &Publisher{conn: conn, channel: ch}, nil
}

// PublishOrderConfirmed は order.confirmed キューにイベントを発行する
func (p *Publisher) PublishOrderConfirmed(ctx context.Context, ev OrderConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("イベントのエンコードに失敗: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, "", orderConfirmedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("イベント発行に失敗: %w", err)
	}
	return nil
}

// Close は接続を閉じる
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
