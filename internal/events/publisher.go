package events

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"product-sync-service/internal/models"
)

// SubjectSyncCompleted is published after every processed catalog upload
const SubjectSyncCompleted = "product.sync.completed"

// SyncCompletedEvent summarizes a finished catalog sync run for downstream
// consumers (search indexers, storefront cache warmers)
type SyncCompletedEvent struct {
	EventType      string    `json:"event_type"`
	Filename       string    `json:"filename"`
	RowCount       int       `json:"row_count"`
	Created        int       `json:"created"`
	StockUpdated   int       `json:"stock_updated"`
	StockUnchanged int       `json:"stock_unchanged"`
	ErrorCount     int       `json:"error_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher emits sync lifecycle events over NATS
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS using NATS_URL
func NewPublisher(logger *logrus.Logger) (*Publisher, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		return nil, fmt.Errorf("NATS_URL not set")
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("product-sync-publisher"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:   conn,
		logger: logger.WithField("component", "events.publisher"),
	}, nil
}

// PublishSyncCompleted emits the run summary asynchronously. Event delivery is
// best effort and never blocks or fails the HTTP response.
func (p *Publisher) PublishSyncCompleted(filename string, rowCount int, result *models.SyncResult) {
	if p == nil || p.conn == nil {
		return
	}

	event := SyncCompletedEvent{
		EventType:      SubjectSyncCompleted,
		Filename:       filename,
		RowCount:       rowCount,
		Created:        result.Created,
		StockUpdated:   result.StockUpdated,
		StockUnchanged: result.StockUnchanged,
		ErrorCount:     result.ErrorCount,
		Timestamp:      time.Now(),
	}

	go func() {
		data, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal sync completed event")
			return
		}
		if err := p.conn.Publish(SubjectSyncCompleted, data); err != nil {
			p.logger.WithError(err).Error("Failed to publish sync completed event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"filename":  filename,
			"row_count": rowCount,
			"created":   result.Created,
		}).Info("Published sync completed event")
	}()
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
