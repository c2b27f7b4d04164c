package service

import (
	"context"

	"desorientado_backend/internal/model"
)

type activityWriter interface {
	Create(ctx context.Context, log *model.ActivityLog) error
}

// DBActivitySink stores activity rows in the activity_logs table.
type DBActivitySink struct {
	Repo activityWriter
}

func NewDBActivitySink(repo activityWriter) *DBActivitySink {
	return &DBActivitySink{Repo: repo}
}

func (s *DBActivitySink) Name() string { return "db" }

func (s *DBActivitySink) Record(ctx context.Context, entry model.ActivityLog) error {
	return s.Repo.Create(ctx, &entry)
}

type jsonPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, data any) error
}

// AMQPActivitySink publishes activity to the broker with routing key
// "activity.<type>".
type AMQPActivitySink struct {
	Publisher jsonPublisher
}

func NewAMQPActivitySink(p jsonPublisher) *AMQPActivitySink {
	return &AMQPActivitySink{Publisher: p}
}

func (s *AMQPActivitySink) Name() string { return "amqp" }

func (s *AMQPActivitySink) Record(ctx context.Context, entry model.ActivityLog) error {
	return s.Publisher.PublishJSON(ctx, "activity."+entry.Type, entry)
}
