package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// Activity sinks selectable in config.
const (
	SinkDB   = "db"
	SinkAMQP = "amqp"
	SinkBoth = "both"
)

// Request headers carrying the learner's calendar.
const (
	HeaderLocalDate = "X-Local-Date"
	HeaderTimezone  = "X-Timezone"
)

// Context keys set by middleware.
const (
	ContextUserKey   = "user"
	ContextConfigKey = "config"
)
