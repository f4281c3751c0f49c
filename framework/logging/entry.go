package logging

import "time"

// Field is one structured key/value attached to an entry.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Entry is a single log event as seen by formatters, appenders and handlers.
type Entry struct {
	Time     time.Time
	Level    Level
	Logger   string
	Category string
	Message  string
	Fields   []Field
}
