package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

// Safe conversion helpers for values coming back from the Neo4j driver.
// Numeric properties may arrive as int64 or float64 depending on how they
// were written, so every accessor tolerates both.

func collectRecords(v any) []*db.Record {
	if v == nil {
		return nil
	}
	switch r := v.(type) {
	case []*db.Record:
		return r
	case *db.Record:
		return []*db.Record{r}
	default:
		return nil
	}
}

func recordValue(record *db.Record, key string) any {
	value, found := record.Get(key)
	if !found {
		return nil
	}
	return value
}

func recordString(record *db.Record, key string) string {
	return asString(recordValue(record, key))
}

func recordFloat(record *db.Record, key string) float64 {
	return asFloat(recordValue(record, key))
}

func recordInt(record *db.Record, key string) int64 {
	return asInt64(recordValue(record, key))
}

func recordList(record *db.Record, key string) []any {
	list, ok := recordValue(record, key).([]any)
	if !ok {
		return nil
	}
	return list
}

func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
