package db

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/quillpress/internal/docstore"
)

// 文档集合名称
const (
	CollectionUsers       = "users"
	CollectionPosts       = "posts"
	CollectionCategories  = "categories"
	CollectionMedia       = "media"
	CollectionCredentials = "credentials"
)

// stringField returns "" for missing, null or non-string values.
func stringField(doc docstore.Document, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

// boolField coerces the stored value into a strict boolean.
func boolField(doc docstore.Document, key string) bool {
	switch v := doc[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

func int64Field(doc docstore.Document, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func stringsField(doc docstore.Document, key string) []string {
	switch v := doc[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

func mapField(doc docstore.Document, key string) map[string]any {
	switch v := doc[key].(type) {
	case map[string]any:
		return v
	case docstore.Document:
		return v
	default:
		return nil
	}
}

// NormalizeTimestamp 把文档中的时间字段转换为 time.Time：
// 时间值原样返回，数字按 Unix 秒解释，RFC 3339 字符串会被解析，其余情况回退到 now。
func NormalizeTimestamp(v any, now time.Time) time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return now.UTC()
		}
		return t.UTC()
	case int64:
		return time.Unix(t, 0).UTC()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return now.UTC()
		}
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t)); err == nil {
			return parsed.UTC()
		}
		// naive ISO timestamps written without a zone are UTC
		if parsed, err := time.Parse("2006-01-02T15:04:05.999999999", strings.TrimSpace(t)); err == nil {
			return parsed.UTC()
		}
	}
	return now.UTC()
}
