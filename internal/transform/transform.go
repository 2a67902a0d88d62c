package transform

import (
	"encoding/json"
	"errors"
	"fmt"

	"apod_etl/internal/models"
)

// ErrNotObject возвращается, если ответ API не является JSON-объектом.
var ErrNotObject = errors.New("apod payload is not a key-value object")

// Record строит models.Record из декодированного ответа APOD.
// Отсутствующие ключи и null превращаются в пустую строку; строки
// берутся как есть, прочие значения сериализуются в JSON.
func Record(payload any) (models.Record, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return models.Record{}, fmt.Errorf("%w: got %s", ErrNotObject, kind(payload))
	}

	return models.Record{
		Title:       field(obj, "title"),
		Explanation: field(obj, "explanation"),
		URL:         field(obj, "url"),
		Date:        field(obj, "date"),
		MediaType:   field(obj, "media_type"),
	}, nil
}

func field(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
