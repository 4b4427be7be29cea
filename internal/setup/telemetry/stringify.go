package telemetry

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// stringify renders an encoded zap field value as a span attribute.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		raw, err := sonic.MarshalString(v)
		if err == nil {
			return raw
		}
	}
	return fmt.Sprint(value)
}
