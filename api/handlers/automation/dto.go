package automation

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// marshalJSON 将请求体里的不透明负载序列化为 jsonb 列值
func marshalJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
