package compose

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将合成结果的几何输出为 JSON，便于调试或可视化。位图本身不输出。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
