// Package model 定义持久化模型.
package model

import (
	"github.com/bytedance/sonic"
)

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{&Photo{}, &PhotoSource{}, &Link{}, &Gallery{}, &UploadToken{}}
}

// EncodeList 将字符串列表编码为 JSON 文本，nil 编码为 "[]".
func EncodeList(items []string) string {
	if items == nil {
		items = []string{}
	}

	b, err := sonic.Marshal(items)
	if err != nil {
		return "[]"
	}

	return string(b)
}

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}

	var out []string
	if err := sonic.UnmarshalString(raw, &out); err != nil {
		return nil
	}

	return out
}

// DecodeList 解码 EncodeList 的结果.
func DecodeList(raw string) []string { return decodeList(raw) }
