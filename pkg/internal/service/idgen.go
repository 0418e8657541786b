package service

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// MaxCodeAttempts 生成链接码的最大尝试次数.
	MaxCodeAttempts = 20
)

// CodeGenerator 生成不与已有链接冲突的随机链接码.
type CodeGenerator struct {
	gen    func(length int) (string, error)
	exists func(ctx context.Context, code string) (bool, error)
}

// NewCodeGenerator exists 通常是 LinkResolver.Exists.
func NewCodeGenerator(exists func(ctx context.Context, code string) (bool, error)) *CodeGenerator {
	return &CodeGenerator{gen: RandomCode, exists: exists}
}

// WithSource 替换随机源，测试使用.
func (g *CodeGenerator) WithSource(gen func(length int) (string, error)) *CodeGenerator {
	return &CodeGenerator{gen: gen, exists: g.exists}
}

// NewUniqueCode 最多尝试 MaxCodeAttempts 次，全部冲突返回 ErrIdentifierExhausted.
func (g *CodeGenerator) NewUniqueCode(ctx context.Context, length int) (string, error) {
	for range MaxCodeAttempts {
		code, err := g.gen(length)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}

		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", storageFault("check code", err)
		}

		if !taken {
			return code, nil
		}
	}

	return "", ErrIdentifierExhausted
}

// RandomCode 62 字符字母表上的加密随机串.
func RandomCode(length int) (string, error) {
	return gonanoid.Generate(alphanumeric, length)
}
