// Package rule 提供结构体和字段验证功能的封装，基于 go-playground/validator 实现.
//
// 除内置规则外额外注册:
//   - shortcode: 链接码，字母数字，可带扩展名（例如 aB3xYz、d41d8cd98f00b204e9800998ecf8427e.png）
//   - fingerprint: md5 十六进制摘要的别名
package rule

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once

	shortCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,64}(\.[a-z0-9]{2,5})?$`)
)

// initValidator 尝试复用 gin 的 validator 引擎；若不可用则新建并注册 tag name 函数.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
			inst.SetTagName("rule")
			registerBuiltins(inst)

			return
		}
	}

	inst = validator.New()
	inst.SetTagName("rule")
	registerBuiltins(inst)
}

func registerBuiltins(v *validator.Validate) {
	_ = v.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return IsShortCode(fl.Field().String())
	})
	v.RegisterAlias("fingerprint", "len=32,md5")
}

// lazyInit 初始化全局 validator（幂等）.
func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate，若未初始化则先初始化.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 代理 RegisterValidation，确保已初始化.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidateStruct 对结构体执行完整校验.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("abc", "required,shortcode").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// RegisterAlias 包装 RegisterAlias，便于注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}

// IsShortCode 判断 s 是否可能是一个链接码.
func IsShortCode(s string) bool {
	return shortCodePattern.MatchString(s)
}

// IsFingerprint 判断 s 是否为 32 位小写十六进制 md5.
func IsFingerprint(s string) bool {
	return ValidateVar(s, "fingerprint") == nil
}
