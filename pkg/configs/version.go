package configs

// AppName 服务名，用于 tracing 资源、minio AppInfo 等.
const AppName = "staticmd"

// AppVersion 由构建时 -ldflags "-X github.com/yeisme/staticmd/pkg/configs.AppVersion=..." 覆盖.
var AppVersion = "0.1.0-dev"
