// Package logging は zap ロガーの生成と Gin 用のリクエストログを提供します。
package logging

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New は Gin のモードとログレベルに応じた zap ロガーを作成します。
// release モードでは JSON 出力、それ以外は開発用のコンソール出力になります。
func New(ginMode, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if ginMode == gin.ReleaseMode {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}
