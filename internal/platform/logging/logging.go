// Package logging はslogのデフォルトロガーを構築します。
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config はロガーの設定です。
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	File   string // 空でなければローテーション付きでファイルにも出力する
}

// LoadConfig は環境変数からロガー設定を読み込みます。
func LoadConfig() Config {
	return Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		File:   os.Getenv("LOG_FILE"),
	}
}

// New は設定に従ってロガーを生成します。
func New(cfg Config, stdout io.Writer) (*slog.Logger, error) {
	out := stdout
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		out = io.MultiWriter(stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}
	return slog.New(h), nil
}

// Init はロガーを生成してデフォルトに設定します。
func Init(cfg Config) error {
	l, err := New(cfg, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(l)
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
