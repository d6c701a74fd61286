// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 許可リスト（AllowedDomains/AllowedEmails）の実行時変更は
// auth.AccessPolicy側のコピーに対して行われ、Configには反映されない。
type Config struct {
	// Database
	DatabaseURL string

	// Identity issuer
	// IdentityAPIKeyが空の場合もエラーにはせず、認証を縮退モードで起動する。
	IdentityAPIKey    string
	IdentityLookupURL string // テスト用にオーバーライド可能

	// Allowlist
	AllowedDomains []string
	AllowedEmails  []string

	// Rate Limit（req/min/user）
	RateLimitGeneral  int
	RateLimitMutation int

	// HTTP
	RequestTimeout time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// 発行者クレデンシャル（IDENTITY_API_KEY）は意図的に必須としない。
// 未設定でもプロセスは起動し、認証のみが縮退する。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.IdentityAPIKey = os.Getenv("IDENTITY_API_KEY")
	cfg.IdentityLookupURL = os.Getenv("IDENTITY_LOOKUP_URL")

	cfg.AllowedDomains = splitList(os.Getenv("ALLOWED_DOMAINS"))
	cfg.AllowedEmails = splitList(os.Getenv("ALLOWED_EMAILS"))

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 30)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// splitList はカンマ区切りのリストを分割する。
// 空要素と前後の空白は取り除く。
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
