package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
)

// Env 环境变量读取能力
type Env interface {
	Lookup(key string) (string, bool)
}

// OSEnv 读取进程环境变量
type OSEnv struct{}

// Lookup 实现 Env
func (OSEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv 固定键值环境（测试与嵌入调用使用）
type MapEnv map[string]string

// Lookup 实现 Env
func (m MapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// LoadDotEnv 读取 dir/.env 并覆盖进程环境变量，返回加载的键名
func LoadDotEnv(dir string) ([]string, error) {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat dotenv failed: %w", err)
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse dotenv failed: %w", err)
	}

	keys := make([]string, 0, len(values))
	for key, value := range values {
		if err := os.Setenv(key, value); err != nil {
			return nil, fmt.Errorf("set env %s failed: %w", key, err)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
