// SPDX-License-Identifier: Apache-2.0

// Package config loads process configuration from the environment (with an
// optional .env file). Components receive the resulting Config explicitly;
// nothing in the tree reads environment variables at call time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration for mcpd.
type Config struct {
	// Addr is the HTTP listen address for serve mode.
	Addr string

	// AllowPatterns is the glob allow-list for procedure paths.
	AllowPatterns []string
	// Token is the expected bearer credential; RequireAuth gates its use.
	Token       string
	RequireAuth bool

	// PlanThreshold is the minimum top-candidate score for a "run" decision.
	PlanThreshold float64
	// HintBoost is added to a candidate named by the caller's hint.
	HintBoost float64

	// EnumTTL bounds how long a discovered host enumeration is reused.
	EnumTTL time.Duration
	// EnumFallback is the host list used when discovery yields nothing.
	EnumFallback []string

	CatalogPath      string
	CMDBPath         string
	AnsibleBin       string
	AnsibleInventory string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             getEnv("MCP_ADDR", ":9000"),
		AllowPatterns:    splitList(getEnv("MCP_ALLOW", "playbooks/*.yml")),
		Token:            os.Getenv("MCP_TOKEN"),
		RequireAuth:      getEnv("REQUIRE_AUTH", "1") == "1",
		CatalogPath:      getEnv("MCP_CATALOG_PATH", "knowledge/playbook_index.yaml"),
		CMDBPath:         getEnv("CMDB_PATH", "rag.db"),
		AnsibleBin:       getEnv("ANSIBLE_BIN", "ansible-playbook"),
		AnsibleInventory: getEnv("ANSIBLE_INVENTORY", "inventory.ini"),
		EnumFallback:     splitList(os.Getenv("MCP_TOOLS_ENUM_FALLBACK")),
	}

	var err error
	if cfg.PlanThreshold, err = getFloat("MCP_PLAN_THRESHOLD", 0.6); err != nil {
		return nil, err
	}
	if cfg.HintBoost, err = getFloat("MCP_PLAN_HINT_BOOST", 0.25); err != nil {
		return nil, err
	}

	ttlSec, err := getInt("MCP_TOOLS_ENUM_TTL", 60)
	if err != nil {
		return nil, err
	}
	cfg.EnumTTL = time.Duration(ttlSec) * time.Second

	if cfg.RequireAuth && cfg.Token == "" {
		return nil, fmt.Errorf("REQUIRE_AUTH=1 but MCP_TOKEN is empty")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// splitList splits a comma or whitespace separated value.
func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
