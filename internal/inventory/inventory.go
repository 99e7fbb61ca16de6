// SPDX-License-Identifier: Apache-2.0

// Package inventory discovers the reachable hosts for the served catalog.
// Discovery runs a listing playbook and scans its machine summary block;
// results are cached with a TTL so repeated /meta requests do not fan out
// into playbook runs.
package inventory

import (
	"context"
	"regexp"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/core/models"
	"github.com/NaokiMiyanaga/mcp-ansible-wrapper/internal/extract"
)

const cacheKey = "hosts"

// machineSummary marks the start of the structured tail of a listing run.
var machineSummary = regexp.MustCompile(`(?i)Machine summary\s*\(JSON\)\s*:`)

// RunFunc executes a playbook and returns its raw result.
type RunFunc func(ctx context.Context, playbook string, vars map[string]interface{}, limit string) (models.RunResult, error)

// Enumerator resolves the current host list with a TTL cache.
type Enumerator struct {
	run      RunFunc
	playbook string
	fallback []string
	cache    *expirable.LRU[string, []string]
	logger   *zap.Logger
}

// New creates an enumerator. playbook is the listing playbook path;
// fallback is returned whenever discovery yields nothing.
func New(run RunFunc, playbook string, fallback []string, ttl time.Duration, logger *zap.Logger) *Enumerator {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enumerator{
		run:      run,
		playbook: playbook,
		fallback: fallback,
		cache:    expirable.NewLRU[string, []string](1, nil, ttl),
		logger:   logger,
	}
}

// Hosts returns the discovered host names. Discovery failures are not
// errors; they fall back to the configured list, which may be empty.
// The resolved list, fallback included, is cached for the TTL.
func (e *Enumerator) Hosts(ctx context.Context) []string {
	if hosts, ok := e.cache.Get(cacheKey); ok {
		return append([]string(nil), hosts...)
	}

	hosts := e.discover(ctx)
	if len(hosts) == 0 {
		hosts = append([]string(nil), e.fallback...)
	}

	e.logger.Info("host discovery", zap.Strings("hosts", hosts))
	e.cache.Add(cacheKey, hosts)
	return append([]string(nil), hosts...)
}

// Invalidate drops the cached list so the next Hosts call re-discovers.
func (e *Enumerator) Invalidate() {
	e.cache.Remove(cacheKey)
}

func (e *Enumerator) discover(ctx context.Context) []string {
	if e.run == nil || e.playbook == "" {
		return nil
	}

	result, err := e.run(ctx, e.playbook, nil, "")
	if err != nil {
		e.logger.Warn("host discovery run failed", zap.Error(err))
		return nil
	}

	loc := machineSummary.FindStringIndex(result.Stdout)
	if loc == nil {
		return nil
	}

	for _, obj := range extract.Objects(result.Stdout[loc[1]:]) {
		arr, ok := obj["routers"].([]interface{})
		if !ok {
			continue
		}
		var hosts []string
		for _, v := range arr {
			if s, ok := v.(string); ok && s != "" {
				hosts = append(hosts, s)
			}
		}
		return hosts
	}
	return nil
}

// EmbedHostEnum returns a copy of an inputs schema with the host property
// constrained to the given enum. The schema itself is never mutated so the
// catalog stays pristine across requests.
func EmbedHostEnum(schema map[string]interface{}, hosts []string) map[string]interface{} {
	if len(hosts) == 0 || schema == nil {
		return schema
	}
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return schema
	}
	hostProp, ok := props["host"].(map[string]interface{})
	if !ok {
		return schema
	}

	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		out[k] = v
	}
	newProps := make(map[string]interface{}, len(props))
	for k, v := range props {
		newProps[k] = v
	}
	newHost := make(map[string]interface{}, len(hostProp)+1)
	for k, v := range hostProp {
		newHost[k] = v
	}

	enum := make([]interface{}, len(hosts))
	for i, h := range hosts {
		enum[i] = h
	}
	newHost["enum"] = enum
	newProps["host"] = newHost
	out["properties"] = newProps
	return out
}
