// Package core provides a declarative multi-agent workflow orchestration
// engine.
//
// A team of agents, each backed by an LLM client and a scoped set of tools,
// is defined in YAML and run under one of two execution strategies:
// deterministic (a dependency-ordered DAG of tasks) or manager-LLM (a
// supervisor agent that delegates tasks to the team by free-form reply).
// Every mutation to a run's state — agent status, task status, workflow
// status — flows through a single reactive store that external observers
// (SQL snapshot persistence, Prometheus metrics) can subscribe to without
// taking part in scheduling.
//
// # Quick Start
//
//	team, err := config.Load("team.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := team.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.Start(ctx, map[string]string{"topic": "quarterly report"}); err != nil {
//	    log.Fatal(err)
//	}
//
// # Using as a Go Library
//
//	import (
//	    "github.com/flowteam/core/config"
//	    "github.com/flowteam/core/store"
//	    "github.com/flowteam/core/agent"
//	)
//
// # Key Features
//
//   - Declarative YAML team definitions with env-var interpolation
//   - Deterministic and manager-LLM execution strategies
//   - Reactive, selector-based state subscriptions
//   - SQL-backed snapshot persistence (postgres, mysql, sqlite)
//   - Prometheus metrics and OpenTelemetry tracing
//   - Bounded-concurrency task scheduling
//
// # Alpha Status
//
// This core is under active development. APIs may change.
package core
