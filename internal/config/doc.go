// Package config loads the locksmith configuration.
//
// Settings come from four layers, each overriding the previous one:
//
//  1. built-in defaults (GetDefaultConfig)
//  2. config.yaml in the configuration directory
//  3. a .env file in the same directory
//  4. the process environment
//
// The environment keys keep the names used by earlier deployments of the
// agent (BOSS_UID, DEFAULT_NICKNAME, GROUP_NAME_REVERT_DELAY, ...). Duration
// values accept Go syntax ("47s") or a bare number of milliseconds.
//
// # Configuration Structure
//
//	operatorId: "100001234"
//	defaultNickname: "locked"
//	dataDir: "/var/lib/locksmith"
//	bridge:
//	  url: "http://127.0.0.1:3001"
//	pacing:
//	  fastMin: 4s
//	  fastMax: 5s
//	  slowMin: 12s
//	  slowMax: 13s
//	reconcile:
//	  interval: 5m
//	  nicknameChangeLimit: 50
//	  nicknameCooldown: 5m
//	  maxConcurrent: 1
//	titleLock:
//	  checkInterval: 60s
//	  revertGrace: 47s
//	  maxChecksPerTick: 5
//
// Validate collects every problem into a ValidationErrors value so a single
// run of `locksmith check` reports all of them.
package config
