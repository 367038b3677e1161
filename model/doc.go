// Package model defines the provider agnostic abstractions for driving
// language models from the agent run loop.
//
// Core goals:
//   - Unify streaming and non streaming generation behind a single interface
//   - Normalize tool call representation (ToolDefinition, core.ToolCall)
//   - Keep request and response shapes minimal and transport independent
//   - Facilitate deterministic tests (ScriptedModel)
//
// Providers (see the openai and anthropic subpackages) implement Client so
// the agent stays decoupled from vendor SDKs. Adapters report provider
// failures as *TransportError.
package model
