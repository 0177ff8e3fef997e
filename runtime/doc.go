// Package runtime executes single nodes: it resolves the processor for a
// node's type, validates inputs against the processor's declared contract,
// invokes it under the node's execution timeout, and wraps failures with
// job and node context. It holds no node-specific business logic.
package runtime
