package backoff

// ProviderRetryPolicy is the backoff policy used when a chat-model provider
// retries a network failure or 5xx response (§5: retry budget of 2,
// exponential backoff, network/5xx only).
func ProviderRetryPolicy() BackoffPolicy {
	return DefaultPolicy()
}

// ToolServerReconnectPolicy is the backoff policy used when the enclosing
// application reconnects a Failed tool-server connection. Reconnection is
// never automatic (§4.2), so this policy only governs the pacing of an
// explicit caller-driven retry loop.
func ToolServerReconnectPolicy() BackoffPolicy {
	return ConservativePolicy()
}
