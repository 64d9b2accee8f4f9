// Package jsonrpc bridges a running hostlink instance over HTTP JSON-RPC 2.0
// so several processes can share one host adapter. The "Host" service
// offers Call, Sequence, NextNotification and Stats.
package jsonrpc
