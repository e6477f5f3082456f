// ABOUTME: Audiostream bridge wire protocol package
// ABOUTME: Defines protocol messages and the WebSocket client
// Package protocol implements the audiostream bridge wire protocol.
//
// Text frames carry JSON control messages (initialize, flush, close,
// stats); binary frames carry little-endian 16-bit PCM. The bridge
// answers every request with a result, in order.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8928"})
//	if err := client.Connect(); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	_, err := client.Initialize(protocol.Initialize{SampleRate: 48000, Channels: 2})
//	err = client.Write(pcm)
//	err = client.Close()
package protocol
