// Package hostlink turns the asynchronous transport of a USB host adapter
// into blocking, goroutine-safe calls.
//
// The adapter acknowledges every request immediately and answers later,
// from its own delivery goroutine, with a frame carrying the transfer id of
// the request. Hostlink tags each request with a fresh id, parks the caller
// until the matching frame arrives and hands unsolicited frames (id 0) to a
// separate notification slot.
//
// # Basic Usage
//
//	h, err := hostlink.New(hostlink.DefaultConfig(), transport)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := h.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Stop()
//
//	dev := hostlink.NewDevice(h)
//	info, err := dev.DeviceInfo(ctx)
//
// # Calls and Sequences
//
// [Hostlink.Call] issues one request and waits for its response.
// [Hostlink.Submit] issues an ordered batch and [Hostlink.WaitFor] returns
// the responses in submission order, whatever order the device replied in.
// [Hostlink.Invoke] does both. A request rejected by its immediate ack is
// answered by the ack itself; the caller never waits for it.
//
// Missing replies surface as [ErrTimeout]. A reply that arrives after its
// caller gave up is dropped and reported through
// [EventHandler.OnUnsequenced].
//
// # Transfer Ids
//
// Ids cycle through [Config.MinTransferID, Config.MaxTransferID). An id is
// reused after a full cycle even if its reply never came; reuse of an id
// that is still outstanding is logged and counted in [Stats].Collisions.
//
// # Plugins
//
// Plugins registered with [WithPlugin] are initialized by Start and shut
// down in reverse order by Stop:
//
//	import "github.com/bft-labs/hostlink/plugins/configwatcher"
//
//	h, err := hostlink.New(cfg, transport,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	)
package hostlink
