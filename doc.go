// Package clustercache is a cache driver for Redis Cluster.
//
// A Driver connects to the cluster from a seed list, retrying connection
// refusals with bounded backoff, and exposes has/get/set/inc/dec/delete/clear
// over it. Values are stored as follows:
//
//   - scalars (strings, numbers, booleans, []byte) in their natural string
//     form, so INCRBY/DECRBY work on them directly;
//   - everything else as a marker ("think_serialize:") followed by JSON.
//
// Writes made through a tag scope are recorded in a per-tag list so the whole
// group can be invalidated at once:
//
//	d, _ := clustercache.Open(ctx, map[string]any{"host": "10.0.0.1,10.0.0.2", "port": "7000"})
//	_, _ = d.Tag("users").Set(ctx, "user:1", profile, time.Hour)
//	_, _ = d.ClearTag(ctx, "users")
//
// Components:
//   - provider.Provider: the consumed store commands (go-redis cluster client,
//     or an in-memory store for tests).
//   - codec.Envelope: scalar passthrough plus the marker envelope.
//   - tagindex.Index: tag -> member keys bookkeeping.
//   - Connector: seed list, reconnect loop, live handle.
package clustercache
