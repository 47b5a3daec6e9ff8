// Package vectorstore is the client for the external vector database:
// one Qdrant collection per indexed workspace, holding a 384-dim
// embedding per chunk plus enough payload to reconstruct a Result
// without a second round trip.
//
// # Collections
//
// Collection names are derived deterministically from the workspace root
// (CollectionNameFor): rune_<sha256(workspace_root)>. Vector size and
// quantization mode are fixed at CreateCollection time and never change
// for the lifetime of the collection.
//
// # Degradation
//
// Every operation is wrapped in retry-with-backoff and a CircuitBreaker
// (sync.go). When the breaker is open, operations fail fast with
// ErrUnavailable rather than blocking on a dead connection; callers
// (internal/search) treat this as the VectorStoreUnavailable degrade path
// here: semantic search returns empty with degraded=true, and
// hybrid search fuses only its remaining modes. A HealthMonitor
// (health.go) polls in the background and flips the flag back once the
// store recovers.
//
// # Usage
//
//	store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
//	    Host: "localhost",
//	    Port: 6334,
//	})
//	collection := vectorstore.CollectionNameFor(workspaceRoot)
//	store.CreateCollection(ctx, collection, 384, vectorstore.QuantizationScalar)
//	store.Upsert(ctx, collection, points)
//	hits, err := store.Search(ctx, collection, queryVector, 50, map[string]string{"repository": "myrepo"})
package vectorstore
