// Package hashdrop provides a content-addressed sharing service for files
// and shortened URLs.
//
// Every stored resource is addressed by a short 8-hex-character hash derived
// from its payload and creation time. Resources are owned either by a subject
// verified against a third-party identity provider's JWKS, or by the
// anonymous sentinel owner; ownership decides the expiration window and who
// may delete the resource.
//
// # Key Components
//
//   - Service: resource lifecycle (create, get, delete, list, reap)
//   - MappingRepo: interface for hash-to-resource persistence (PostgreSQL, SQLite)
//   - PayloadStore: interface for file payload storage (filesystem)
//   - auth.Resolver: bearer-token identity resolution against a rotating key set
//
// # Example Usage
//
//	svc, err := hashdrop.NewService(repo, store, hashdrop.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := svc.CreateURL(ctx, "https://example.com", "docs", resolution)
//	fmt.Println(res.Hash) // e.g. "3f9a01bc"
//
// See the http package for the REST API, the auth package for token
// verification, and the database package for mapping store backends.
package hashdrop
