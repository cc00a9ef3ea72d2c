// Package database connects to a configured mapping store backend and
// returns a ready hashdrop.MappingRepo.
//
// Two backends are supported: "sqlite" (pure-Go driver, good for single-node
// deployments) and "postgres" (pgx pool). Connect runs migrations and
// validates the resulting schema before handing out the repo.
package database
