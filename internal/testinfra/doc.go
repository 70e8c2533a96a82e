// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package testinfra provides container-based infrastructure for
// integration tests.
//
// The helpers manage throwaway Postgres and Redis containers through
// testcontainers-go, so integration tests exercise real backends
// instead of mocks:
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    db, err := store.Open(config.DatabaseConfig{DSN: pg.DSN}, logger)
//	    // ...
//	}
//
// Everything here is gated behind the integration build tag; a plain
// `go test ./...` never touches Docker.
package testinfra
