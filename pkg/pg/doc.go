// Package pg wires the pgx/v5 driver into the service: pooled
// connections configured from the environment, startup retry, a health
// check closure for readiness endpoints, and error classification
// helpers.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer pool.Close()
//
// Schema management is deliberately out of scope; the canonical table
// definitions live in pkg/job/schema.sql and are applied by whatever
// migration tooling the deployment already uses.
package pg
