// Package redis connects the service to a Redis server through the
// go-redis client: Connect retries until the server is reachable, and
// Healthcheck plugs into readiness probes. The established client backs
// the cross-process fanout bus in pkg/fanout.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer client.Close()
package redis
