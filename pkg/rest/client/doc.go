// Package client assembles the full stack: the HTTP middleware chains,
// the hydrator with its serializers, the resource manager and the
// supporting infrastructure, all from one Config.
//
//	c, err := client.New(client.Config{
//		BaseURL:   "https://api.example.com",
//		RateLimit: 10,
//		Workers:   4,
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	projects := client.Repo[*Project](c)
//	p, err := projects.Get(ctx, 42)
//
// Optional Config fields switch on throttling, concurrency bounds, redis
// response caching, Prometheus metrics, pagination and the worker pool.
package client
