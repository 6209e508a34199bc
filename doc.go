/*
Package restflow provides lazy collections and ORM-like resource mapping
for RESTful JSON APIs.

Streaming (pkg/streaming):
  - stream: Pull-based lazy streams with functional operations
  - collection: Cached, replayable collections backed by lazy sources

Resource mapping (pkg/rest):
  - request: Request pipeline with composable middleware (status checks,
    pagination, caching, throttling, logging, metrics)
  - hydrate: Tag-driven hydration between JSON records and structs
  - resource, manager, relation, repository: Identity-mapped resources,
    lazy relations, and typed repositories
  - client: Factory wiring the whole stack

Supporting packages:
  - pkg/ratelimit: Token bucket and in-flight request limiting
  - pkg/scheduling: Worker pool and cron-based cache warming
  - pkg/metrics: Prometheus instrumentation

Example usage:

	type Account struct {
		ID   int    `rest:"id,readonly"`
		Name string `rest:"name"`
	}

	func (a *Account) RestMeta() resource.Meta {
		return resource.Meta{
			Get:  resource.Action{URI: "/accounts/{id}"},
			List: resource.Action{URI: "/accounts", Key: "accounts"},
		}
	}

	c, _ := client.New(client.Config{BaseURL: "https://api.example.com"})
	accounts := client.Repo[*Account](c)
	all, _ := accounts.All().ToSlice(ctx)
*/
package restflow
