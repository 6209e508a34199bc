// Package request implements the HTTP request pipeline as a chain of
// handler decorators.
//
// A Handler takes a Request and produces a Response. The terminal HTTP
// handler performs the actual network call; every other concern wraps it:
//
//	chain := request.CheckStatus(request.HTTP(httpClient))
//	chain = request.Throttle(chain, limiter, nil)
//	chain = request.Logging(chain, logger)
//
// Middleware order matters. Caching sits outside throttling so cache hits
// skip the rate limiter; instrumentation sits inside caching so only real
// sends are counted.
//
// Unwrap extracts enveloped list payloads, Paginate turns a paged endpoint
// into a lazy stream.Source walking pages on demand, and Requester binds a
// base URL to separate get and list chains. ExpandTemplate substitutes
// {name} placeholders in URI and param templates.
package request
