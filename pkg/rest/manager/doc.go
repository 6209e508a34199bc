// Package manager fetches, materializes and saves REST resources.
//
// Each manager keeps a per-type identity map so the same remote object
// always materializes as the same Go instance, re-hydrated with fresh
// data. Get expands the id into the resource's Get action and returns the
// mapped instance; List is lazy, performing the request on the first pull
// and materializing each record through the identity map; Save POSTs new
// resources and PUTs existing ones, folding the response back into the
// instance.
//
// Hydration of shared instances is serialized internally, so concurrent
// fetches of the same id are safe.
package manager
