// Package relation provides lazy links between REST resources. OneToMany
// fields expose a related collection; ManyToOne fields resolve a single
// related resource on demand. Both are hydrated by serializers registered
// with the client factory.
//
// Tag opts on relation fields adjust the related endpoint, expanded
// against the owner's wire record:
//
//	Tasks relation.OneToMany[*Task] `rest:"tasks,uri=/project/{id}/tasks.json"`
//	Owner relation.ManyToOne[*User] `rest:"owner_id"`
//
// Opts named param:<name> become query params. Related records, inline or
// fetched, materialize through the manager's identity map on first access.
package relation
