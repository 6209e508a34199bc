// Package repository provides a typed facade over the resource manager
// for one resource type.
//
//	projects := repository.New[*Project](mgr, pool)
//	all := projects.All()                    // lazy collection
//	p, err := projects.Get(ctx, 42)
//	many, err := projects.GetMany(ctx, ids)  // fans out over the pool
package repository
