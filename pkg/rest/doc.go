/*
Package rest maps Go structs onto RESTful JSON APIs.

The packages layer bottom-up:

  - request: handler-decorator pipeline doing the HTTP work (status
    checking, throttling, caching, instrumentation, pagination)
  - resource: the metadata contract mapped types implement
  - hydrate: tag-driven conversion between wire records and struct fields
  - manager: identity-mapped fetching, listing and saving
  - relation: lazy OneToMany and ManyToOne links between resources
  - repository: typed facade over the manager for one resource type
  - client: one-Config assembly of the whole stack

Most applications only touch client and the resource types they declare:

	c, err := client.New(client.Config{BaseURL: url})
	projects := client.Repo[*Project](c)
*/
package rest
