// Package resource defines the metadata contract REST-mapped types
// implement.
//
// A type becomes a resource by implementing RestMeta on its pointer:
//
//	func (p *Project) RestMeta() resource.Meta {
//		return resource.Meta{
//			Get:  resource.Action{URI: "/project/{id}.json"},
//			List: resource.Action{URI: "/projects.json", Key: "projects"},
//		}
//	}
//
// Actions name the endpoint templates and envelope keys the manager uses;
// the id field defaults to "id".
package resource
