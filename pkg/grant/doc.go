// Package grant defines the grant record and the value model shared by every
// store backend.
//
// A grant is an (identifier, action, target) triple. Each component is an
// opaque value: a string, a number, or an ordered document. Documents are
// compared by their serialized field order, so
//
//	bson.D{{Key: "type", Value: "doc"}, {Key: "id", Value: "1"}}
//
// and
//
//	bson.D{{Key: "id", Value: "1"}, {Key: "type", Value: "doc"}}
//
// identify different grants. Go maps carry no order and are sorted by key
// before they are stored or compared.
//
// # Usage
//
//	t := grant.Triple{Identifier: "u1", Action: "read", Target: "doc1"}
//	if err := t.Validate(); err != nil {
//	    return err
//	}
//	key, err := t.Key()
package grant
