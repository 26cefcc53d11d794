package grant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNilValue is returned when a triple component is nil.
	ErrNilValue = errors.New("grant: nil value")

	// ErrReservedKey is returned when a structured component holds a key
	// starting with '$'. MongoDB reads such documents as query operators.
	ErrReservedKey = errors.New("grant: reserved key")
)

// Grant is the persisted record for a triple.
type Grant struct {
	Identifier any       `bson:"identifier" json:"identifier"`
	Action     any       `bson:"action" json:"action"`
	Target     any       `bson:"target" json:"target"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Triple returns the key of the grant.
func (g Grant) Triple() Triple {
	return Triple{Identifier: g.Identifier, Action: g.Action, Target: g.Target}
}

// Triple is the (identifier, action, target) key of a grant.
type Triple struct {
	Identifier any
	Action     any
	Target     any
}

// Validate checks that no component is nil, including typed nils, and that
// no structured component holds a '$' key. A null filter would match records
// where the field is absent.
func (t Triple) Validate() error {
	components := []struct {
		name  string
		value any
	}{
		{"identifier", t.Identifier},
		{"action", t.Action},
		{"target", t.Target},
	}
	for _, c := range components {
		if isNil(c.value) {
			return fmt.Errorf("%w: %s", ErrNilValue, c.name)
		}
		if key, ok := reservedKey(Normalize(c.value)); ok {
			return fmt.Errorf("%w: %s contains %q", ErrReservedKey, c.name, key)
		}
	}
	return nil
}

// Normalized returns a copy with every component passed through Normalize.
func (t Triple) Normalized() Triple {
	return Triple{
		Identifier: Normalize(t.Identifier),
		Action:     Normalize(t.Action),
		Target:     Normalize(t.Target),
	}
}

// Filter returns the exact-match document filter for the triple. Each
// component is compared with $eq so a value is never read as an operator.
func (t Triple) Filter() bson.D {
	n := t.Normalized()
	return bson.D{
		{Key: "identifier", Value: bson.D{{Key: "$eq", Value: n.Identifier}}},
		{Key: "action", Value: bson.D{{Key: "$eq", Value: n.Action}}},
		{Key: "target", Value: bson.D{{Key: "$eq", Value: n.Target}}},
	}
}

// Encoded returns the Extended JSON encoding of each component.
func (t Triple) Encoded() (identifier, action, target string, err error) {
	if identifier, err = Encode(t.Identifier); err != nil {
		return "", "", "", err
	}
	if action, err = Encode(t.Action); err != nil {
		return "", "", "", err
	}
	if target, err = Encode(t.Target); err != nil {
		return "", "", "", err
	}
	return identifier, action, target, nil
}

// Key returns a single comparable string for the triple. Two triples have the
// same key if and only if they identify the same grant.
func (t Triple) Key() (string, error) {
	identifier, action, target, err := t.Encoded()
	if err != nil {
		return "", err
	}
	return "[" + strings.Join([]string{identifier, action, target}, ",") + "]", nil
}

// String renders the triple for logs and audit messages.
func (t Triple) String() string {
	identifier, action, target, err := t.Encoded()
	if err != nil {
		return fmt.Sprintf("(%v, %v, %v)", t.Identifier, t.Action, t.Target)
	}
	return fmt.Sprintf("(%s, %s, %s)", identifier, action, target)
}
