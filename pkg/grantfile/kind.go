package grantfile

//go:generate go run github.com/dmarkham/enumer -type Kind -trimprefix Kind -transform lower -yaml -output kind.gen.go

// Kind is the YAML tag of an entry
type Kind int

const (
	KindAllow Kind = iota
	KindDisallow
)

// Tag returns the YAML tag for the kind
func (k Kind) Tag() string {
	return "!" + k.String()
}
