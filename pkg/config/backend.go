package config

//go:generate go run github.com/dmarkham/enumer -type Backend -trimprefix Backend -transform lower -text -yaml -output backend.gen.go

// Backend selects the storage used for grants
type Backend int

const (
	BackendMongo Backend = iota + 1
	BackendPostgres
	BackendRedis
	BackendMemory
)
