package integration

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/db"
)

const (
	testDatabase = "whocan_test"
	testSecret   = "integration-secret"
)

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	Database    *mongo.Database
	Container   testcontainers.Container
	MongoURI    string
	HTTPClient  *http.Client
	InlineMode  bool
	BinaryPath  string
	collections int
}

// NewTestContext creates a new test context with a MongoDB testcontainer.
// Modes:
//   - Binary mode (default): Set WHOCAN_BINARY to the path of the whocanctl binary
//   - Inline mode: Set WHOCAN_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	inlineMode := os.Getenv("WHOCAN_INLINE") == "1"
	binaryPath := os.Getenv("WHOCAN_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either WHOCAN_BINARY or WHOCAN_INLINE=1 is required.\n\nBinary mode:\n  go build -o whocanctl ./cmd/whocanctl\n  INTEGRATION_TEST=1 WHOCAN_BINARY=$(pwd)/whocanctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 WHOCAN_INLINE=1 go test -v ./test/integration/...")
	}

	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("WHOCAN_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	container, uri, err := startMongo(ctx)
	if err != nil {
		return nil, err
	}

	database, err := db.ConnectMongo(ctx, uri, testDatabase)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return &TestContext{
		Database:   database,
		Container:  container,
		MongoURI:   uri,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		InlineMode: inlineMode,
		BinaryPath: binaryPath,
	}, nil
}

// startMongo runs a single-node MongoDB container
func startMongo(ctx context.Context) (*tcmongodb.MongoDBContainer, string, error) {
	container, err := tcmongodb.Run(ctx, "mongo:7")
	if err != nil {
		return nil, "", fmt.Errorf("failed to start mongo container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get connection string: %w", err)
	}
	return container, uri, nil
}

// NewCollection returns a collection name not used by any earlier scenario
func (tc *TestContext) NewCollection() string {
	tc.collections++
	return fmt.Sprintf("who-can-%d", tc.collections)
}

// waitForServer polls the server until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// freePort asks the kernel for an unused TCP port
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Database != nil {
		_ = tc.Database.Client().Disconnect(ctx)
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

