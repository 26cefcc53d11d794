package integration

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/audit"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server/endpoints"
	mongostore "github.com/doodlesbykumbi/who-can-in-go/pkg/store/mongo"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/whocan"
)

// ServerConfig holds configuration for a test server instance
type ServerConfig struct {
	Collection string
	JWTSecret  string
}

// ServerInstance represents a running server for a single scenario
type ServerInstance struct {
	Server        *server.Server
	ServerURL     string
	Port          int
	Config        ServerConfig
	listener      net.Listener
	cancel        context.CancelFunc
	serverProcess *exec.Cmd // For binary mode
}

// StartServer creates and starts a new server instance backed by the
// container's MongoDB. This supports both inline and binary modes based on
// how the test suite was started.
func StartServer(tc *TestContext, cfg ServerConfig) (*ServerInstance, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate port: %w", err)
	}

	if tc.InlineMode {
		return startInlineServerInstance(tc, port, cfg)
	}
	return startBinaryServerInstance(tc, port, cfg)
}

// startInlineServerInstance starts an in-process server
func startInlineServerInstance(tc *TestContext, port int, cfg ServerConfig) (*ServerInstance, error) {
	whoCanConfig := &config.WhoCanConfig{
		Backend:       config.BackendMongo,
		MongoURI:      tc.MongoURI,
		MongoDatabase: testDatabase,
		Collection:    cfg.Collection,
		JWTSecret:     cfg.JWTSecret,
	}

	w := whocan.NewMongoDB(tc.Database, whocan.WithCollection(cfg.Collection), whocan.WithAudit(audit.Discard))
	health := mongostore.New(tc.Database, mongostore.WithCollection(cfg.Collection))

	s := server.NewServer(w, health, whoCanConfig, nil, "127.0.0.1", strconv.Itoa(port))
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on port %d: %w", port, err)
	}

	instance := &ServerInstance{
		Server:    s,
		ServerURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:      port,
		Config:    cfg,
		listener:  listener,
	}

	go func() {
		_ = s.StartWithListener(listener)
	}()

	if err := waitForServer(instance.ServerURL, 10*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return instance, nil
}

// startBinaryServerInstance starts a server using the whocanctl binary
func startBinaryServerInstance(tc *TestContext, port int, cfg ServerConfig) (*ServerInstance, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx, tc.BinaryPath, "server", "-b", "127.0.0.1", "-p", strconv.Itoa(port))
	cmd.Env = append(os.Environ(),
		"WHOCAN_BACKEND=mongo",
		"WHOCAN_MONGO_URI="+tc.MongoURI,
		"WHOCAN_MONGO_DATABASE="+testDatabase,
		"WHOCAN_COLLECTION="+cfg.Collection,
		"WHOCAN_JWT_SECRET="+cfg.JWTSecret,
		"WHOCAN_AUDIT_ENABLED=false",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start binary: %w", err)
	}

	instance := &ServerInstance{
		ServerURL:     fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:          port,
		Config:        cfg,
		cancel:        cancel,
		serverProcess: cmd,
	}

	if err := waitForServer(instance.ServerURL, 30*time.Second); err != nil {
		instance.Stop()
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return instance, nil
}

// Stop shuts down the server instance
func (si *ServerInstance) Stop() {
	if si.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = si.Server.Shutdown(ctx)
		cancel()
	}
	if si.listener != nil {
		_ = si.listener.Close()
	}
	if si.cancel != nil {
		si.cancel()
	}
	if si.serverProcess != nil && si.serverProcess.Process != nil {
		_ = si.serverProcess.Process.Kill()
		_ = si.serverProcess.Wait()
	}
}
