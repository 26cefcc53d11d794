package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/audit"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/server/middleware"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/whocan"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	server       *ServerInstance
	response     *http.Response
	responseBody []byte
	authToken    string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.server != nil {
			s.server.Stop()
		}
		return ctx, err
	})

	// Background steps
	sc.Step(`^a who-can server is running$`, s.aServerIsRunning)
	sc.Step(`^a who-can server is running with token authentication$`, s.aServerIsRunningWithTokens)
	sc.Step(`^I am authenticated as "([^"]*)"$`, s.iAmAuthenticatedAs)
	sc.Step(`^"([^"]*)" may "([^"]*)" "([^"]*)"$`, s.mayAlready)

	// Grant steps
	sc.Step(`^I grant "([^"]*)" "([^"]*)" on "([^"]*)"$`, s.iGrant)
	sc.Step(`^I revoke "([^"]*)" "([^"]*)" on "([^"]*)"$`, s.iRevoke)
	sc.Step(`^I check whether "([^"]*)" can "([^"]*)" "([^"]*)"$`, s.iCheck)
	sc.Step(`^I send PUT /grants with:$`, s.iSendWith("PUT", "/grants"))
	sc.Step(`^I send DELETE /grants with:$`, s.iSendWith("DELETE", "/grants"))
	sc.Step(`^I send POST /grants/check with:$`, s.iSendWith("POST", "/grants/check"))

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response body should be "([^"]*)"$`, s.theResponseBodyShouldBe)
	sc.Step(`^the permission should be (allowed|denied)$`, s.thePermissionShouldBe)

	// Storage steps
	sc.Step(`^the collection should hold (\d+) grants?$`, s.theCollectionShouldHold)
	sc.Step(`^the collection should have the unique index "([^"]*)"$`, s.theCollectionShouldHaveIndex)
}

// Background steps

func (s *StepsContext) startServer(cfg ServerConfig) error {
	cfg.Collection = s.tc.NewCollection()

	instance, err := StartServer(s.tc, cfg)
	if err != nil {
		return err
	}
	s.server = instance
	return nil
}

func (s *StepsContext) aServerIsRunning() error {
	return s.startServer(ServerConfig{})
}

func (s *StepsContext) aServerIsRunningWithTokens() error {
	return s.startServer(ServerConfig{JWTSecret: testSecret})
}

func (s *StepsContext) iAmAuthenticatedAs(subject string) error {
	token, err := middleware.NewToken([]byte(testSecret), subject, time.Hour, time.Now())
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) mayAlready(identifier, action, target string) error {
	w := whocan.NewMongoDB(s.tc.Database, whocan.WithCollection(s.server.Config.Collection), whocan.WithAudit(audit.Discard))
	return w.Allow(context.Background(), identifier, action, target)
}

// Grant steps

func (s *StepsContext) send(method, path string, body []byte) error {
	req, err := http.NewRequest(method, s.server.ServerURL+path, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

func (s *StepsContext) sendTriple(method, path, identifier, action, target string) error {
	body, err := json.Marshal(map[string]string{
		"identifier": identifier,
		"action":     action,
		"target":     target,
	})
	if err != nil {
		return err
	}
	return s.send(method, path, body)
}

func (s *StepsContext) iGrant(identifier, action, target string) error {
	return s.sendTriple("PUT", "/grants", identifier, action, target)
}

func (s *StepsContext) iRevoke(identifier, action, target string) error {
	return s.sendTriple("DELETE", "/grants", identifier, action, target)
}

func (s *StepsContext) iCheck(identifier, action, target string) error {
	return s.sendTriple("POST", "/grants/check", identifier, action, target)
}

func (s *StepsContext) iSendWith(method, path string) func(*godog.DocString) error {
	return func(body *godog.DocString) error {
		return s.send(method, path, []byte(body.Content))
	}
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldBe(expected string) error {
	actual := strings.TrimSpace(string(s.responseBody))
	if actual != expected {
		return fmt.Errorf("expected body %q, got %q", expected, actual)
	}
	return nil
}

func (s *StepsContext) thePermissionShouldBe(expected string) error {
	if err := s.theResponseStatusShouldBe(http.StatusOK); err != nil {
		return err
	}

	var result struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.Unmarshal(s.responseBody, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Allowed != (expected == "allowed") {
		return fmt.Errorf("expected permission to be %s, got %s", expected, string(s.responseBody))
	}
	return nil
}

// Storage steps

func (s *StepsContext) theCollectionShouldHold(expected int) error {
	n, err := s.tc.Database.Collection(s.server.Config.Collection).CountDocuments(context.Background(), bson.D{})
	if err != nil {
		return err
	}
	if int(n) != expected {
		return fmt.Errorf("expected %d grants, found %d", expected, n)
	}
	return nil
}

func (s *StepsContext) theCollectionShouldHaveIndex(name string) error {
	cursor, err := s.tc.Database.Collection(s.server.Config.Collection).Indexes().List(context.Background())
	if err != nil {
		return err
	}

	var indexes []bson.M
	if err := cursor.All(context.Background(), &indexes); err != nil {
		return err
	}

	for _, index := range indexes {
		if index["name"] != name {
			continue
		}
		if unique, _ := index["unique"].(bool); !unique {
			return fmt.Errorf("index %s is not unique", name)
		}
		return nil
	}
	return fmt.Errorf("index %s not found", name)
}

