package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

const basePath = "/admin/instructor-verifications"

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path, token string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte

	SignInAdmin() error
	AdminToken() string
	InstructorToken() string
	VerificationID() string
}

// RegisterSteps registers admin review step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^an admin is signed in$`, steps.signIn)

	ctx.Step(`^the admin lists verifications with status "([^"]*)"$`, steps.listByStatus)
	ctx.Step(`^the list should contain the instructor's verification$`, steps.listShouldContainVerification)
	ctx.Step(`^the admin opens the verification$`, steps.openVerification)
	ctx.Step(`^the admin views the verification history$`, steps.viewHistory)
	ctx.Step(`^the history should include "([^"]*)"$`, steps.historyShouldInclude)

	ctx.Step(`^the admin approves the verification$`, steps.approve)
	ctx.Step(`^the admin rejects the verification with reason "([^"]*)"$`, steps.reject)
	ctx.Step(`^the admin rejects the verification for good with reason "([^"]*)"$`, steps.rejectFinal)
	ctx.Step(`^the admin requests more information about "([^"]*)"$`, steps.requestInfo)
	ctx.Step(`^the admin suspends the verification$`, steps.suspend)
	ctx.Step(`^the admin resets the instructor's code limits$`, steps.resetLimits)
	ctx.Step(`^the admin marks the certificate as "([^"]*)"$`, steps.reviewCertificate)

	ctx.Step(`^the instructor tries to list verifications$`, steps.instructorLists)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) signIn(ctx context.Context) error {
	return s.tc.SignInAdmin()
}

func (s *adminSteps) path(suffix string) string {
	return basePath + "/" + s.tc.VerificationID() + suffix
}

func (s *adminSteps) listByStatus(ctx context.Context, status string) error {
	return s.tc.Do("GET", basePath+"?status="+status, s.tc.AdminToken(), nil)
}

func (s *adminSteps) listShouldContainVerification(ctx context.Context) error {
	raw, err := s.tc.GetResponseField("verifications")
	if err != nil {
		return err
	}
	items, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("verifications is not a list: %v", raw)
	}
	for _, item := range items {
		if m, ok := item.(map[string]any); ok && m["id"] == s.tc.VerificationID() {
			return nil
		}
	}
	return fmt.Errorf("verification %s not listed in %s", s.tc.VerificationID(), string(s.tc.GetLastResponseBody()))
}

func (s *adminSteps) openVerification(ctx context.Context) error {
	return s.tc.Do("GET", s.path(""), s.tc.AdminToken(), nil)
}

func (s *adminSteps) viewHistory(ctx context.Context) error {
	return s.tc.Do("GET", s.path("/history"), s.tc.AdminToken(), nil)
}

func (s *adminSteps) historyShouldInclude(ctx context.Context, action string) error {
	raw, err := s.tc.GetResponseField("events")
	if err != nil {
		return err
	}
	entries, _ := raw.([]any)
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok && m["action"] == action {
			return nil
		}
	}
	return fmt.Errorf("history has no %q entry: %s", action, string(s.tc.GetLastResponseBody()))
}

func (s *adminSteps) approve(ctx context.Context) error {
	return s.tc.Do("PUT", s.path("/approve"), s.tc.AdminToken(), map[string]string{
		"feedback": "Welcome aboard",
	})
}

func (s *adminSteps) reject(ctx context.Context, reason string) error {
	return s.tc.Do("PUT", s.path("/reject"), s.tc.AdminToken(), map[string]any{
		"reason":            reason,
		"allowResubmission": true,
	})
}

func (s *adminSteps) rejectFinal(ctx context.Context, reason string) error {
	return s.tc.Do("PUT", s.path("/reject"), s.tc.AdminToken(), map[string]any{
		"reason":            reason,
		"allowResubmission": false,
	})
}

func (s *adminSteps) requestInfo(ctx context.Context, steps string) error {
	var list []string
	for _, step := range strings.Split(steps, ",") {
		if step = strings.TrimSpace(step); step != "" {
			list = append(list, step)
		}
	}
	return s.tc.Do("PUT", s.path("/request-info"), s.tc.AdminToken(), map[string]any{
		"message": "Please upload clearer images",
		"steps":   list,
	})
}

func (s *adminSteps) suspend(ctx context.Context) error {
	return s.tc.Do("PUT", s.path("/suspend"), s.tc.AdminToken(), map[string]string{
		"reason": "Reported for plagiarised course content",
	})
}

func (s *adminSteps) resetLimits(ctx context.Context) error {
	return s.tc.Do("POST", s.path("/reset-limits"), s.tc.AdminToken(), nil)
}

func (s *adminSteps) reviewCertificate(ctx context.Context, status string) error {
	if err := s.openVerification(ctx); err != nil {
		return err
	}
	raw, err := s.tc.GetResponseField("educationVerification.certificates")
	if err != nil {
		return err
	}
	certs, _ := raw.([]any)
	if len(certs) == 0 {
		return fmt.Errorf("verification has no certificates: %s", string(s.tc.GetLastResponseBody()))
	}
	first, _ := certs[0].(map[string]any)
	return s.tc.Do("PUT", s.path(fmt.Sprintf("/certificates/%v/verify", first["id"])), s.tc.AdminToken(), map[string]string{
		"status": status,
		"notes":  "Checked with the issuing institution",
	})
}

func (s *adminSteps) instructorLists(ctx context.Context) error {
	return s.tc.Do("GET", basePath, s.tc.InstructorToken(), nil)
}
