package e2e

import (
	"github.com/cucumber/godog"

	"jojo/e2e/steps/admin"
	"jojo/e2e/steps/common"
	"jojo/e2e/steps/instructor"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	instructor.RegisterSteps(ctx, tc)
	admin.RegisterSteps(ctx, tc)
}
