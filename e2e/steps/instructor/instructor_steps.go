package instructor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

var (
	pngImage    = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	pdfDocument = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path, token string, body any) error
	Upload(path, token string, fields map[string]string, files map[string][]byte) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte

	SignInInstructor(email string) error
	InstructorToken() string
	InstructorEmail() string
	SetPhone(phone, countryCode string)
	SetVerificationID(id string)
	LastEmail(addr string) (string, bool)
	LastText() (string, bool)
}

// RegisterSteps registers the instructor wizard step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &instructorSteps{tc: tc}

	ctx.Step(`^an instructor "([^"]*)" is signed in$`, steps.signIn)
	ctx.Step(`^the instructor initializes verification with phone "([^"]*)" and country code "([^"]*)"$`, steps.initialize)
	ctx.Step(`^the instructor has initialized verification$`, steps.hasInitialized)

	ctx.Step(`^the instructor requests an? (email|phone) code$`, steps.requestCode)
	ctx.Step(`^the instructor verifies the (email|phone) with the code they received$`, steps.verifyReceivedCode)
	ctx.Step(`^the instructor verifies the (email|phone) with code "([^"]*)"$`, steps.verifyCode)
	ctx.Step(`^the instructor has verified their (email|phone)$`, steps.hasVerified)

	ctx.Step(`^the instructor submits personal info born on "([^"]*)"$`, steps.submitPersonalInfo)
	ctx.Step(`^the instructor uploads a "([^"]*)" identity document$`, steps.uploadIDDocument)
	ctx.Step(`^the instructor uploads a selfie$`, steps.uploadSelfie)
	ctx.Step(`^the instructor uploads a "([^"]*)" certificate from (\d+)$`, steps.uploadCertificate)
	ctx.Step(`^the instructor submits the verification$`, steps.submit)
	ctx.Step(`^the instructor checks their status$`, steps.checkStatus)

	ctx.Step(`^the progress should be (\d+)%$`, steps.progressShouldBe)
	ctx.Step(`^the verification status should be "([^"]*)"$`, steps.statusShouldBe)
	ctx.Step(`^the step "([^"]*)" should be "([^"]*)"$`, steps.stepShouldBe)
	ctx.Step(`^the instructor should receive an email containing "([^"]*)"$`, steps.shouldReceiveEmail)
}

type instructorSteps struct {
	tc TestContext
}

func (s *instructorSteps) signIn(ctx context.Context, email string) error {
	return s.tc.SignInInstructor(email)
}

func (s *instructorSteps) initialize(ctx context.Context, phone, countryCode string) error {
	s.tc.SetPhone(phone, countryCode)
	if err := s.tc.Do("POST", "/teacher/verification/initialize", s.tc.InstructorToken(), map[string]string{
		"phoneNumber": phone,
		"countryCode": countryCode,
	}); err != nil {
		return err
	}
	if id, err := s.tc.GetResponseField("verification.verificationId"); err == nil {
		s.tc.SetVerificationID(fmt.Sprint(id))
	}
	return nil
}

func (s *instructorSteps) hasInitialized(ctx context.Context) error {
	if err := s.initialize(ctx, "08012345678", "+234"); err != nil {
		return err
	}
	return s.expectOK("initialize")
}

func (s *instructorSteps) requestCode(ctx context.Context, channel string) error {
	return s.tc.Do("POST", "/teacher/verification/"+channel+"/send-code", s.tc.InstructorToken(), nil)
}

func (s *instructorSteps) receivedCode(channel string) (string, error) {
	var (
		body string
		ok   bool
	)
	if channel == "email" {
		body, ok = s.tc.LastEmail(s.tc.InstructorEmail())
	} else {
		body, ok = s.tc.LastText()
	}
	if !ok {
		return "", fmt.Errorf("no %s code was delivered", channel)
	}
	code := codePattern.FindString(body)
	if code == "" {
		return "", fmt.Errorf("no code found in %s message: %q", channel, body)
	}
	return code, nil
}

func (s *instructorSteps) verifyReceivedCode(ctx context.Context, channel string) error {
	code, err := s.receivedCode(channel)
	if err != nil {
		return err
	}
	return s.verifyCode(ctx, channel, code)
}

func (s *instructorSteps) verifyCode(ctx context.Context, channel, code string) error {
	return s.tc.Do("POST", "/teacher/verification/"+channel+"/verify", s.tc.InstructorToken(), map[string]string{"code": code})
}

func (s *instructorSteps) hasVerified(ctx context.Context, channel string) error {
	if err := s.requestCode(ctx, channel); err != nil {
		return err
	}
	if err := s.expectOK("send " + channel + " code"); err != nil {
		return err
	}
	if err := s.verifyReceivedCode(ctx, channel); err != nil {
		return err
	}
	return s.expectOK("verify " + channel)
}

func (s *instructorSteps) submitPersonalInfo(ctx context.Context, dateOfBirth string) error {
	return s.tc.Do("POST", "/teacher/verification/personal-info", s.tc.InstructorToken(), map[string]any{
		"firstName":   "Ada",
		"lastName":    "Okafor",
		"dateOfBirth": dateOfBirth,
		"nationality": "Nigerian",
		"address": map[string]string{
			"street":  "12 Marina",
			"city":    "Lagos",
			"country": "Nigeria",
		},
	})
}

func (s *instructorSteps) uploadIDDocument(ctx context.Context, documentType string) error {
	return s.tc.Upload("/teacher/verification/id-documents", s.tc.InstructorToken(),
		map[string]string{"documentType": documentType},
		map[string][]byte{"frontImage": pngImage, "backImage": pngImage},
	)
}

func (s *instructorSteps) uploadSelfie(ctx context.Context) error {
	return s.tc.Upload("/teacher/verification/selfie", s.tc.InstructorToken(), nil,
		map[string][]byte{"selfie": pngImage},
	)
}

func (s *instructorSteps) uploadCertificate(ctx context.Context, certificateType string, year int) error {
	return s.tc.Upload("/teacher/verification/education-certificate", s.tc.InstructorToken(),
		map[string]string{
			"certificateType": certificateType,
			"institution":     "University of Lagos",
			"fieldOfStudy":    "Computer Science",
			"graduationYear":  strconv.Itoa(year),
		},
		map[string][]byte{"certificateDocument": pdfDocument},
	)
}

func (s *instructorSteps) submit(ctx context.Context) error {
	return s.tc.Do("POST", "/teacher/verification/submit", s.tc.InstructorToken(), nil)
}

func (s *instructorSteps) checkStatus(ctx context.Context) error {
	return s.tc.Do("GET", "/teacher/verification/status", s.tc.InstructorToken(), nil)
}

// status fetches the current status and returns the value at field.
func (s *instructorSteps) status(ctx context.Context, field string) (string, error) {
	if err := s.checkStatus(ctx); err != nil {
		return "", err
	}
	if err := s.expectOK("status"); err != nil {
		return "", err
	}
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func (s *instructorSteps) progressShouldBe(ctx context.Context, expected int) error {
	actual, err := s.status(ctx, "progressPercentage")
	if err != nil {
		return err
	}
	if actual != strconv.Itoa(expected) {
		return fmt.Errorf("expected progress %d%% but got %s%%", expected, actual)
	}
	return nil
}

func (s *instructorSteps) statusShouldBe(ctx context.Context, expected string) error {
	actual, err := s.status(ctx, "verificationStatus")
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("expected verification status %s but got %s", expected, actual)
	}
	return nil
}

func (s *instructorSteps) stepShouldBe(ctx context.Context, step, expected string) error {
	actual, err := s.status(ctx, "steps."+step)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("expected step %s to be %s but got %s", step, expected, actual)
	}
	return nil
}

func (s *instructorSteps) shouldReceiveEmail(ctx context.Context, text string) error {
	body, ok := s.tc.LastEmail(s.tc.InstructorEmail())
	if !ok {
		return fmt.Errorf("no email was sent to %s", s.tc.InstructorEmail())
	}
	if !strings.Contains(strings.ToLower(body), strings.ToLower(text)) {
		return fmt.Errorf("latest email does not mention %q:\n%s", text, body)
	}
	return nil
}

func (s *instructorSteps) expectOK(action string) error {
	status := s.tc.GetLastResponseStatus()
	if status < 200 || status > 299 {
		return fmt.Errorf("%s failed with status %d: %s", action, status, string(s.tc.GetLastResponseBody()))
	}
	return nil
}
