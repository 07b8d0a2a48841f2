package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/common"
	"github.com/ternarybob/solder/internal/services/llm"
)

const generateSystemPrompt = `You are an embedded firmware engineer writing Arduino C++ for an ESP32.
Generate a complete, compilable translation unit for the user's request.
Rules:
- Include standard libraries such as Arduino.h.
- Include comments and error handling.
- Define void setup() and void loop() as usual.
- The code MUST declare 'extern volatile bool shouldStop;' and check it
  periodically inside loop(), returning immediately when it is true.
- Respond with code only, inside a single fenced code block.`

const validateSystemPrompt = `You are a firmware reviewer. Validate the provided Arduino C++ code
against the original request. Check logic, safety, and syntax. The code must
check 'extern volatile bool shouldStop;' periodically.
Respond with exactly PASS if the code is acceptable, otherwise respond with a
short report of what is wrong.`

// ContentGenerator is the slice of the LLM provider the generator depends on
type ContentGenerator interface {
	GenerateContent(ctx context.Context, request *llm.ContentRequest) (*llm.ContentResponse, error)
}

// Service runs the generate/validate/repair loop that turns a natural
// language prompt into a firmware translation unit
type Service struct {
	provider ContentGenerator
	config   *common.GeneratorConfig
	logger   arbor.ILogger
}

// NewService creates a new generator service
func NewService(provider ContentGenerator, config *common.GeneratorConfig, logger arbor.ILogger) *Service {
	return &Service{
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// GenerateFirmware produces validated firmware source for a prompt. The code
// is regenerated with reviewer feedback up to MaxAttempts times; entry points
// are renamed only after validation passes so the reviewer sees standard
// Arduino structure.
func (s *Service) GenerateFirmware(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	attempts := s.config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var code string
	var lastReport string

	for attempt := 1; attempt <= attempts; attempt++ {
		s.logger.Info().
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("Generating firmware code")

		userPrompt := prompt
		if lastReport != "" {
			userPrompt = fmt.Sprintf("%s\n\nA previous attempt was rejected by review:\n%s\n\nRegenerate the full code with these issues fixed.", prompt, lastReport)
		}

		resp, err := s.provider.GenerateContent(ctx, &llm.ContentRequest{
			Model:             s.config.GenerateModel,
			SystemInstruction: generateSystemPrompt,
			Messages: []llm.Message{
				{Role: "user", Content: userPrompt},
			},
		})
		if err != nil {
			return "", fmt.Errorf("code generation failed: %w", err)
		}

		code = StripCodeFences(resp.Text)

		if !HasStopGuard(code) {
			lastReport = "The code does not check 'extern volatile bool shouldStop;' inside loop()."
			s.logger.Warn().Int("attempt", attempt).Msg("Generated code is missing the stop guard")
			continue
		}

		report, err := s.validate(ctx, code, prompt)
		if err != nil {
			return "", fmt.Errorf("code validation failed: %w", err)
		}

		if report == "" {
			s.logger.Info().Int("attempt", attempt).Msg("Firmware code passed validation")
			return RenameEntryPoints(code), nil
		}

		lastReport = report
		s.logger.Warn().
			Int("attempt", attempt).
			Str("report", report).
			Msg("Firmware code rejected by validator")
	}

	return "", fmt.Errorf("code failed validation after %d attempts: %s", attempts, lastReport)
}

// validate returns an empty string on PASS, otherwise the reviewer's report
func (s *Service) validate(ctx context.Context, code, originalRequest string) (string, error) {
	resp, err := s.provider.GenerateContent(ctx, &llm.ContentRequest{
		Model:             s.config.ValidateModel,
		SystemInstruction: validateSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("Request: %s\n\nCode:\n%s", originalRequest, code)},
		},
	})
	if err != nil {
		return "", err
	}

	verdict := strings.TrimSpace(resp.Text)
	if strings.EqualFold(verdict, "PASS") || strings.HasPrefix(strings.ToUpper(verdict), "PASS") {
		return "", nil
	}
	return verdict, nil
}
